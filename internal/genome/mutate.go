package genome

import (
	"math"
	"math/rand"
)

// SimpleMutate flips exactly one uniformly chosen locus.
func (g *Genome) SimpleMutate(rng *rand.Rand) *Genome {
	if g.length == 0 {
		return g
	}
	child := g.bits.Clone()
	child.Flip(uint(rng.Intn(g.length)))
	return g.derive(child)
}

// Mutate flips a number of loci proportional to the distance from perfect
// fitness: round(length * (1 - fitness)), at least one. Far-from-optimal
// genomes jump further; near-optimal ones move by about a single bit.
func (g *Genome) Mutate(rng *rand.Rand) *Genome {
	if g.length == 0 {
		return g
	}

	count := MutationCount(g.length, g.Fitness())
	mask := make([]bool, g.length)
	for i := 0; i < count; i++ {
		mask[i] = true
	}
	rng.Shuffle(len(mask), func(i, j int) {
		mask[i], mask[j] = mask[j], mask[i]
	})

	child := g.bits.Clone()
	for i, flip := range mask {
		if flip {
			child.Flip(uint(i))
		}
	}
	return g.derive(child)
}

// MutationCount is the adaptive mutation size for a genome of the given
// length and fitness, clamped to [1, length].
func MutationCount(length int, fitness float64) int {
	if length <= 0 {
		return 0
	}
	count := int(math.RoundToEven(float64(length) * (1 - fitness)))
	if count < 1 {
		count = 1
	}
	if count > length {
		count = length
	}
	return count
}
