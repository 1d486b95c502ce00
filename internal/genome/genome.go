package genome

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// FitnessFunc scores a bit sequence. It must be pure and deterministic;
// scores are conventionally in [0,1].
type FitnessFunc func(bits []uint8) float64

// Genome is an immutable fixed-length binary individual. Every operation
// returns a new Genome, so instances can be shared between goroutines.
type Genome struct {
	bits      *bitset.BitSet
	length    int
	fitnessFn FitnessFunc

	once    sync.Once
	fitness float64
}

// New builds a genome from explicit alleles. Every allele must be 0 or 1.
func New(bits []uint8, fn FitnessFunc) (*Genome, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: fitness function is required", ErrInvalidArgument)
	}
	set := bitset.New(uint(len(bits)))
	for i, bit := range bits {
		switch bit {
		case 0:
		case 1:
			set.Set(uint(i))
		default:
			return nil, fmt.Errorf("%w: allele %d at locus %d is not binary", ErrInvalidArgument, bit, i)
		}
	}
	return newGenome(set, len(bits), fn), nil
}

// Random samples length independent uniform bits.
func Random(rng *rand.Rand, length int, fn FitnessFunc) *Genome {
	if length < 0 {
		length = 0
	}
	set := bitset.New(uint(length))
	for i := 0; i < length; i++ {
		if rng.Intn(2) == 1 {
			set.Set(uint(i))
		}
	}
	return newGenome(set, length, fn)
}

func newGenome(bits *bitset.BitSet, length int, fn FitnessFunc) *Genome {
	return &Genome{bits: bits, length: length, fitnessFn: fn}
}

// derive wraps a freshly built bit set, keeping the parent's fitness function.
func (g *Genome) derive(bits *bitset.BitSet) *Genome {
	return newGenome(bits, g.length, g.fitnessFn)
}

// Len returns the number of loci.
func (g *Genome) Len() int {
	return g.length
}

// FitnessFunc returns the function g is scored with.
func (g *Genome) FitnessFunc() FitnessFunc {
	return g.fitnessFn
}

// Bit returns the allele at locus i.
func (g *Genome) Bit(i int) uint8 {
	if g.bits.Test(uint(i)) {
		return 1
	}
	return 0
}

// Bits returns a copy of the alleles.
func (g *Genome) Bits() []uint8 {
	out := make([]uint8, g.length)
	for i := range out {
		out[i] = g.Bit(i)
	}
	return out
}

// Fitness evaluates the fitness function on first use and caches the result
// for the lifetime of the instance.
func (g *Genome) Fitness() float64 {
	g.once.Do(func() {
		if g.fitnessFn != nil {
			g.fitness = g.fitnessFn(g.Bits())
		}
	})
	return g.fitness
}

// Equal reports genotype equality. The fitness function is ignored: two
// genomes with identical alleles are the same individual.
func (g *Genome) Equal(other *Genome) bool {
	if g == other {
		return true
	}
	if other == nil || g.length != other.length {
		return false
	}
	return g.bits.Equal(other.bits)
}

// Key returns a hashable genotype representation, suitable for map-based
// deduplication.
func (g *Genome) Key() string {
	return g.String()
}

func (g *Genome) String() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		if g.bits.Test(uint(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (g *Genome) sameLength(other *Genome, op string) error {
	if other == nil {
		return fmt.Errorf("%w: %s requires a second genome", ErrInvalidArgument, op)
	}
	if g.length != other.length {
		return fmt.Errorf("%w: %s on genomes of different length: %d vs %d", ErrInvalidArgument, op, g.length, other.length)
	}
	return nil
}
