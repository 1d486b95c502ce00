package genome

import (
	"fmt"
	"math/rand"
	"strings"
)

// Strategy names a crossover operator.
type Strategy string

const (
	// StrategyMix is uniform crossover: each locus comes from either parent.
	StrategyMix Strategy = "mix"
	// StrategyOneCut keeps the receiver's prefix and the other parent's suffix.
	// Adjacent loci tend to be inherited together.
	StrategyOneCut Strategy = "one-cut"
	// StrategyTwoCuts splices the other parent's middle segment into the receiver.
	StrategyTwoCuts Strategy = "two-cuts"
)

// Strategies lists the supported crossover operators.
func Strategies() []Strategy {
	return []Strategy{StrategyMix, StrategyOneCut, StrategyTwoCuts}
}

// ParseStrategy accepts canonical names as well as the spaced spellings
// ("one cut", "two cuts").
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
	switch Strategy(normalized) {
	case StrategyMix, StrategyOneCut, StrategyTwoCuts:
		return Strategy(normalized), nil
	case "":
		return StrategyMix, nil
	default:
		return "", fmt.Errorf("%w: strategy %q not valid", ErrInvalidArgument, name)
	}
}

// Mask selects loci. It must have the same length as the genomes it is
// applied to.
type Mask []bool

// MaskFromBits converts a 0/1 pattern into a Mask.
func MaskFromBits(bits ...uint8) Mask {
	mask := make(Mask, len(bits))
	for i, bit := range bits {
		mask[i] = bit != 0
	}
	return mask
}

// Count returns the number of selected loci.
func (m Mask) Count() int {
	n := 0
	for _, selected := range m {
		if selected {
			n++
		}
	}
	return n
}

func (m Mask) String() string {
	var b strings.Builder
	b.Grow(len(m))
	for _, selected := range m {
		if selected {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Combine produces a child of g and other using the given strategy.
func (g *Genome) Combine(rng *rand.Rand, other *Genome, strategy Strategy) (*Genome, error) {
	if err := g.sameLength(other, "combine"); err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyMix:
		child := g.bits.Clone()
		for i := 0; i < g.length; i++ {
			if rng.Intn(2) == 1 {
				child.SetTo(uint(i), other.bits.Test(uint(i)))
			}
		}
		return g.derive(child), nil
	case StrategyOneCut:
		if g.length < 2 {
			return nil, fmt.Errorf("%w: genome too short, one cut not applicable", ErrInvalidArgument)
		}
		cut := 1 + rng.Intn(g.length-1)
		return g.splice(other, cut, g.length), nil
	case StrategyTwoCuts:
		if g.length < 3 {
			return nil, fmt.Errorf("%w: genome too short, two cuts not applicable", ErrInvalidArgument)
		}
		first := 1 + rng.Intn(g.length-1)
		second := first
		for second == first {
			second = 1 + rng.Intn(g.length-1)
		}
		if second < first {
			first, second = second, first
		}
		return g.splice(other, first, second), nil
	default:
		return nil, fmt.Errorf("%w: strategy %q not valid", ErrInvalidArgument, strategy)
	}
}

// splice copies other's alleles over [from, to) of a copy of g.
func (g *Genome) splice(other *Genome, from, to int) *Genome {
	child := g.bits.Clone()
	for i := from; i < to; i++ {
		child.SetTo(uint(i), other.bits.Test(uint(i)))
	}
	return g.derive(child)
}

// CombineMasked takes g's allele where mask is set and other's elsewhere.
func (g *Genome) CombineMasked(other *Genome, mask Mask) (*Genome, error) {
	if err := g.sameLength(other, "combine masked"); err != nil {
		return nil, err
	}
	if len(mask) != g.length {
		return nil, fmt.Errorf("%w: mask length %d does not match genome length %d", ErrInvalidArgument, len(mask), g.length)
	}

	child := other.bits.Clone()
	for i, selected := range mask {
		if selected {
			child.SetTo(uint(i), g.bits.Test(uint(i)))
		}
	}
	return g.derive(child), nil
}
