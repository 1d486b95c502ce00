package genome

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/stat"
)

// Chromosome is a building-block hypothesis: the alleles of a genome together
// with a mask over the loci that form the pattern. Fitness-gain samples are
// accumulated while the block is being evaluated.
type Chromosome struct {
	genes  *bitset.BitSet
	length int
	mask   Mask

	mu      sync.Mutex
	samples []float64
}

// NewChromosome builds a chromosome from explicit alleles and a mask of the
// same length.
func NewChromosome(genes []uint8, mask Mask) (*Chromosome, error) {
	if len(genes) != len(mask) {
		return nil, fmt.Errorf("%w: mask length %d does not match gene length %d", ErrInvalidArgument, len(mask), len(genes))
	}
	set := bitset.New(uint(len(genes)))
	for i, bit := range genes {
		switch bit {
		case 0:
		case 1:
			set.Set(uint(i))
		default:
			return nil, fmt.Errorf("%w: allele %d at locus %d is not binary", ErrInvalidArgument, bit, i)
		}
	}
	return &Chromosome{genes: set, length: len(genes), mask: append(Mask(nil), mask...)}, nil
}

// ExtractChromosome wraps g's alleles and the mask into a Chromosome.
func (g *Genome) ExtractChromosome(mask Mask) (*Chromosome, error) {
	if len(mask) != g.length {
		return nil, fmt.Errorf("%w: mask length %d does not match genome length %d", ErrInvalidArgument, len(mask), g.length)
	}
	return &Chromosome{genes: g.bits.Clone(), length: g.length, mask: append(Mask(nil), mask...)}, nil
}

// AssignChromosome returns a copy of g whose masked loci carry the
// chromosome's alleles.
func (g *Genome) AssignChromosome(c *Chromosome) (*Genome, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: chromosome is required", ErrInvalidArgument)
	}
	if c.length != g.length {
		return nil, fmt.Errorf("%w: chromosome length %d does not match genome length %d", ErrInvalidArgument, c.length, g.length)
	}

	child := g.bits.Clone()
	for i, selected := range c.mask {
		if selected {
			child.SetTo(uint(i), c.genes.Test(uint(i)))
		}
	}
	return g.derive(child), nil
}

// ChromosomeFitnessGain measures how much the masked block of g raises the
// average fitness of pool when injected into each member.
func (g *Genome) ChromosomeFitnessGain(mask Mask, pool []*Genome) (float64, error) {
	if len(pool) == 0 {
		return 0, fmt.Errorf("%w: genome pool is empty", ErrInvalidArgument)
	}

	before := make([]float64, len(pool))
	after := make([]float64, len(pool))
	for i, other := range pool {
		injected, err := g.CombineMasked(other, mask)
		if err != nil {
			return 0, err
		}
		before[i] = other.Fitness()
		after[i] = injected.Fitness()
	}
	return stat.Mean(after, nil) - stat.Mean(before, nil), nil
}

// Len returns the number of loci.
func (c *Chromosome) Len() int {
	return c.length
}

// Genes returns a copy of the full allele sequence.
func (c *Chromosome) Genes() []uint8 {
	out := make([]uint8, c.length)
	for i := range out {
		if c.genes.Test(uint(i)) {
			out[i] = 1
		}
	}
	return out
}

// Mask returns a copy of the locus mask.
func (c *Chromosome) Mask() Mask {
	return append(Mask(nil), c.mask...)
}

// Pattern renders the masked alleles, with '-' for loci outside the mask.
func (c *Chromosome) Pattern() string {
	var b strings.Builder
	b.Grow(c.length)
	for i, selected := range c.mask {
		switch {
		case !selected:
			b.WriteByte('-')
		case c.genes.Test(uint(i)):
			b.WriteByte('1')
		default:
			b.WriteByte('0')
		}
	}
	return b.String()
}

// AddFitnessSample records observed fitness gains.
func (c *Chromosome) AddFitnessSample(values ...float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, values...)
}

func (c *Chromosome) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

// Samples returns a copy of the recorded gains.
func (c *Chromosome) Samples() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.samples...)
}

// Fitness is the mean recorded gain. Callers must record at least one sample
// first; otherwise ErrNoSamples is returned.
func (c *Chromosome) Fitness() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) == 0 {
		return 0, ErrNoSamples
	}
	return stat.Mean(c.samples, nil), nil
}

// StdDev is the sample standard deviation of the recorded gains; zero with
// fewer than two samples.
func (c *Chromosome) StdDev() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.samples) < 2 {
		return 0
	}
	sd := stat.StdDev(c.samples, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}
