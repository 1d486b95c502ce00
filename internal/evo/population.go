package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"genelab/internal/genome"
)

const DefaultPopulationSize = 30

// ErrSearchExhausted signals that the population has collapsed to a single
// genotype and distinct parents can no longer be found.
var ErrSearchExhausted = errors.New("search exhausted")

// Population is an ordered collection of genomes. It is replaced, never
// modified, from one generation to the next.
type Population struct {
	genomes []*genome.Genome
}

// NewPopulation wraps a copy of genomes.
func NewPopulation(genomes []*genome.Genome) *Population {
	return &Population{genomes: append([]*genome.Genome(nil), genomes...)}
}

// Initial builds populationSize random genomes of genomeSize loci, each
// refined once by hill climbing, so the search starts from local optima.
func Initial(ctx context.Context, rng *rand.Rand, genomeSize int, fn genome.FitnessFunc, populationSize int, cfg GenerationConfig) (*Population, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", genome.ErrInvalidArgument)
	}
	if genomeSize <= 0 {
		return nil, fmt.Errorf("%w: genome size must be > 0, got %d", genome.ErrInvalidArgument, genomeSize)
	}
	if populationSize <= 0 {
		return nil, fmt.Errorf("%w: population size must be > 0, got %d", genome.ErrInvalidArgument, populationSize)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: fitness function is required", genome.ErrInvalidArgument)
	}
	cfg = cfg.WithDefaults()

	seeds := make([]*genome.Genome, populationSize)
	for i := range seeds {
		seeds[i] = genome.Random(rng, genomeSize, fn)
	}
	climbed, err := climbAll(ctx, rng, seeds, cfg.Climb, cfg.Workers)
	if err != nil {
		return nil, err
	}
	return &Population{genomes: climbed}, nil
}

// Size is the number of individuals.
func (p *Population) Size() int {
	return len(p.genomes)
}

// Genomes returns a copy of the individuals in positional order.
func (p *Population) Genomes() []*genome.Genome {
	return append([]*genome.Genome(nil), p.genomes...)
}

// BestGenome returns the fittest individual, the earliest on ties.
func (p *Population) BestGenome() *genome.Genome {
	if len(p.genomes) == 0 {
		return nil
	}
	best := p.genomes[0]
	for _, g := range p.genomes[1:] {
		if g.Fitness() > best.Fitness() {
			best = g
		}
	}
	return best
}

// AverageFitness is the mean fitness; zero for an empty population.
func (p *Population) AverageFitness() float64 {
	if len(p.genomes) == 0 {
		return 0
	}
	return stat.Mean(p.fitnesses(), nil)
}

func (p *Population) MinFitness() float64 {
	if len(p.genomes) == 0 {
		return 0
	}
	lowest := p.genomes[0].Fitness()
	for _, g := range p.genomes[1:] {
		lowest = min(lowest, g.Fitness())
	}
	return lowest
}

// FitnessStdDev is the sample standard deviation of fitness; zero for fewer
// than two individuals.
func (p *Population) FitnessStdDev() float64 {
	if len(p.genomes) < 2 {
		return 0
	}
	return stat.StdDev(p.fitnesses(), nil)
}

// Diversity is the mean pairwise relative Hamming distance, in [0,1].
func (p *Population) Diversity() float64 {
	if len(p.genomes) < 2 {
		return 0
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(p.genomes); i++ {
		for j := i + 1; j < len(p.genomes); j++ {
			d, err := p.genomes[i].Distance(p.genomes[j], genome.DistanceRelative)
			if err != nil {
				continue
			}
			total += d
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

// UniqueCount is the number of distinct genotypes.
func (p *Population) UniqueCount() int {
	seen := make(map[string]struct{}, len(p.genomes))
	for _, g := range p.genomes {
		seen[g.Key()] = struct{}{}
	}
	return len(seen)
}

// Top returns up to n individuals ranked by descending fitness.
func (p *Population) Top(n int) []*genome.Genome {
	ranked := p.Genomes()
	rankByFitness(ranked)
	if n < len(ranked) && n >= 0 {
		ranked = ranked[:n]
	}
	return ranked
}

func (p *Population) fitnesses() []float64 {
	out := make([]float64, len(p.genomes))
	for i, g := range p.genomes {
		out[i] = g.Fitness()
	}
	return out
}

// rankByFitness sorts in place by descending fitness, keeping positional
// order among equals.
func rankByFitness(genomes []*genome.Genome) {
	sort.SliceStable(genomes, func(i, j int) bool {
		return genomes[i].Fitness() > genomes[j].Fitness()
	})
}
