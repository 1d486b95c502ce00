package evo

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"genelab/internal/genome"
)

const DefaultChildrenCount = 20

// GenerationConfig parameterizes NextGeneration. Zero fields take defaults.
type GenerationConfig struct {
	ChildrenCount int
	Strategy      genome.Strategy
	Recombination RecombinationMode
	Climb         genome.ClimbOptions
	// FreshGenomes is the number of locally optimized random genomes added
	// to the selection pool each generation.
	FreshGenomes int
	// Workers bounds concurrent hill climbs. Results do not depend on it.
	Workers int
}

func (c GenerationConfig) WithDefaults() GenerationConfig {
	if c.ChildrenCount <= 0 {
		c.ChildrenCount = DefaultChildrenCount
	}
	if c.Strategy == "" {
		c.Strategy = genome.StrategyMix
	}
	if c.Recombination == "" {
		c.Recombination = RecombinationFiltered
	}
	c.Climb = c.Climb.WithDefaults()
	if c.FreshGenomes < 0 {
		c.FreshGenomes = 0
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// NextGeneration performs one generational step: recombination, hill
// climbing of every child, optional diversity injection, then elitist
// replacement. The union of the current population, the climbed children and
// the fresh genomes is deduplicated by genotype, ranked by fitness and
// truncated to the current size, so the best fitness never decreases.
func (p *Population) NextGeneration(ctx context.Context, rng *rand.Rand, cfg GenerationConfig) (*Population, error) {
	if len(p.genomes) == 0 {
		return nil, fmt.Errorf("%w: next generation of empty population", genome.ErrInvalidArgument)
	}
	cfg = cfg.WithDefaults()

	var (
		children []*genome.Genome
		err      error
	)
	switch cfg.Recombination {
	case RecombinationFiltered:
		children, err = p.Recombination(rng, cfg.ChildrenCount, cfg.Strategy)
	case RecombinationDistinct:
		children, err = p.RecombinationDistinct(rng, cfg.ChildrenCount, cfg.Strategy)
	default:
		err = fmt.Errorf("%w: recombination mode %q not valid", genome.ErrInvalidArgument, cfg.Recombination)
	}
	if err != nil {
		return nil, err
	}

	template := p.genomes[0]
	for i := 0; i < cfg.FreshGenomes; i++ {
		children = append(children, genome.Random(rng, template.Len(), template.FitnessFunc()))
	}

	climbed, err := climbAll(ctx, rng, children, cfg.Climb, cfg.Workers)
	if err != nil {
		return nil, err
	}

	pool := make([]*genome.Genome, 0, len(p.genomes)+len(climbed))
	pool = append(pool, p.genomes...)
	pool = append(pool, climbed...)

	generationsTotal.Inc()
	return &Population{genomes: selectSurvivors(pool, len(p.genomes))}, nil
}

// climbAll hill-climbs every genome. Per-genome seeds are drawn from rng
// before fan-out so the outcome is the same for any worker count.
func climbAll(ctx context.Context, rng *rand.Rand, genomes []*genome.Genome, opts genome.ClimbOptions, workers int) ([]*genome.Genome, error) {
	seeds := make([]int64, len(genomes))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	out := make([]*genome.Genome, len(genomes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := range genomes {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result := genomes[i].Climb(rand.New(rand.NewSource(seeds[i])), opts)
			climbSteps.Observe(float64(result.Steps))
			out[i] = result.Best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// selectSurvivors keeps the size fittest distinct genotypes of pool. When
// there are fewer distinct genotypes than size, the fittest duplicates fill
// the remaining places.
func selectSurvivors(pool []*genome.Genome, size int) []*genome.Genome {
	seen := make(map[string]struct{}, len(pool))
	unique := make([]*genome.Genome, 0, len(pool))
	var duplicates []*genome.Genome
	for _, g := range pool {
		key := g.Key()
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, g)
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, g)
	}

	rankByFitness(unique)
	if len(unique) >= size {
		return unique[:size]
	}
	rankByFitness(duplicates)
	return append(unique, duplicates[:size-len(unique)]...)
}
