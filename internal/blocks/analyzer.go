// Package blocks estimates the worth of building blocks: masked fragments of
// a genome whose contribution is measured by injecting them into random
// genomes and recording the fitness gain as chromosome samples.
package blocks

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"genelab/internal/genome"
)

const (
	DefaultPoolSize = 20
	DefaultRounds   = 10
)

type Analyzer struct {
	// Fitness scores the pool and the injected genomes. When nil the source
	// genome's function is used.
	Fitness  genome.FitnessFunc
	PoolSize int
	Rounds   int
	Workers  int
}

type Result struct {
	Chromosome *genome.Chromosome
	Mean       float64
	StdDev     float64
	Samples    int
}

// Pattern renders the block with '-' at loci outside its mask.
func (r Result) Pattern() string {
	return r.Chromosome.Pattern()
}

// ContiguousMasks returns window masks of the given width over length loci,
// starting every stride loci. A non-positive stride defaults to width.
func ContiguousMasks(length, width, stride int) ([]genome.Mask, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: length must be > 0, got %d", genome.ErrInvalidArgument, length)
	}
	if width <= 0 || width > length {
		return nil, fmt.Errorf("%w: width must be in [1,%d], got %d", genome.ErrInvalidArgument, length, width)
	}
	if stride <= 0 {
		stride = width
	}

	var masks []genome.Mask
	for start := 0; start+width <= length; start += stride {
		mask := make(genome.Mask, length)
		for i := start; i < start+width; i++ {
			mask[i] = true
		}
		masks = append(masks, mask)
	}
	return masks, nil
}

// Analyze extracts one chromosome per mask from source and, for each round,
// samples its fitness gain over a fresh random pool. Pools are drawn from rng
// sequentially, so results do not depend on Workers. Results are ranked by
// descending mean gain, in mask order on ties.
func (a Analyzer) Analyze(ctx context.Context, rng *rand.Rand, source *genome.Genome, masks []genome.Mask) ([]Result, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", genome.ErrInvalidArgument)
	}
	if source == nil {
		return nil, fmt.Errorf("%w: source genome is required", genome.ErrInvalidArgument)
	}
	if len(masks) == 0 {
		return nil, fmt.Errorf("%w: at least one mask is required", genome.ErrInvalidArgument)
	}
	a = a.withDefaults()

	fn := source.FitnessFunc()
	if a.Fitness != nil {
		fn = a.Fitness
		rebuilt, err := genome.New(source.Bits(), fn)
		if err != nil {
			return nil, err
		}
		source = rebuilt
	}

	chromosomes := make([]*genome.Chromosome, len(masks))
	for i, mask := range masks {
		c, err := source.ExtractChromosome(mask)
		if err != nil {
			return nil, fmt.Errorf("mask %d: %w", i, err)
		}
		chromosomes[i] = c
	}

	for round := 0; round < a.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pool := make([]*genome.Genome, a.PoolSize)
		for i := range pool {
			pool[i] = genome.Random(rng, source.Len(), fn)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.Workers)
		for i := range masks {
			i := i // per-iteration copy (pre-Go 1.22 loop semantics)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				gain, err := source.ChromosomeFitnessGain(masks[i], pool)
				if err != nil {
					return fmt.Errorf("mask %d: %w", i, err)
				}
				chromosomes[i].AddFitnessSample(gain)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(chromosomes))
	for i, c := range chromosomes {
		mean, err := c.Fitness()
		if err != nil {
			return nil, err
		}
		results[i] = Result{
			Chromosome: c,
			Mean:       mean,
			StdDev:     c.StdDev(),
			Samples:    c.SampleCount(),
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Mean > results[j].Mean
	})
	return results, nil
}

func (a Analyzer) withDefaults() Analyzer {
	if a.PoolSize <= 0 {
		a.PoolSize = DefaultPoolSize
	}
	if a.Rounds <= 0 {
		a.Rounds = DefaultRounds
	}
	if a.Workers <= 0 {
		a.Workers = 1
	}
	return a
}
