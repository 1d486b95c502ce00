package evo

import (
	"fmt"
	"math/rand"
	"strings"

	"genelab/internal/genome"
)

// MaxIdenticalPairAttempts bounds how many consecutive identical parent
// pairs RecombinationDistinct tolerates before giving up.
const MaxIdenticalPairAttempts = 50

// RecombinationMode picks the recombination variant used by NextGeneration.
type RecombinationMode string

const (
	// RecombinationFiltered drops identical couples and may return fewer
	// children than requested.
	RecombinationFiltered RecombinationMode = "filtered"
	// RecombinationDistinct redraws until every child has distinct parents.
	RecombinationDistinct RecombinationMode = "distinct"
)

func ParseRecombinationMode(name string) (RecombinationMode, error) {
	switch mode := RecombinationMode(strings.ToLower(strings.TrimSpace(name))); mode {
	case "":
		return RecombinationFiltered, nil
	case RecombinationFiltered, RecombinationDistinct:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: recombination mode %q not valid", genome.ErrInvalidArgument, name)
	}
}

// Recombination selects 2*childrenCount parents by binary tournament, pairs
// them positionally, discards couples whose members share a genotype and
// combines the rest.
func (p *Population) Recombination(rng *rand.Rand, childrenCount int, strategy genome.Strategy) ([]*genome.Genome, error) {
	if childrenCount <= 0 {
		return nil, fmt.Errorf("%w: children count must be > 0, got %d", genome.ErrInvalidArgument, childrenCount)
	}
	parents, err := TournamentSelection(rng, p.genomes, 2*childrenCount, DefaultTournamentSize)
	if err != nil {
		return nil, err
	}

	children := make([]*genome.Genome, 0, childrenCount)
	for i := 0; i < childrenCount; i++ {
		mother, father := parents[2*i], parents[2*i+1]
		if mother.Equal(father) {
			continue
		}
		child, err := mother.Combine(rng, father, strategyOrDefault(strategy))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// RecombinationDistinct produces exactly childrenCount children, drawing one
// binary-tournament pair at a time and retrying identical pairs. It fails
// with ErrSearchExhausted after MaxIdenticalPairAttempts consecutive
// identical pairs.
func (p *Population) RecombinationDistinct(rng *rand.Rand, childrenCount int, strategy genome.Strategy) ([]*genome.Genome, error) {
	if childrenCount <= 0 {
		return nil, fmt.Errorf("%w: children count must be > 0, got %d", genome.ErrInvalidArgument, childrenCount)
	}

	children := make([]*genome.Genome, 0, childrenCount)
	identical := 0
	for len(children) < childrenCount {
		couple, err := TournamentSelection(rng, p.genomes, 2, DefaultTournamentSize)
		if err != nil {
			return nil, err
		}
		if couple[0].Equal(couple[1]) {
			identical++
			if identical >= MaxIdenticalPairAttempts {
				searchExhausted.Inc()
				return nil, fmt.Errorf("%w: %d consecutive identical parent pairs", ErrSearchExhausted, identical)
			}
			continue
		}
		identical = 0

		child, err := couple[0].Combine(rng, couple[1], strategyOrDefault(strategy))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func strategyOrDefault(strategy genome.Strategy) genome.Strategy {
	if strategy == "" {
		return genome.StrategyMix
	}
	return strategy
}
