package evo

import (
	"fmt"
	"math/rand"

	"genelab/internal/genome"
)

const DefaultTournamentSize = 2

// TournamentSelection returns selectedCount winners. All contestants are
// drawn up front, with replacement, in a single flat sample of
// selectedCount*tournamentSize individuals; tournament i is the contiguous
// slice [i*tournamentSize, (i+1)*tournamentSize) of that sample. The fittest
// contestant of each slice wins, the earliest on ties.
func TournamentSelection(rng *rand.Rand, population []*genome.Genome, selectedCount, tournamentSize int) ([]*genome.Genome, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", genome.ErrInvalidArgument)
	}
	if len(population) == 0 {
		return nil, fmt.Errorf("%w: tournament selection on empty population", genome.ErrInvalidArgument)
	}
	if selectedCount <= 0 {
		return nil, fmt.Errorf("%w: selected count must be > 0, got %d", genome.ErrInvalidArgument, selectedCount)
	}
	if tournamentSize <= 0 {
		return nil, fmt.Errorf("%w: tournament size must be > 0, got %d", genome.ErrInvalidArgument, tournamentSize)
	}

	contestants := make([]*genome.Genome, selectedCount*tournamentSize)
	for i := range contestants {
		contestants[i] = population[rng.Intn(len(population))]
	}

	winners := make([]*genome.Genome, selectedCount)
	for i := range winners {
		group := contestants[i*tournamentSize : (i+1)*tournamentSize]
		best := group[0]
		for _, candidate := range group[1:] {
			if candidate.Fitness() > best.Fitness() {
				best = candidate
			}
		}
		winners[i] = best
	}
	return winners, nil
}
