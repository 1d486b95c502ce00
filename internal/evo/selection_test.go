package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genelab/internal/genome"
)

func onemax(bits []uint8) float64 {
	if len(bits) == 0 {
		return 0
	}
	ones := 0
	for _, bit := range bits {
		ones += int(bit)
	}
	return float64(ones) / float64(len(bits))
}

func randomGenomes(rng *rand.Rand, count, length int, fn genome.FitnessFunc) []*genome.Genome {
	out := make([]*genome.Genome, count)
	for i := range out {
		out[i] = genome.Random(rng, length, fn)
	}
	return out
}

func contains(population []*genome.Genome, g *genome.Genome) bool {
	for _, member := range population {
		if member == g {
			return true
		}
	}
	return false
}

func TestTournamentSelectionReturnsPopulationMembers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	flat := func([]uint8) float64 { return 0.5 }
	population := randomGenomes(rng, 7, 12, flat)

	for _, selected := range []int{1, 2, 7, 30} {
		for _, size := range []int{1, 2, 5} {
			winners, err := TournamentSelection(rng, population, selected, size)
			require.NoError(t, err)
			require.Len(t, winners, selected)
			for _, w := range winners {
				assert.True(t, contains(population, w), "winner %s is not a population member", w)
			}
		}
	}
}

func TestTournamentSelectionUsesContiguousSlicesOfOneDraw(t *testing.T) {
	population := randomGenomes(rand.New(rand.NewSource(2)), 10, 16, onemax)
	const selected, size = 6, 3

	winners, err := TournamentSelection(rand.New(rand.NewSource(99)), population, selected, size)
	require.NoError(t, err)

	replay := rand.New(rand.NewSource(99))
	draw := make([]*genome.Genome, selected*size)
	for i := range draw {
		draw[i] = population[replay.Intn(len(population))]
	}
	for i := 0; i < selected; i++ {
		want := draw[i*size]
		for _, c := range draw[i*size+1 : (i+1)*size] {
			if c.Fitness() > want.Fitness() {
				want = c
			}
		}
		assert.Same(t, want, winners[i], "tournament %d", i)
	}
}

func TestTournamentSelectionValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	population := randomGenomes(rng, 3, 4, onemax)

	_, err := TournamentSelection(rng, nil, 1, 2)
	require.ErrorIs(t, err, genome.ErrInvalidArgument)
	_, err = TournamentSelection(rng, population, 0, 2)
	require.ErrorIs(t, err, genome.ErrInvalidArgument)
	_, err = TournamentSelection(rng, population, 1, 0)
	require.ErrorIs(t, err, genome.ErrInvalidArgument)
	_, err = TournamentSelection(nil, population, 1, 2)
	require.ErrorIs(t, err, genome.ErrInvalidArgument)
}
