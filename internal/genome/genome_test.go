package genome

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mean(bits []uint8) float64 {
	if len(bits) == 0 {
		return 0
	}
	sum := 0
	for _, bit := range bits {
		sum += int(bit)
	}
	return float64(sum) / float64(len(bits))
}

func mustGenome(t *testing.T, bits ...uint8) *Genome {
	t.Helper()
	g, err := New(bits, mean)
	require.NoError(t, err)
	return g
}

func randomMask(rng *rand.Rand, length int) Mask {
	mask := make(Mask, length)
	for i := range mask {
		mask[i] = rng.Intn(2) == 1
	}
	return mask
}

func uniform(length int, bit uint8) []uint8 {
	out := make([]uint8, length)
	for i := range out {
		out[i] = bit
	}
	return out
}

func TestNewRejectsNonBinaryAlleles(t *testing.T) {
	_, err := New([]uint8{0, 1, 2}, mean)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New([]uint8{0, 1}, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRandomProducesRequestedLength(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, length := range []int{0, 1, 7, 64, 65, 200} {
		g := Random(rng, length, mean)
		assert.Equal(t, length, g.Len())
		assert.Len(t, g.String(), length)
	}
}

func TestCombineMaskedWithSelfIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		g := Random(rng, 1+rng.Intn(40), mean)
		child, err := g.CombineMasked(g, randomMask(rng, g.Len()))
		require.NoError(t, err)
		assert.True(t, child.Equal(g), "self combination changed %s into %s", g, child)
	}
}

func TestCombineMaskedTakesAllelesPerLocus(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		length := 1 + rng.Intn(40)
		a := Random(rng, length, mean)
		b := Random(rng, length, mean)
		mask := randomMask(rng, length)

		child, err := a.CombineMasked(b, mask)
		require.NoError(t, err)
		for locus := 0; locus < length; locus++ {
			want := b.Bit(locus)
			if mask[locus] {
				want = a.Bit(locus)
			}
			require.Equal(t, want, child.Bit(locus), "locus %d", locus)
		}
	}
}

func TestCombineMaskedRejectsMismatchedMask(t *testing.T) {
	g := mustGenome(t, 0, 1, 1)
	_, err := g.CombineMasked(g, Mask{true})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCombineRejectsLengthMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, lengths := range [][2]int{{1, 2}, {5, 4}, {3, 10}, {0, 1}, {64, 65}} {
		a := Random(rng, lengths[0], mean)
		b := Random(rng, lengths[1], mean)
		for _, strategy := range Strategies() {
			_, err := a.Combine(rng, b, strategy)
			require.ErrorIs(t, err, ErrInvalidArgument, "lengths %v strategy %s", lengths, strategy)
		}
		_, err := a.CombineMasked(b, make(Mask, lengths[0]))
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = a.Distance(b, DistanceAbsolute)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestCombineRejectsUnknownStrategy(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := mustGenome(t, 0, 1, 1, 0)
	child, err := g.Combine(rng, g, Strategy("three-cuts"))
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, child)
}

func TestCombineTwoCutsRequiresThreeLoci(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := mustGenome(t, 0, 1)
	_, err := g.Combine(rng, g, StrategyTwoCuts)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCombineOneCutKeepsPrefixAndSuffix(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	ones := mustGenome(t, uniform(12, 1)...)
	zeros := mustGenome(t, uniform(12, 0)...)
	for i := 0; i < 30; i++ {
		child, err := ones.Combine(rng, zeros, StrategyOneCut)
		require.NoError(t, err)
		s := child.String()
		cut := strings.Index(s, "0")
		require.GreaterOrEqual(t, cut, 1, "cut must leave a non-empty prefix: %s", s)
		assert.Equal(t, strings.Repeat("1", cut)+strings.Repeat("0", 12-cut), s)
	}
}

func TestCombineTwoCutsSplicesMiddleSegment(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ones := mustGenome(t, uniform(10, 1)...)
	zeros := mustGenome(t, uniform(10, 0)...)
	for i := 0; i < 30; i++ {
		child, err := ones.Combine(rng, zeros, StrategyTwoCuts)
		require.NoError(t, err)
		s := child.String()
		first := strings.Index(s, "0")
		last := strings.LastIndex(s, "0")
		require.GreaterOrEqual(t, first, 1, s)
		require.Less(t, last, 9, s)
		assert.Equal(t, strings.Repeat("0", last-first+1), s[first:last+1])
	}
}

func TestCombineMixKeepsSharedAlleles(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	a := mustGenome(t, 1, 1, 0, 0, 1, 0)
	b := mustGenome(t, 1, 0, 0, 1, 1, 1)
	for i := 0; i < 20; i++ {
		child, err := a.Combine(rng, b, StrategyMix)
		require.NoError(t, err)
		assert.Equal(t, uint8(1), child.Bit(0))
		assert.Equal(t, uint8(0), child.Bit(2))
		assert.Equal(t, uint8(1), child.Bit(4))
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":         StrategyMix,
		"mix":      StrategyMix,
		"one cut":  StrategyOneCut,
		"One-Cut":  StrategyOneCut,
		"two cuts": StrategyTwoCuts,
	}
	for input, want := range cases {
		got, err := ParseStrategy(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseStrategy("uniform")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 50; i++ {
		length := 1 + rng.Intn(80)
		a := Random(rng, length, mean)
		b := Random(rng, length, mean)

		self, err := a.Distance(a, DistanceAbsolute)
		require.NoError(t, err)
		assert.Zero(t, self)

		abs, err := a.Distance(b, DistanceAbsolute)
		require.NoError(t, err)
		rel, err := a.Distance(b, DistanceRelative)
		require.NoError(t, err)
		assert.Equal(t, abs, math.Round(rel*float64(length)))
	}

	a := mustGenome(t, 0, 1, 1, 0)
	b := mustGenome(t, 1, 1, 0, 0)
	abs, err := a.Distance(b, DistanceAbsolute)
	require.NoError(t, err)
	assert.Equal(t, 2.0, abs)
	rel, err := a.Distance(b, DistanceRelative)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rel)

	_, err = a.Distance(b, DistanceMethod("euclidean"))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFitnessIsComputedOnce(t *testing.T) {
	calls := 0
	g, err := New([]uint8{1, 0, 1, 1}, func(bits []uint8) float64 {
		calls++
		return mean(bits)
	})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.75, g.Fitness())
	}
	assert.Equal(t, 1, calls)
}

func TestEqualIgnoresFitnessFunction(t *testing.T) {
	a, err := New([]uint8{1, 0, 1}, mean)
	require.NoError(t, err)
	b, err := New([]uint8{1, 0, 1}, func([]uint8) float64 { return 0 })
	require.NoError(t, err)
	c := mustGenome(t, 1, 1, 1)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestSimpleMutateFlipsExactlyOneLocus(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	g := Random(rng, 30, mean)
	for i := 0; i < 20; i++ {
		child := g.SimpleMutate(rng)
		d, err := g.Distance(child, DistanceAbsolute)
		require.NoError(t, err)
		assert.Equal(t, 1.0, d)
	}
}

func TestMutateScalesWithDistanceFromOptimum(t *testing.T) {
	rng := rand.New(rand.NewSource(23))

	worst := mustGenome(t, uniform(10, 0)...)
	child := worst.Mutate(rng)
	assert.Equal(t, strings.Repeat("1", 10), child.String())

	best := mustGenome(t, uniform(10, 1)...)
	d, err := best.Distance(best.Mutate(rng), DistanceAbsolute)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)

	half := mustGenome(t, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0)
	d, err = half.Distance(half.Mutate(rng), DistanceAbsolute)
	require.NoError(t, err)
	assert.Equal(t, 5.0, d)
}

func TestMutationCount(t *testing.T) {
	assert.Equal(t, 0, MutationCount(0, 0))
	assert.Equal(t, 1, MutationCount(10, 1))
	assert.Equal(t, 1, MutationCount(10, 0.99))
	assert.Equal(t, 2, MutationCount(5, 0.5))
	assert.Equal(t, 10, MutationCount(10, -3))
	assert.Equal(t, 1, MutationCount(10, 4))
}

func TestMutationsOfEmptyGenomeReturnReceiver(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := Random(rng, 0, mean)
	assert.Same(t, g, g.SimpleMutate(rng))
	assert.Same(t, g, g.Mutate(rng))
	assert.Same(t, g, g.ClimbHill(rng, DefaultClimbOptions()))
}
