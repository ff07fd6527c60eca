package scoring

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

func archetype(id string, raw map[string]int) catalog.Archetype {
	return catalog.Archetype{ID: id, Name: "name-" + id, RawScores: raw}
}

func TestRescaleRaw(t *testing.T) {
	assert.Equal(t, 0.0, RescaleRaw(1))
	assert.Equal(t, 100.0, RescaleRaw(10))
	assert.InDelta(t, 44.444, RescaleRaw(5), 0.001)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyEuclidean, p)

	p, err = ParsePolicy("cosine")
	require.NoError(t, err)
	assert.Equal(t, PolicyCosine, p)

	_, err = ParsePolicy("manhattan")
	assert.Error(t, err)
}

func TestComparisonVectors(t *testing.T) {
	reg := twoAxisRegistry()

	t.Run("raw fallback fills missing axes with midpoint", func(t *testing.T) {
		cands, calibrated := ComparisonVectors(reg, []catalog.Archetype{archetype("a", map[string]int{"A": 10})})
		assert.False(t, calibrated)
		want := []float64{100, RescaleRaw(catalog.RawMidpoint)}
		if diff := cmp.Diff(want, cands[0].Vector, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("vector mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("calibrated when every archetype has every axis", func(t *testing.T) {
		a := archetype("a", map[string]int{"A": 10, "B": 1})
		a.CalibratedScores = map[string]float64{"A": 60, "B": 40}
		b := archetype("b", map[string]int{"A": 1, "B": 10})
		b.CalibratedScores = map[string]float64{"A": 30, "B": 70}

		cands, calibrated := ComparisonVectors(reg, []catalog.Archetype{a, b})
		assert.True(t, calibrated)
		assert.Equal(t, []float64{60, 40}, cands[0].Vector)
		assert.Equal(t, []float64{30, 70}, cands[1].Vector)
	})

	t.Run("mixed presence falls back entirely", func(t *testing.T) {
		a := archetype("a", map[string]int{"A": 10, "B": 1})
		a.CalibratedScores = map[string]float64{"A": 60, "B": 40}
		b := archetype("b", map[string]int{"A": 1, "B": 10})

		cands, calibrated := ComparisonVectors(reg, []catalog.Archetype{a, b})
		assert.False(t, calibrated)
		assert.Equal(t, []float64{100, 0}, cands[0].Vector)
	})

	t.Run("stale calibration missing an axis falls back", func(t *testing.T) {
		a := archetype("a", map[string]int{"A": 10, "B": 1})
		a.CalibratedScores = map[string]float64{"A": 60}
		_, calibrated := ComparisonVectors(reg, []catalog.Archetype{a})
		assert.False(t, calibrated)
	})
}

func TestEuclideanMatchIsDeterministicWithoutTies(t *testing.T) {
	reg := twoAxisRegistry()
	archetypes := []catalog.Archetype{
		archetype("low", map[string]int{"A": 1, "B": 1}),
		archetype("high", map[string]int{"A": 10, "B": 10}),
		archetype("mixed", map[string]int{"A": 10, "B": 1}),
	}
	m := NewMatcher(PolicyEuclidean, NewRand(1))

	for i := 0; i < 20; i++ {
		got, err := m.Match([]float64{90, 10}, reg, archetypes)
		require.NoError(t, err)
		assert.Equal(t, "mixed", got.ArchetypeID)
		assert.Equal(t, "name-mixed", got.ArchetypeName)
		assert.Empty(t, got.TieSet)
		assert.InDelta(t, 14.1, got.Distance, 0.05)
		assert.False(t, got.Calibrated)
	}
}

func TestEuclideanMatchPicksFromTieSet(t *testing.T) {
	reg := twoAxisRegistry()
	archetypes := []catalog.Archetype{
		archetype("far", map[string]int{"A": 1, "B": 1}),
		archetype("twin-1", map[string]int{"A": 10, "B": 10}),
		archetype("twin-2", map[string]int{"A": 10, "B": 10}),
	}
	m := NewMatcher(PolicyEuclidean, NewRand(99))

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		got, err := m.Match([]float64{80, 80}, reg, archetypes)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"twin-1", "twin-2"}, got.TieSet)
		seen[got.ArchetypeID]++
	}
	assert.Zero(t, seen["far"])
	assert.Positive(t, seen["twin-1"])
	assert.Positive(t, seen["twin-2"])
}

func TestEuclideanSimilarity(t *testing.T) {
	reg := twoAxisRegistry()
	m := NewMatcher(PolicyEuclidean, nil)

	got, err := m.Match([]float64{100, 100}, reg, []catalog.Archetype{archetype("x", map[string]int{"A": 10, "B": 10})})
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Similarity)

	got, err = m.Match([]float64{0, 0}, reg, []catalog.Archetype{archetype("x", map[string]int{"A": 10, "B": 10})})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Similarity)
}

func TestCosineMatchLegacyBehaviour(t *testing.T) {
	reg := twoAxisRegistry()
	a := archetype("a", map[string]int{"A": 10, "B": 1})
	a.CalibratedScores = map[string]float64{"A": 0, "B": 100}
	b := archetype("b", map[string]int{"A": 1, "B": 10})
	b.CalibratedScores = map[string]float64{"A": 100, "B": 0}
	m := NewMatcher(PolicyCosine, nil)

	// Calibrated vectors are ignored by the legacy policy.
	got, err := m.Match([]float64{90, 10}, reg, []catalog.Archetype{a, b})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ArchetypeID)
	assert.False(t, got.Calibrated)

	// Identical directions: first best wins, no tie set.
	c := archetype("c", map[string]int{"A": 10, "B": 1})
	got, err = m.Match([]float64{90, 0}, reg, []catalog.Archetype{a, c})
	require.NoError(t, err)
	assert.Equal(t, "a", got.ArchetypeID)
	assert.Empty(t, got.TieSet)
	assert.Equal(t, 100.0, got.Similarity)
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{1, 1}))
	assert.InDelta(t, 1.0, Cosine([]float64{2, 2}, []float64{5, 5}), 1e-12)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-12)
}

func TestMatchErrors(t *testing.T) {
	reg := twoAxisRegistry()
	m := NewMatcher(PolicyEuclidean, nil)

	_, err := m.Match([]float64{1, 2}, reg, nil)
	assert.True(t, errors.Is(err, ErrNoCandidates))

	_, err = m.Match([]float64{1}, reg, []catalog.Archetype{archetype("a", nil)})
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, KindInvalidInput, serr.Kind)
}
