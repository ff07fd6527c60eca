package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// mirrorQuestion moves axis a by the given yes..no deltas and axis b by their negation.
func mirrorQuestion(id, a, b string, deltas [4]int) catalog.Question {
	q := catalog.Question{ID: id, Scores: map[catalog.Choice]map[string]int{}}
	for i, c := range catalog.Choices {
		q.Scores[c] = map[string]int{a: deltas[i], b: -deltas[i]}
	}
	return q
}

func twoAxisRegistry() *catalog.Registry {
	return catalog.NewRegistry([]catalog.Axis{{Name: "A", SortOrder: 1}, {Name: "B", SortOrder: 2}})
}

func TestNormalizeMirrorScenario(t *testing.T) {
	reg := twoAxisRegistry()
	n := NewNormalizer(reg, []catalog.Question{mirrorQuestion("q1", "A", "B", [4]int{2, 1, -1, -2})})

	min, max := n.Bounds()
	assert.Equal(t, []float64{-2, -2}, min)
	assert.Equal(t, []float64{2, 2}, max)

	answers := map[string]string{"q1": "yes"}
	assert.Equal(t, []float64{2, -2}, n.Raw(answers))
	assert.Equal(t, []float64{100.0, 0.0}, n.Normalize(answers))
}

func TestNormalizeZeroRangeIsMidpoint(t *testing.T) {
	reg := catalog.NewRegistry([]catalog.Axis{{Name: "A"}, {Name: "C"}})
	q := catalog.Question{ID: "q1", Scores: map[catalog.Choice]map[string]int{
		catalog.Yes: {"A": 1},
		catalog.No:  {"A": -1},
	}}
	n := NewNormalizer(reg, []catalog.Question{q})

	for _, choice := range catalog.Choices {
		v := n.Normalize(map[string]string{"q1": string(choice)})
		assert.Equal(t, Midpoint, v[1], "choice %s", choice)
	}
}

func TestNormalizeUsesWholeCatalogBounds(t *testing.T) {
	reg := twoAxisRegistry()
	n := NewNormalizer(reg, []catalog.Question{
		mirrorQuestion("q1", "A", "B", [4]int{2, 1, -1, -2}),
		mirrorQuestion("q2", "A", "B", [4]int{2, 1, -1, -2}),
	})

	// One of two questions answered: A raw = 2 within [-4, 4].
	v := n.Normalize(map[string]string{"q1": "yes"})
	assert.Equal(t, []float64{75.0, 25.0}, v)
}

func TestNormalizeIgnoresUnknownInput(t *testing.T) {
	reg := twoAxisRegistry()
	n := NewNormalizer(reg, []catalog.Question{mirrorQuestion("q1", "A", "B", [4]int{2, 1, -1, -2})})

	v := n.Normalize(map[string]string{"nope": "yes", "q1": "absolutely"})
	assert.Equal(t, []float64{50.0, 50.0}, v)
}

func TestNormalizeExtremesAndRounding(t *testing.T) {
	reg := catalog.NewRegistry([]catalog.Axis{{Name: "A"}})
	questions := []catalog.Question{
		{ID: "q1", Scores: map[catalog.Choice]map[string]int{
			catalog.Yes: {"A": 3}, catalog.SlightlyYes: {"A": 1}, catalog.SlightlyNo: {"A": 0}, catalog.No: {"A": -1},
		}},
		{ID: "q2", Scores: map[catalog.Choice]map[string]int{
			catalog.Yes: {"A": -2}, catalog.SlightlyYes: {"A": -1}, catalog.SlightlyNo: {"A": 1}, catalog.No: {"A": 2},
		}},
		{ID: "q3", Scores: map[catalog.Choice]map[string]int{
			catalog.Yes: {"A": 1}, catalog.SlightlyYes: {"A": 3}, catalog.SlightlyNo: {"A": -3}, catalog.No: {"A": 0},
		}},
	}
	n := NewNormalizer(reg, questions)

	maxAnswers := map[string]string{"q1": "yes", "q2": "no", "q3": "slightly_yes"}
	minAnswers := map[string]string{"q1": "no", "q2": "yes", "q3": "slightly_no"}
	assert.Equal(t, 100.0, n.Normalize(maxAnswers)[0])
	assert.Equal(t, 0.0, n.Normalize(minAnswers)[0])

	// bounds [-6, 8]; raw 2 -> 8/14*100 = 57.14...
	mid := map[string]string{"q1": "slightly_no", "q2": "no", "q3": "no", "unknown": "yes"}
	raw := n.Raw(mid)
	require.Equal(t, []float64{2}, raw)
	assert.Equal(t, 57.1, n.Normalize(mid)[0])
}

func TestSimulateStaysInRange(t *testing.T) {
	reg := twoAxisRegistry()
	n := NewNormalizer(reg, []catalog.Question{
		mirrorQuestion("q1", "A", "B", [4]int{3, 1, -1, -3}),
		mirrorQuestion("q2", "A", "B", [4]int{-2, -1, 1, 2}),
	})
	rng := NewRand(7)
	dst := make([]float64, reg.Len())
	for i := 0; i < 500; i++ {
		n.Simulate(rng, dst)
		for _, v := range dst {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
		// mirrored axes always sum to 100
		assert.InDelta(t, 100.0, dst[0]+dst[1], 0.11)
	}
}

func TestSeededRandIsReproducible(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
	assert.Equal(t, a.Float64(), b.Float64())
}
