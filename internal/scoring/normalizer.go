package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// Midpoint is the normalized value of an axis whose theoretical range is empty.
const Midpoint = 50.0

// Normalizer turns answer sets into bounded per-axis scores.
//
// Bounds are summed over the whole question catalog, not just the answered
// questions, so partial answer sets are scored against the full theoretical range.
type Normalizer struct {
	registry *catalog.Registry
	deltas   [][catalog.ChoiceCount][]float64
	byID     map[string]int
	min      []float64
	max      []float64
}

// NewNormalizer precomputes the per-question delta table and the catalog bounds.
func NewNormalizer(reg *catalog.Registry, questions []catalog.Question) *Normalizer {
	d := reg.Len()
	n := &Normalizer{
		registry: reg,
		deltas:   make([][catalog.ChoiceCount][]float64, len(questions)),
		byID:     make(map[string]int, len(questions)),
		min:      make([]float64, d),
		max:      make([]float64, d),
	}

	for qi := range questions {
		q := &questions[qi]
		n.byID[q.ID] = qi
		for ci, choice := range catalog.Choices {
			row := make([]float64, d)
			for ai := 0; ai < d; ai++ {
				row[ai] = float64(q.Delta(choice, reg.Name(ai)))
			}
			n.deltas[qi][ci] = row
		}
		for ai := 0; ai < d; ai++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for ci := range catalog.Choices {
				v := n.deltas[qi][ci][ai]
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
			n.min[ai] += lo
			n.max[ai] += hi
		}
	}
	return n
}

func (n *Normalizer) Registry() *catalog.Registry { return n.registry }

// Bounds returns copies of the theoretical per-axis minimum and maximum.
func (n *Normalizer) Bounds() (min, max []float64) {
	return append([]float64(nil), n.min...), append([]float64(nil), n.max...)
}

// Raw sums the deltas of the answered questions. Unknown question ids and
// invalid choices are skipped.
func (n *Normalizer) Raw(answers map[string]string) []float64 {
	raw := make([]float64, n.registry.Len())
	for qid, answer := range answers {
		qi, ok := n.byID[qid]
		if !ok {
			continue
		}
		ci := catalog.Choice(answer).Index()
		if ci < 0 {
			continue
		}
		for ai, v := range n.deltas[qi][ci] {
			raw[ai] += v
		}
	}
	return raw
}

// Normalize scores an answer set onto [0, 100] per axis, rounded to one decimal.
func (n *Normalizer) Normalize(answers map[string]string) []float64 {
	v := n.Raw(answers)
	n.scale(v)
	return v
}

// Simulate answers every question uniformly at random and writes the
// normalized result into dst, which must have Registry().Len() elements.
func (n *Normalizer) Simulate(rng Rand, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for qi := range n.deltas {
		row := n.deltas[qi][rng.IntN(catalog.ChoiceCount)]
		for ai, v := range row {
			dst[ai] += v
		}
	}
	n.scale(dst)
}

func (n *Normalizer) scale(raw []float64) {
	for ai := range raw {
		span := n.max[ai] - n.min[ai]
		if span <= 0 {
			raw[ai] = Midpoint
			continue
		}
		raw[ai] = round1(clamp((raw[ai]-n.min[ai])/span*100, 0, 100))
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
