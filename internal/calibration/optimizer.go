// Package calibration derives per-archetype comparison vectors that spread a
// simulated respondent population evenly across archetypes while staying close
// to each archetype's authored raw profile.
package calibration

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
)

const (
	anchorSpread = 25.0
	minStd       = 1e-12
)

// IterationStats is handed to the OnIteration hook after each assignment pass.
type IterationStats struct {
	Iteration int
	Counts    []int
	Classes   []Class
}

// Report summarizes a calibration run.
type Report struct {
	RunID       string        `json:"run_id"`
	Skipped     bool          `json:"skipped"`
	Samples     int           `json:"samples"`
	Iterations  int           `json:"iterations"`
	Archetypes  int           `json:"archetypes"`
	FinalCounts []int         `json:"final_counts,omitempty"`
	Dead        int           `json:"dead"`
	Duration    time.Duration `json:"duration_ns"`
}

type Optimizer struct {
	tunables    Tunables
	rng         scoring.Rand
	logger      *slog.Logger
	onIteration func(IterationStats)
}

func NewOptimizer(t Tunables, rng scoring.Rand, logger *slog.Logger) (*Optimizer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = scoring.SystemRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{tunables: t, rng: rng, logger: logger}, nil
}

// OnIteration registers a hook called once per iteration with the counts
// observed before vectors are moved.
func (o *Optimizer) OnIteration(fn func(IterationStats)) {
	o.onIteration = fn
}

func (o *Optimizer) Tunables() Tunables { return o.tunables }

// Calibrate writes CalibratedScores onto every archetype of cat. A catalog
// without axes, questions or archetypes is left untouched.
func (o *Optimizer) Calibrate(cat *catalog.Catalog) *Report {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	if !cat.Ready() {
		report.Skipped = true
		return report
	}

	reg := cat.Registry()
	d := reg.Len()
	k := len(cat.Archetypes)
	n := o.tunables.SampleCount

	anchor, flat := anchors(reg, cat.Archetypes)
	work := make([]float64, len(anchor))
	copy(work, anchor)

	samples := Simulate(scoring.NewNormalizer(reg, cat.Questions), o.rng, n)
	centroid := meanRows(samples, d)
	target := float64(n) / float64(k)

	var last assignment
	for it := 0; it < o.tunables.Iterations; it++ {
		last = assign(samples, d, work, k, o.tunables.Workers)
		classes := make([]Class, k)
		for i, c := range last.counts {
			classes[i] = Classify(c, target)
		}
		if o.onIteration != nil {
			o.onIteration(IterationStats{Iteration: it, Counts: append([]int(nil), last.counts...), Classes: classes})
		}
		o.relax(work, anchor, flat, d, last, centroid, classes, target)
	}

	names := reg.Names()
	for i := range cat.Archetypes {
		scores := make(map[string]float64, d)
		for j, name := range names {
			scores[name] = round1(work[i*d+j])
		}
		cat.Archetypes[i].CalibratedScores = scores
	}

	report.Samples = n
	report.Iterations = o.tunables.Iterations
	report.Archetypes = k
	report.FinalCounts = last.counts
	for _, c := range last.counts {
		if c == 0 {
			report.Dead++
		}
	}
	report.Duration = time.Since(start)

	o.logger.Info("calibration complete",
		"run_id", report.RunID,
		"archetypes", k,
		"axes", d,
		"samples", n,
		"iterations", report.Iterations,
		"dead", report.Dead,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report
}

// relax applies one balancing step. Axes in flat stay pinned at the midpoint.
func (o *Optimizer) relax(work, anchor []float64, flat []bool, d int, a assignment, centroid []float64, classes []Class, target float64) {
	lr := o.tunables.LearningRate
	sub := make([]float64, d)
	for i, class := range classes {
		v := work[i*d : (i+1)*d]
		c := float64(a.counts[i])
		switch class {
		case ClassDead:
			moveToward(v, centroid, 2*lr)
		case ClassUnder:
			a.centroid(i, d, sub)
			moveToward(v, sub, lr*(1-c/target))
		case ClassOver:
			a.centroid(i, d, sub)
			moveToward(v, sub, -lr*(c/target-1))
		}
		moveToward(v, anchor[i*d:(i+1)*d], o.tunables.RegularizationWeight)
		for j := range v {
			if flat[j] {
				v[j] = scoring.Midpoint
				continue
			}
			v[j] = clamp(v[j], 0, 100)
		}
	}
}

// moveToward shifts v by rate*(target-v). A negative rate pushes v away.
func moveToward(v, target []float64, rate float64) {
	for j := range v {
		v[j] += rate * (target[j] - v[j])
	}
}

// Anchors maps each archetype's raw scores to z-scores per axis, then to
// 50 + 25z clipped to [0, 100]. Axes with no spread anchor at 50.
// The result is row-major: archetype i, axis j at i*d+j.
func Anchors(reg *catalog.Registry, archetypes []catalog.Archetype) []float64 {
	out, _ := anchors(reg, archetypes)
	return out
}

// anchors also reports which axes have no spread across archetypes.
func anchors(reg *catalog.Registry, archetypes []catalog.Archetype) ([]float64, []bool) {
	d, k := reg.Len(), len(archetypes)
	out := make([]float64, k*d)
	flat := make([]bool, d)
	col := make([]float64, k)
	for j, name := range reg.Names() {
		for i := range archetypes {
			col[i] = archetypes[i].Raw(name)
		}
		mean, std := meanStd(col)
		flat[j] = std < minStd
		for i, v := range col {
			if flat[j] {
				out[i*d+j] = scoring.Midpoint
				continue
			}
			out[i*d+j] = clamp((v-mean)/std*anchorSpread+scoring.Midpoint, 0, 100)
		}
	}
	return out, flat
}

// Simulate draws n respondents answering every question uniformly at random
// and returns their normalized vectors row-major.
func Simulate(norm *scoring.Normalizer, rng scoring.Rand, n int) []float64 {
	d := norm.Registry().Len()
	out := make([]float64, n*d)
	for s := 0; s < n; s++ {
		norm.Simulate(rng, out[s*d:(s+1)*d])
	}
	return out
}

type assignment struct {
	counts []int
	sums   []float64
}

func newAssignment(k, d int) assignment {
	return assignment{counts: make([]int, k), sums: make([]float64, k*d)}
}

func (a assignment) merge(b assignment) {
	for i, c := range b.counts {
		a.counts[i] += c
	}
	for i, s := range b.sums {
		a.sums[i] += s
	}
}

// centroid writes the mean of the samples assigned to archetype i into dst.
func (a assignment) centroid(i, d int, dst []float64) {
	c := float64(a.counts[i])
	for j := 0; j < d; j++ {
		if c == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = a.sums[i*d+j] / c
	}
}

// assign gives each sample to its nearest archetype vector, first in order on
// ties. Samples are split into contiguous chunks handled by separate goroutines
// and merged in chunk order, so the result does not depend on scheduling.
func assign(samples []float64, d int, vectors []float64, k, workers int) assignment {
	n := 0
	if d > 0 {
		n = len(samples) / d
	}
	chunks := workers
	if chunks > n {
		chunks = n
	}
	if chunks < 1 {
		chunks = 1
	}
	if chunks == 1 {
		return assignRange(samples, d, vectors, k)
	}

	size := (n + chunks - 1) / chunks
	partial := make([]assignment, chunks)
	var g errgroup.Group
	for c := 0; c < chunks; c++ {
		lo, hi := c*size, min((c+1)*size, n)
		if lo >= hi {
			partial[c] = newAssignment(k, d)
			continue
		}
		g.Go(func() error {
			partial[c] = assignRange(samples[lo*d:hi*d], d, vectors, k)
			return nil
		})
	}
	_ = g.Wait()

	out := newAssignment(k, d)
	for _, p := range partial {
		out.merge(p)
	}
	return out
}

func assignRange(samples []float64, d int, vectors []float64, k int) assignment {
	out := newAssignment(k, d)
	for off := 0; off+d <= len(samples); off += d {
		s := samples[off : off+d]
		best, bestDist := 0, math.Inf(1)
		for i := 0; i < k; i++ {
			dist := scoring.SquaredDistance(s, vectors[i*d:(i+1)*d])
			if dist < bestDist {
				best, bestDist = i, dist
			}
		}
		out.counts[best]++
		row := out.sums[best*d : (best+1)*d]
		for j, v := range s {
			row[j] += v
		}
	}
	return out
}

func meanRows(rows []float64, d int) []float64 {
	out := make([]float64, d)
	if d == 0 || len(rows) == 0 {
		return out
	}
	n := len(rows) / d
	for off := 0; off < n*d; off += d {
		for j := 0; j < d; j++ {
			out[j] += rows[off+j]
		}
	}
	for j := range out {
		out[j] /= float64(n)
	}
	return out
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func (r *Report) String() string {
	if r.Skipped {
		return fmt.Sprintf("calibration %s skipped: catalog not configured", r.RunID)
	}
	return fmt.Sprintf("calibration %s: %d archetypes, %d samples, %d iterations, %d dead",
		r.RunID, r.Archetypes, r.Samples, r.Iterations, r.Dead)
}
