package calibration

import (
	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
)

// Share is one archetype's slice of a simulated population.
type Share struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
	Class Class   `json:"class"`
}

// BalanceReport describes how a simulated population distributes over the
// vectors the matcher would currently compare against.
type BalanceReport struct {
	Samples    int     `json:"samples"`
	Calibrated bool    `json:"calibrated"`
	Target     float64 `json:"target"`
	Shares     []Share `json:"shares"`
	Dead       int     `json:"dead"`
	MaxShare   float64 `json:"max_share"`
	MinShare   float64 `json:"min_share"`
}

// Balance simulates samples random respondents and assigns each to its
// nearest comparison vector.
func Balance(cat *catalog.Catalog, samples, workers int, rng scoring.Rand) (*BalanceReport, error) {
	if !cat.Ready() {
		return nil, scoring.ErrConfigurationMissing
	}
	if samples <= 0 {
		return nil, &scoring.Error{Kind: scoring.KindInvalidInput, Message: "sample count must be positive"}
	}
	if rng == nil {
		rng = scoring.SystemRand()
	}

	reg := cat.Registry()
	d := reg.Len()
	cands, calibrated := scoring.ComparisonVectors(reg, cat.Archetypes)
	vectors := make([]float64, 0, len(cands)*d)
	for _, c := range cands {
		vectors = append(vectors, c.Vector...)
	}

	population := Simulate(scoring.NewNormalizer(reg, cat.Questions), rng, samples)
	a := assign(population, d, vectors, len(cands), workers)

	target := float64(samples) / float64(len(cands))
	report := &BalanceReport{
		Samples:    samples,
		Calibrated: calibrated,
		Target:     target,
		Shares:     make([]Share, len(cands)),
		MinShare:   1,
	}
	for i, c := range cands {
		share := float64(a.counts[i]) / float64(samples)
		class := Classify(a.counts[i], target)
		report.Shares[i] = Share{ID: c.ID, Name: c.Name, Count: a.counts[i], Share: share, Class: class}
		if class == ClassDead {
			report.Dead++
		}
		report.MaxShare = max(report.MaxShare, share)
		report.MinShare = min(report.MinShare, share)
	}
	return report, nil
}
