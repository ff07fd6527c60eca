// Package scoring normalizes questionnaire answers and matches them to archetypes.
package scoring

import (
	"log/slog"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// Result is the complete outcome of scoring one answer set.
type Result struct {
	Scores    map[string]float64 `json:"scores"`
	Vector    []float64          `json:"-"`
	Archetype *Match             `json:"archetype"`
	Policy    Policy             `json:"policy"`
}

// Scorer runs normalization followed by matching.
type Scorer struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewScorer creates a Scorer that matches with the given Matcher.
func NewScorer(matcher *Matcher, logger *slog.Logger) *Scorer {
	return &Scorer{matcher: matcher, logger: logger}
}

func (s *Scorer) Policy() Policy { return s.matcher.Policy() }

// Score normalizes answers against cat and selects the closest archetype.
// cat is read only.
func (s *Scorer) Score(cat *catalog.Catalog, answers map[string]string) (*Result, error) {
	if len(answers) == 0 {
		return nil, ErrInvalidInput
	}
	if !cat.Ready() {
		return nil, ErrConfigurationMissing
	}

	reg := cat.Registry()
	vec := NewNormalizer(reg, cat.Questions).Normalize(answers)

	match, err := s.matcher.Match(vec, reg, cat.Archetypes)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("answers scored",
		"answers", len(answers),
		"archetype_id", match.ArchetypeID,
		"distance", match.Distance,
		"tie_set", len(match.TieSet),
		"calibrated", match.Calibrated,
	)

	return &Result{
		Scores:    reg.Map(vec),
		Vector:    vec,
		Archetype: match,
		Policy:    s.matcher.Policy(),
	}, nil
}
