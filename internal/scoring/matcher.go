package scoring

import (
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// Policy selects how a user vector is compared with archetype vectors.
type Policy string

const (
	// PolicyEuclidean picks the nearest archetype, preferring calibrated vectors,
	// and breaks exact ties uniformly at random.
	PolicyEuclidean Policy = "euclidean"
	// PolicyCosine reproduces the legacy behaviour: cosine similarity against
	// rescaled raw profiles, first best wins.
	PolicyCosine Policy = "cosine"
)

// ParsePolicy accepts "euclidean" (also the empty string) and "cosine".
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyEuclidean:
		return PolicyEuclidean, nil
	case PolicyCosine:
		return PolicyCosine, nil
	}
	return "", fmt.Errorf("unknown matching policy %q", s)
}

// Candidate is an archetype projected onto the canonical axis order.
type Candidate struct {
	ID     string
	Name   string
	Vector []float64
}

// RescaleRaw maps the authored 1-10 scale onto 0-100.
func RescaleRaw(v float64) float64 {
	return (v - 1) / 9 * 100
}

// RawVectors projects every archetype by rescaling its raw profile.
func RawVectors(reg *catalog.Registry, archetypes []catalog.Archetype) []Candidate {
	out := make([]Candidate, len(archetypes))
	for i := range archetypes {
		a := &archetypes[i]
		v := make([]float64, reg.Len())
		for ai := range v {
			v[ai] = RescaleRaw(a.Raw(reg.Name(ai)))
		}
		out[i] = Candidate{ID: a.ID, Name: a.Name, Vector: v}
	}
	return out
}

// ComparisonVectors projects archetypes for matching. Calibrated vectors are used
// only when every archetype carries a value for every axis; otherwise the whole
// set falls back to raw rescaling so all candidates share one scale.
func ComparisonVectors(reg *catalog.Registry, archetypes []catalog.Archetype) ([]Candidate, bool) {
	if !fullyCalibrated(reg, archetypes) {
		return RawVectors(reg, archetypes), false
	}
	out := make([]Candidate, len(archetypes))
	for i := range archetypes {
		a := &archetypes[i]
		v := make([]float64, reg.Len())
		for ai := range v {
			v[ai] = a.CalibratedScores[reg.Name(ai)]
		}
		out[i] = Candidate{ID: a.ID, Name: a.Name, Vector: v}
	}
	return out, true
}

func fullyCalibrated(reg *catalog.Registry, archetypes []catalog.Archetype) bool {
	if len(archetypes) == 0 {
		return false
	}
	for i := range archetypes {
		if !archetypes[i].HasCalibration() {
			return false
		}
		for _, name := range reg.Names() {
			if _, ok := archetypes[i].CalibratedScores[name]; !ok {
				return false
			}
		}
	}
	return true
}

// SquaredDistance is the squared Euclidean distance between equal-length vectors.
func SquaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Cosine returns the cosine similarity of a and b, or 0 if either has zero magnitude.
func Cosine(a, b []float64) float64 {
	var dot, ma, mb float64
	for i := range a {
		dot += a[i] * b[i]
		ma += a[i] * a[i]
		mb += b[i] * b[i]
	}
	if ma == 0 || mb == 0 {
		return 0
	}
	return dot / (math.Sqrt(ma) * math.Sqrt(mb))
}

// Match is the outcome of comparing one user vector with the archetype set.
type Match struct {
	ArchetypeID   string    `json:"id"`
	ArchetypeName string    `json:"name"`
	Distance      float64   `json:"distance"`
	Similarity    float64   `json:"similarity"`
	TieSet        []string  `json:"tie_set,omitempty"`
	Calibrated    bool      `json:"calibrated"`
	UserVector    []float64 `json:"-"`
}

// Matcher selects the closest archetype for a normalized user vector.
type Matcher struct {
	policy Policy
	rng    Rand
}

// NewMatcher builds a matcher. A nil rng uses SystemRand.
func NewMatcher(policy Policy, rng Rand) *Matcher {
	if policy == "" {
		policy = PolicyEuclidean
	}
	if rng == nil {
		rng = SystemRand()
	}
	return &Matcher{policy: policy, rng: rng}
}

func (m *Matcher) Policy() Policy { return m.policy }

// Match compares user, laid out in reg order, with every archetype.
func (m *Matcher) Match(user []float64, reg *catalog.Registry, archetypes []catalog.Archetype) (*Match, error) {
	if len(archetypes) == 0 {
		return nil, ErrNoCandidates
	}
	if len(user) != reg.Len() {
		return nil, &Error{
			Kind:    KindInvalidInput,
			Message: fmt.Sprintf("user vector has %d axes, registry has %d", len(user), reg.Len()),
		}
	}
	if m.policy == PolicyCosine {
		return m.matchCosine(user, reg, archetypes), nil
	}
	return m.matchEuclidean(user, reg, archetypes), nil
}

func (m *Matcher) matchEuclidean(user []float64, reg *catalog.Registry, archetypes []catalog.Archetype) *Match {
	cands, calibrated := ComparisonVectors(reg, archetypes)

	best := math.Inf(1)
	var ties []int
	for i, c := range cands {
		d := SquaredDistance(user, c.Vector)
		switch {
		case d < best:
			best = d
			ties = append(ties[:0], i)
		case d == best:
			ties = append(ties, i)
		}
	}

	pick := ties[0]
	if len(ties) > 1 {
		pick = ties[m.rng.IntN(len(ties))]
	}

	dist := math.Sqrt(best)
	sim := 100.0
	if reg.Len() > 0 {
		sim = round1(100 * (1 - dist/(100*math.Sqrt(float64(reg.Len())))))
	}

	match := &Match{
		ArchetypeID:   cands[pick].ID,
		ArchetypeName: cands[pick].Name,
		Distance:      round1(dist),
		Similarity:    sim,
		Calibrated:    calibrated,
		UserVector:    user,
	}
	if len(ties) > 1 {
		for _, i := range ties {
			match.TieSet = append(match.TieSet, cands[i].ID)
		}
	}
	return match
}

func (m *Matcher) matchCosine(user []float64, reg *catalog.Registry, archetypes []catalog.Archetype) *Match {
	cands := RawVectors(reg, archetypes)

	pick, best := 0, -1.0
	for i, c := range cands {
		if s := Cosine(user, c.Vector); s > best {
			best = s
			pick = i
		}
	}

	return &Match{
		ArchetypeID:   cands[pick].ID,
		ArchetypeName: cands[pick].Name,
		Distance:      round1(math.Sqrt(SquaredDistance(user, cands[pick].Vector))),
		Similarity:    round1(best * 100),
		UserVector:    user,
	}
}
