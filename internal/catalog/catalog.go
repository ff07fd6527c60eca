// Package catalog holds the diagnosis content: axes, questions and archetypes.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Choice is one of the four answers a respondent can give to a question.
type Choice string

const (
	Yes         Choice = "yes"
	SlightlyYes Choice = "slightly_yes"
	SlightlyNo  Choice = "slightly_no"
	No          Choice = "no"
)

// ChoiceCount is the number of answers every question offers.
const ChoiceCount = 4

// Choices lists every valid answer in presentation order.
var Choices = [ChoiceCount]Choice{Yes, SlightlyYes, SlightlyNo, No}

// Index returns the position of c in Choices, or -1 for an unknown value.
func (c Choice) Index() int {
	for i, v := range Choices {
		if v == c {
			return i
		}
	}
	return -1
}

func (c Choice) Valid() bool { return c.Index() >= 0 }

// Axis is one personality dimension.
type Axis struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Positive    string `json:"positive,omitempty" yaml:"positive,omitempty"`
	Negative    string `json:"negative,omitempty" yaml:"negative,omitempty"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order"`
}

// Question maps each choice to per-axis score deltas in [-3, 3].
type Question struct {
	ID        string                    `json:"id" yaml:"id"`
	Text      string                    `json:"question_text" yaml:"question_text"`
	SortOrder int                       `json:"sort_order" yaml:"sort_order"`
	Scores    map[Choice]map[string]int `json:"scores" yaml:"scores" validate:"dive,keys,oneof=yes slightly_yes slightly_no no,endkeys,dive,gte=-3,lte=3"`
}

// Delta returns the score change for answering choice on axis. Missing entries count as 0.
func (q *Question) Delta(choice Choice, axis string) int {
	return q.Scores[choice][axis]
}

// RawMidpoint is used for any axis an archetype does not define.
const RawMidpoint = 5

// Archetype is a match target. RawScores are authored on a 1-10 scale;
// CalibratedScores, when present, are owned by the calibration optimizer.
type Archetype struct {
	ID               string             `json:"id" yaml:"id"`
	Name             string             `json:"name" yaml:"name" validate:"required"`
	Description      string             `json:"description,omitempty" yaml:"description,omitempty"`
	RawScores        map[string]int     `json:"raw_scores" yaml:"raw_scores" validate:"dive,gte=1,lte=10"`
	CalibratedScores map[string]float64 `json:"calibrated_scores,omitempty" yaml:"calibrated_scores,omitempty" validate:"omitempty,dive,gte=0,lte=100"`
}

// Raw returns the authored value for axis, defaulting to RawMidpoint.
func (a *Archetype) Raw(axis string) float64 {
	if v, ok := a.RawScores[axis]; ok {
		return float64(v)
	}
	return RawMidpoint
}

func (a *Archetype) HasCalibration() bool { return len(a.CalibratedScores) > 0 }

// Catalog is an immutable-by-convention snapshot of all diagnosis content.
// Operations that change it work on a Clone.
type Catalog struct {
	Axes       []Axis      `json:"components" yaml:"components" validate:"dive"`
	Questions  []Question  `json:"questions" yaml:"questions" validate:"dive"`
	Archetypes []Archetype `json:"archetypes" yaml:"archetypes" validate:"dive"`
	Public     bool        `json:"public" yaml:"public"`
	UpdatedAt  time.Time   `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Ready reports whether all three content lists are populated.
func (c *Catalog) Ready() bool {
	return c != nil && len(c.Axes) > 0 && len(c.Questions) > 0 && len(c.Archetypes) > 0
}

// Registry returns the canonical axis ordering for this catalog.
func (c *Catalog) Registry() *Registry {
	return NewRegistry(c.Axes)
}

// AssignIDs gives a fresh UUID to every item that lacks one and returns how many were assigned.
func (c *Catalog) AssignIDs() int {
	n := 0
	for i := range c.Axes {
		if c.Axes[i].ID == "" {
			c.Axes[i].ID = uuid.NewString()
			n++
		}
	}
	for i := range c.Questions {
		if c.Questions[i].ID == "" {
			c.Questions[i].ID = uuid.NewString()
			n++
		}
	}
	for i := range c.Archetypes {
		if c.Archetypes[i].ID == "" {
			c.Archetypes[i].ID = uuid.NewString()
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	if c == nil {
		return nil
	}
	out := &Catalog{
		Axes:       append([]Axis(nil), c.Axes...),
		Questions:  make([]Question, len(c.Questions)),
		Archetypes: make([]Archetype, len(c.Archetypes)),
		Public:     c.Public,
		UpdatedAt:  c.UpdatedAt,
	}
	for i, q := range c.Questions {
		cp := q
		if q.Scores != nil {
			cp.Scores = make(map[Choice]map[string]int, len(q.Scores))
			for choice, deltas := range q.Scores {
				m := make(map[string]int, len(deltas))
				for k, v := range deltas {
					m[k] = v
				}
				cp.Scores[choice] = m
			}
		}
		out.Questions[i] = cp
	}
	for i, a := range c.Archetypes {
		cp := a
		if a.RawScores != nil {
			cp.RawScores = make(map[string]int, len(a.RawScores))
			for k, v := range a.RawScores {
				cp.RawScores[k] = v
			}
		}
		if a.CalibratedScores != nil {
			cp.CalibratedScores = make(map[string]float64, len(a.CalibratedScores))
			for k, v := range a.CalibratedScores {
				cp.CalibratedScores[k] = v
			}
		}
		out.Archetypes[i] = cp
	}
	return out
}
