package calibration

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Tunables control one calibration run.
type Tunables struct {
	SampleCount          int     `json:"sample_count" yaml:"sample_count" validate:"gt=0"`
	Iterations           int     `json:"iterations" yaml:"iterations" validate:"gt=0"`
	LearningRate         float64 `json:"learning_rate" yaml:"learning_rate" validate:"gt=0"`
	RegularizationWeight float64 `json:"regularization_weight" yaml:"regularization_weight" validate:"gte=0,lte=1"`
	// Workers splits nearest-archetype assignment across goroutines. 0 or 1 runs inline.
	Workers int `json:"workers" yaml:"workers" validate:"gte=0"`
}

// DefaultTunables returns the production settings.
func DefaultTunables() Tunables {
	return Tunables{
		SampleCount:          5000,
		Iterations:           100,
		LearningRate:         0.1,
		RegularizationWeight: 0.03,
		Workers:              4,
	}
}

func (t Tunables) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid calibration tunables: %w", err)
	}
	return nil
}

// Overrides replaces individual tunables for a single run.
type Overrides struct {
	SampleCount          *int     `json:"sample_count,omitempty"`
	Iterations           *int     `json:"iterations,omitempty"`
	LearningRate         *float64 `json:"learning_rate,omitempty"`
	RegularizationWeight *float64 `json:"regularization_weight,omitempty"`
}

// With returns t with every non-nil override applied.
func (t Tunables) With(o *Overrides) Tunables {
	if o == nil {
		return t
	}
	if o.SampleCount != nil {
		t.SampleCount = *o.SampleCount
	}
	if o.Iterations != nil {
		t.Iterations = *o.Iterations
	}
	if o.LearningRate != nil {
		t.LearningRate = *o.LearningRate
	}
	if o.RegularizationWeight != nil {
		t.RegularizationWeight = *o.RegularizationWeight
	}
	return t
}
