package hermes

import "time"

type CatalogSavedEvent struct {
	Axes        int       `json:"axes"`
	Questions   int       `json:"questions"`
	Archetypes  int       `json:"archetypes"`
	AssignedIDs int       `json:"assigned_ids"`
	Calibrated  bool      `json:"calibrated"`
	Public      bool      `json:"public"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CatalogCalibratedEvent struct {
	RunID      string `json:"run_id"`
	Trigger    string `json:"trigger"`
	Skipped    bool   `json:"skipped"`
	Samples    int    `json:"samples"`
	Iterations int    `json:"iterations"`
	Archetypes int    `json:"archetypes"`
	Dead       int    `json:"dead"`
	DurationMs int64  `json:"duration_ms"`
}

// ResultScoredEvent carries no answers, only the outcome.
type ResultScoredEvent struct {
	ArchetypeID string    `json:"archetype_id"`
	Distance    float64   `json:"distance"`
	Similarity  float64   `json:"similarity"`
	Policy      string    `json:"policy"`
	Calibrated  bool      `json:"calibrated"`
	Timestamp   time.Time `json:"timestamp"`
}

// CalibrationRequestEvent asks a running server to recalibrate the stored
// catalog. Unset fields keep the configured tunables.
type CalibrationRequestEvent struct {
	SampleCount          *int     `json:"sample_count,omitempty"`
	Iterations           *int     `json:"iterations,omitempty"`
	LearningRate         *float64 `json:"learning_rate,omitempty"`
	RegularizationWeight *float64 `json:"regularization_weight,omitempty"`
	RequestedBy          string   `json:"requested_by,omitempty"`
}
