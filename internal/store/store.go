package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// CalibrationRun is one persisted calibration outcome.
type CalibrationRun struct {
	ID         uuid.UUID `json:"id"`
	Trigger    string    `json:"trigger"`
	Skipped    bool      `json:"skipped"`
	Samples    int       `json:"samples"`
	Iterations int       `json:"iterations"`
	Archetypes int       `json:"archetypes"`
	Dead       int       `json:"dead"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const (
	TriggerSave     = "save"
	TriggerManual   = "manual"
	TriggerEvent    = "event"
	TriggerSchedule = "schedule"
)

type Store interface {
	// GetCatalog returns nil, nil when no catalog has been saved yet.
	GetCatalog(ctx context.Context) (*catalog.Catalog, error)
	// SaveCatalog replaces the stored catalog wholesale and stamps UpdatedAt.
	SaveCatalog(ctx context.Context, cat *catalog.Catalog) error

	RecordCalibration(ctx context.Context, run *CalibrationRun) error
	ListCalibrations(ctx context.Context, limit int) ([]*CalibrationRun, error)

	Close() error
}
