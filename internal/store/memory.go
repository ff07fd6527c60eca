package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// MemoryStore keeps everything in process. It backs the CLI and tests, and
// the server when no database URL is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	cat  *catalog.Catalog
	runs []*CalibrationRun
}

func NewMemoryStore(initial *catalog.Catalog) *MemoryStore {
	return &MemoryStore{cat: initial.Clone()}
}

func (m *MemoryStore) GetCatalog(_ context.Context) (*catalog.Catalog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cat.Clone(), nil
}

func (m *MemoryStore) SaveCatalog(_ context.Context, cat *catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat.UpdatedAt = time.Now().UTC()
	m.cat = cat.Clone()
	return nil
}

func (m *MemoryStore) RecordCalibration(_ context.Context, run *CalibrationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *MemoryStore) ListCalibrations(_ context.Context, limit int) ([]*CalibrationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*CalibrationRun, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
