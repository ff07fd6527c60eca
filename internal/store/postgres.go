package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
)

// catalogKey is the primary key of the single catalog row.
const catalogKey = "default"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS archetype_catalog (
			key        TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS archetype_calibration_runs (
			run_id      UUID PRIMARY KEY,
			trigger     TEXT NOT NULL,
			skipped     BOOLEAN NOT NULL DEFAULT FALSE,
			samples     INTEGER NOT NULL DEFAULT 0,
			iterations  INTEGER NOT NULL DEFAULT 0,
			archetypes  INTEGER NOT NULL DEFAULT 0,
			dead        INTEGER NOT NULL DEFAULT 0,
			error       TEXT,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_archetype_calibration_runs_started
			ON archetype_calibration_runs (started_at DESC)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var doc []byte
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT document, updated_at FROM archetype_catalog WHERE key = $1`, catalogKey,
	).Scan(&doc, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cat := &catalog.Catalog{}
	if err := json.Unmarshal(doc, cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	cat.UpdatedAt = updatedAt
	return cat, nil
}

// SaveCatalog upserts the catalog document. Concurrent saves are last-writer-wins.
func (s *PostgresStore) SaveCatalog(ctx context.Context, cat *catalog.Catalog) error {
	cat.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO archetype_catalog (key, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		catalogKey, doc, cat.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) RecordCalibration(ctx context.Context, run *CalibrationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	var runErr *string
	if run.Error != "" {
		runErr = &run.Error
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO archetype_calibration_runs
			(run_id, trigger, skipped, samples, iterations, archetypes, dead, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Trigger, run.Skipped, run.Samples, run.Iterations, run.Archetypes, run.Dead,
		runErr, run.StartedAt, run.FinishedAt,
	)
	return err
}

func (s *PostgresStore) ListCalibrations(ctx context.Context, limit int) ([]*CalibrationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, trigger, skipped, samples, iterations, archetypes, dead, error, started_at, finished_at
		FROM archetype_calibration_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*CalibrationRun
	for rows.Next() {
		r := &CalibrationRun{}
		var runErr *string
		if err := rows.Scan(&r.ID, &r.Trigger, &r.Skipped, &r.Samples, &r.Iterations,
			&r.Archetypes, &r.Dead, &runErr, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if runErr != nil {
			r.Error = *runErr
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
