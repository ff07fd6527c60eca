// Package broker coordinates catalog writes and calibration runs between the
// store, the optimizer and Hermes.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Archetype/internal/calibration"
	"github.com/MikeSquared-Agency/Archetype/internal/catalog"
	"github.com/MikeSquared-Agency/Archetype/internal/hermes"
	"github.com/MikeSquared-Agency/Archetype/internal/metrics"
	"github.com/MikeSquared-Agency/Archetype/internal/scoring"
	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

const runTimeout = 5 * time.Minute

type Options struct {
	Tunables        calibration.Tunables
	CalibrateOnSave bool
	// Interval enables periodic recalibration of the stored catalog. 0 disables it.
	Interval time.Duration
}

// SaveResult is what Save persisted.
type SaveResult struct {
	Catalog     *catalog.Catalog    `json:"catalog"`
	AssignedIDs int                 `json:"assigned_ids"`
	Calibration *calibration.Report `json:"calibration,omitempty"`
}

type Broker struct {
	store   store.Store
	hermes  hermes.Client
	metrics *metrics.Metrics
	opts    Options
	newRand func() scoring.Rand
	logger  *slog.Logger

	// runMu serializes every read-modify-write of the stored catalog.
	runMu sync.Mutex

	stateMu sync.Mutex
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(s store.Store, h hermes.Client, m *metrics.Metrics, opts Options, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		store:   s,
		hermes:  h,
		metrics: m,
		opts:    opts,
		newRand: scoring.SystemRand,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// SetRandSource replaces the per-run random source, for reproducible runs.
func (b *Broker) SetRandSource(fn func() scoring.Rand) {
	b.newRand = fn
}

func (b *Broker) Tunables() calibration.Tunables { return b.opts.Tunables }

// Save assigns missing IDs, validates, optionally calibrates and persists a
// replacement catalog. The caller's catalog is not modified.
func (b *Broker) Save(ctx context.Context, in *catalog.Catalog) (*SaveResult, error) {
	cat := in.Clone()
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	res := &SaveResult{Catalog: cat, AssignedIDs: cat.AssignIDs()}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	b.runMu.Lock()
	defer b.runMu.Unlock()

	if b.opts.CalibrateOnSave && cat.Ready() {
		report, err := b.calibrate(cat, store.TriggerSave, nil)
		if err != nil {
			return nil, err
		}
		res.Calibration = report
	}

	calibrated := res.Calibration != nil && !res.Calibration.Skipped
	if err := b.store.SaveCatalog(ctx, cat); err != nil {
		if calibrated {
			b.metrics.ObserveCalibration(metrics.OutcomeError, res.Calibration.Duration)
		}
		return nil, fmt.Errorf("save catalog: %w", err)
	}
	if calibrated {
		b.metrics.ObserveCalibration(metrics.OutcomeSuccess, res.Calibration.Duration)
	}
	if res.Calibration != nil {
		b.record(ctx, store.TriggerSave, res.Calibration, "")
	}

	b.logger.Info("catalog saved",
		"axes", len(cat.Axes),
		"questions", len(cat.Questions),
		"archetypes", len(cat.Archetypes),
		"assigned_ids", res.AssignedIDs,
		"calibrated", calibrated,
	)
	b.publish(hermes.SubjectCatalogSaved, hermes.CatalogSavedEvent{
		Axes:        len(cat.Axes),
		Questions:   len(cat.Questions),
		Archetypes:  len(cat.Archetypes),
		AssignedIDs: res.AssignedIDs,
		Calibrated:  calibrated,
		Public:      cat.Public,
		UpdatedAt:   cat.UpdatedAt,
	})
	return res, nil
}

// Recalibrate reruns calibration over the stored catalog and persists the
// result. An unconfigured catalog yields a skipped report and no write.
func (b *Broker) Recalibrate(ctx context.Context, trigger string, o *calibration.Overrides) (*calibration.Report, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	cat, err := b.store.GetCatalog(ctx)
	if err != nil {
		b.metrics.ObserveCalibration(metrics.OutcomeError, 0)
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	next := cat.Clone()
	report, err := b.calibrate(next, trigger, o)
	if err != nil {
		return nil, err
	}
	if report.Skipped {
		b.record(ctx, trigger, report, "catalog not configured")
		return report, nil
	}

	if err := b.store.SaveCatalog(ctx, next); err != nil {
		b.metrics.ObserveCalibration(metrics.OutcomeError, report.Duration)
		b.record(ctx, trigger, report, err.Error())
		return nil, fmt.Errorf("save calibrated catalog: %w", err)
	}
	b.metrics.ObserveCalibration(metrics.OutcomeSuccess, report.Duration)
	b.record(ctx, trigger, report, "")
	return report, nil
}

// calibrate runs the optimizer on cat in place. Callers hold runMu and count
// completed runs once the result is persisted.
func (b *Broker) calibrate(cat *catalog.Catalog, trigger string, o *calibration.Overrides) (*calibration.Report, error) {
	opt, err := calibration.NewOptimizer(b.opts.Tunables.With(o), b.newRand(), b.logger)
	if err != nil {
		b.metrics.ObserveCalibration(metrics.OutcomeError, 0)
		return nil, err
	}
	report := opt.Calibrate(cat)

	if report.Skipped {
		b.metrics.ObserveCalibration(metrics.OutcomeSkipped, 0)
		b.logger.Info("calibration skipped, catalog not configured", "trigger", trigger)
	}
	b.publish(hermes.SubjectCatalogCalibrated, hermes.CatalogCalibratedEvent{
		RunID:      report.RunID,
		Trigger:    trigger,
		Skipped:    report.Skipped,
		Samples:    report.Samples,
		Iterations: report.Iterations,
		Archetypes: report.Archetypes,
		Dead:       report.Dead,
		DurationMs: report.Duration.Milliseconds(),
	})
	return report, nil
}

func (b *Broker) record(ctx context.Context, trigger string, report *calibration.Report, errMsg string) {
	id, err := uuid.Parse(report.RunID)
	if err != nil {
		id = uuid.New()
	}
	finished := time.Now().UTC()
	run := &store.CalibrationRun{
		ID:         id,
		Trigger:    trigger,
		Skipped:    report.Skipped,
		Samples:    report.Samples,
		Iterations: report.Iterations,
		Archetypes: report.Archetypes,
		Dead:       report.Dead,
		Error:      errMsg,
		StartedAt:  finished.Add(-report.Duration),
		FinishedAt: finished,
	}
	if err := b.store.RecordCalibration(ctx, run); err != nil {
		b.logger.Warn("failed to record calibration run", "run_id", run.ID, "error", err)
	}
}

func (b *Broker) publish(subject string, evt interface{}) {
	if b.hermes == nil {
		return
	}
	if err := b.hermes.Publish(subject, evt); err != nil {
		b.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// SetupSubscriptions listens for calibration requests. Each request runs in
// its own goroutine; runs still serialize on runMu.
func (b *Broker) SetupSubscriptions() error {
	if b.hermes == nil {
		return nil
	}
	return b.hermes.Subscribe(hermes.SubjectCalibrationRequest, func(_ string, data []byte) {
		var req hermes.CalibrationRequestEvent
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				b.logger.Warn("invalid calibration request event", "error", err)
				return
			}
		}

		b.stateMu.Lock()
		if b.stopped {
			b.stateMu.Unlock()
			return
		}
		b.wg.Add(1)
		b.stateMu.Unlock()

		go func() {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()

			b.logger.Info("calibration requested", "requested_by", req.RequestedBy)
			if _, err := b.Recalibrate(ctx, store.TriggerEvent, overridesFrom(req)); err != nil {
				b.logger.Error("requested calibration failed", "error", err)
			}
		}()
	})
}

// Stop ends the schedule, rejects new requests and waits for in-flight runs.
func (b *Broker) Stop() {
	b.stateMu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.stopCh)
	}
	b.stateMu.Unlock()
	b.wg.Wait()
}

func overridesFrom(req hermes.CalibrationRequestEvent) *calibration.Overrides {
	return &calibration.Overrides{
		SampleCount:          req.SampleCount,
		Iterations:           req.Iterations,
		LearningRate:         req.LearningRate,
		RegularizationWeight: req.RegularizationWeight,
	}
}
