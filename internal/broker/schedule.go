package broker

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Archetype/internal/store"
)

// Start launches the periodic recalibration loop when Options.Interval is set.
func (b *Broker) Start(ctx context.Context) {
	if b.opts.Interval <= 0 {
		return
	}
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.stopped {
		return
	}
	b.wg.Add(1)
	go b.scheduleLoop(ctx)
}

func (b *Broker) scheduleLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.scheduledRun(ctx)
		}
	}
}

func (b *Broker) scheduledRun(ctx context.Context) {
	cat, err := b.store.GetCatalog(ctx)
	if err != nil {
		b.logger.Error("failed to load catalog for scheduled calibration", "error", err)
		return
	}
	if !cat.Ready() {
		b.logger.Debug("scheduled calibration skipped, catalog not configured")
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()
	if _, err := b.Recalibrate(runCtx, store.TriggerSchedule, nil); err != nil {
		b.logger.Error("scheduled calibration failed", "error", err)
	}
}
