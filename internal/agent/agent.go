// Package agent drives the collection loop: one cycle per interval, each
// cycle fanned out by the collector, then published to the exporter and
// recorded in the optional history store.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/edgewatch/internal/collect"
	"github.com/HerbHall/edgewatch/internal/export"
	"github.com/HerbHall/edgewatch/internal/source"
	"github.com/HerbHall/edgewatch/internal/store"
)

// Agent periodically collects metrics from a fixed source set.
type Agent struct {
	collector *collect.Collector
	sources   []source.Descriptor
	exporter  *export.Exporter
	store     *store.SQLiteStore // nil when persistence is disabled
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	cancel    context.CancelFunc
}

// New creates an Agent. timeout bounds one full collection cycle; it should
// comfortably exceed the fetcher's per-request deadline.
func New(collector *collect.Collector, sources []source.Descriptor, exporter *export.Exporter,
	st *store.SQLiteStore, interval, timeout time.Duration, logger *zap.Logger) *Agent {
	return &Agent{
		collector: collector,
		sources:   sources,
		exporter:  exporter,
		store:     st,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run executes an immediate startup cycle, then one cycle per interval until
// the context is cancelled. It returns a non-nil error only on a contract
// violation inside the collector; ordinary source failures just thin out the
// published snapshots.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	enabled := 0
	for _, d := range a.sources {
		if d.Enabled {
			enabled++
		}
	}
	a.logger.Info("agent starting",
		zap.Int("sources", len(a.sources)),
		zap.Int("enabled", enabled),
		zap.Duration("interval", a.interval),
	)

	// Startup check: a fully dark platform is worth a warning, but the
	// services may simply not be up yet, so keep going.
	if err := a.RunCycle(ctx); err != nil {
		return err
	}
	if snap, _ := a.exporter.Latest(); snap == nil {
		a.logger.Warn("startup cycle produced no data")
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent shutting down")
			return nil
		case <-ticker.C:
			if err := a.RunCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop signals the agent to shut down.
func (a *Agent) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// RunCycle performs a single collection cycle. An empty cycle publishes
// nothing: the previous snapshot stays exported rather than flapping to
// zeroes, and nothing is written to the store.
func (a *Agent) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	started := time.Now()
	snap, err := a.collector.Collect(cycleCtx, a.sources)
	if err != nil {
		a.logger.Error("collection cycle aborted", zap.Error(err))
		return err
	}
	if snap == nil {
		a.logger.Debug("no data this cycle", zap.Duration("elapsed", time.Since(started)))
		return nil
	}

	a.exporter.Publish(snap, started)
	a.logger.Debug("cycle complete",
		zap.Int("metrics", len(snap)),
		zap.Duration("elapsed", time.Since(started)),
	)

	if a.store != nil {
		if err := a.store.SaveSnapshot(ctx, started, snap); err != nil {
			a.logger.Warn("failed to persist snapshot", zap.Error(err))
		}
	}
	return nil
}
