package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/city-info-service/internal/coordinator"
	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/couchcryptid/city-info-service/internal/watcher"
)

// ReferenceLoader parses the static reference tables.
type ReferenceLoader interface {
	Load() error
}

// PlaceWatcher reports place changes until its context is cancelled.
type PlaceWatcher interface {
	Run(ctx context.Context, onChange watcher.ChangeHandler) error
}

// BatchRunner fetches and renders every panel for a place.
type BatchRunner interface {
	RunBatch(ctx context.Context, place domain.Place) coordinator.BatchReport
}

// Pipeline ties the watcher to the coordinator: every detected place starts
// a batch.
type Pipeline struct {
	reference ReferenceLoader
	watcher   PlaceWatcher
	batches   BatchRunner
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(reference ReferenceLoader, w PlaceWatcher, batches BatchRunner, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		reference: reference,
		watcher:   w,
		batches:   batches,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the reference tables are loaded, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("reference data not loaded")
	}
	return nil
}

// Run loads the reference tables and then watches for places until the
// context is cancelled. Batches still running at shutdown are abandoned.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.reference.Load(); err != nil {
		return fmt.Errorf("load reference data: %w", err)
	}
	p.metrics.ReferenceLoaded.Set(1)
	p.ready.Store(true)

	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	return p.watcher.Run(ctx, p.runBatch)
}

func (p *Pipeline) runBatch(ctx context.Context, place domain.Place) {
	report := p.batches.RunBatch(ctx, place)

	counts := make(map[domain.PanelState]int)
	for _, panel := range report.Panels {
		counts[panel.State]++
	}
	p.logger.Info("batch finished",
		"place", place.String(),
		"rendered", counts[domain.Rendered],
		"skipped", counts[domain.Skipped],
		"abandoned", counts[domain.Abandoned],
		"duration", report.Duration,
	)
}
