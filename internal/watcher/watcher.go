// Package watcher polls the location source and reports place changes.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// LocationSource reports the URL currently shown.
type LocationSource interface {
	Location() string
}

// ChangeHandler receives each newly detected place.
type ChangeHandler func(ctx context.Context, place domain.Place)

// Watcher polls a LocationSource on a fixed interval. It owns the current place.
type Watcher struct {
	source   LocationSource
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics

	current  atomic.Pointer[domain.Place]
	inflight sync.WaitGroup

	// Touched only by the polling goroutine.
	polled bool
	last   *domain.Place
}

// New creates a watcher polling source every interval.
func New(source LocationSource, clock clockwork.Clock, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Watcher {
	return &Watcher{
		source:   source,
		clock:    clock,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// Current returns the place most recently observed, or nil when the location
// is not a place. Safe for concurrent use.
func (w *Watcher) Current() *domain.Place {
	return w.current.Load()
}

// IsCurrent reports whether p is still the place being shown.
func (w *Watcher) IsCurrent(p domain.Place) bool {
	cur := w.current.Load()
	return cur != nil && *cur == p
}

// Tick polls once and returns the place to announce: on the first poll that
// finds a place, or when the place differs from the previous poll. It returns
// nil when nothing changed or the location is not a place. Tick is not safe
// for concurrent use and must not be called while Run is active.
func (w *Watcher) Tick() *domain.Place {
	var next *domain.Place
	p, err := domain.ExtractPlace(w.source.Location())
	if err == nil {
		next = &p
	}

	if w.polled && samePlace(w.last, next) {
		return nil
	}
	w.polled = true
	w.last = next
	w.current.Store(next)

	if next == nil {
		w.logger.Debug("location is not a place", "error", err)
		return nil
	}
	return next
}

// Run polls until ctx is cancelled. The first poll happens immediately. The
// handler runs on its own goroutine and polling never waits for it; Run only
// waits for running handlers after ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange ChangeHandler) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", "interval", w.interval)
	w.poll(ctx, onChange)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			w.inflight.Wait()
			return nil
		case <-ticker.Chan():
			w.poll(ctx, onChange)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, onChange ChangeHandler) {
	place := w.Tick()
	if place == nil {
		return
	}
	w.metrics.PlacesDetected.Inc()
	w.logger.Info("place detected", "city", place.City, "state", place.State)
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		onChange(ctx, *place)
	}()
}

func samePlace(a, b *domain.Place) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
