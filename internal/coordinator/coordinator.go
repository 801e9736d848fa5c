// Package coordinator fetches every panel for a place concurrently and renders
// them into the host document in display order.
package coordinator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/couchcryptid/city-info-service/internal/observability"
	"github.com/couchcryptid/city-info-service/internal/provider"
	"github.com/couchcryptid/city-info-service/internal/retry"
	"github.com/jonboulle/clockwork"
)

// Host is the document panels are rendered into.
type Host interface {
	// HeaderText returns the text of the place header, or false when the
	// header is not in the document yet.
	HeaderText() (string, bool)
	// HasElement reports whether an element with the given id is present.
	HasElement(id string) bool
	// InsertAfter inserts a section divider followed by the panel table after
	// the anchor element, or after the header when anchor is empty. It
	// returns the id of the inserted table.
	InsertAfter(anchor string, result domain.PanelResult) (string, error)
}

// PanelSink is notified of every rendered panel.
type PanelSink interface {
	Publish(ctx context.Context, result domain.PanelResult) error
}

// PlaceTracker reports whether a place is still the one being shown.
type PlaceTracker interface {
	IsCurrent(place domain.Place) bool
}

// Geocoder resolves a place to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, city, state string) (geo.Point, error)
}

// ElevationLookup returns the elevation in meters at a point.
type ElevationLookup interface {
	Lookup(ctx context.Context, p geo.Point) (*float64, error)
}

// Dependencies groups the collaborators of a Coordinator. Sink is optional.
type Dependencies struct {
	Host      Host
	Tracker   PlaceTracker
	Geocoder  Geocoder
	Elevation ElevationLookup
	Providers []provider.DataProvider
	Sink      PanelSink
	Clock     clockwork.Clock
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// PanelReport is the final state of one panel in a batch.
type PanelReport struct {
	Domain   domain.PanelDomain
	State    domain.PanelState
	Attempts int
	Err      error
}

// BatchReport summarizes a finished batch. Panels are in display order.
type BatchReport struct {
	Place    domain.Place
	Panels   []PanelReport
	Duration time.Duration
}

// Coordinator runs batches. Renders from every batch are serialized.
type Coordinator struct {
	deps          Dependencies
	providers     []provider.DataProvider
	renderTimeout time.Duration
	retryInterval time.Duration

	renderMu sync.Mutex
}

// New creates a Coordinator. Providers are ordered by their display domain.
func New(deps Dependencies, renderTimeout, retryInterval time.Duration) *Coordinator {
	providers := slices.Clone(deps.Providers)
	slices.SortStableFunc(providers, func(a, b provider.DataProvider) int {
		return cmp.Compare(a.Domain(), b.Domain())
	})
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		deps:          deps,
		providers:     providers,
		renderTimeout: renderTimeout,
		retryInterval: retryInterval,
	}
}

// batch holds the per-place panel states shared by the panel goroutines.
type batch struct {
	place    domain.Place
	deadline time.Time

	mu       sync.Mutex
	states   []domain.PanelState
	elements []string
}

func (b *batch) set(i int, state domain.PanelState, element string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[i] = state
	b.elements[i] = element
}

// anchor returns the element the panel at index i goes after. ok is false
// while an earlier panel is still in flight.
func (b *batch) anchor(i int) (anchor string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for j := range i {
		if !b.states[j].Terminal() {
			return "", false
		}
		if b.states[j] == domain.Rendered {
			anchor = b.elements[j]
		}
	}
	return anchor, true
}

// RunBatch fetches and renders every panel for place and waits until all of
// them have settled.
func (c *Coordinator) RunBatch(ctx context.Context, place domain.Place) BatchReport {
	started := c.deps.Clock.Now()
	b := &batch{
		place:    place,
		deadline: started.Add(c.renderTimeout),
		states:   make([]domain.PanelState, len(c.providers)),
		elements: make([]string, len(c.providers)),
	}

	actx := c.prepare(ctx, place, started)

	reports := make([]PanelReport, len(c.providers))
	var wg sync.WaitGroup
	for i, p := range c.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i] = c.runPanel(ctx, b, i, p, actx)
		}()
	}
	wg.Wait()

	duration := c.deps.Clock.Since(started)
	c.deps.Metrics.BatchDuration.Observe(duration.Seconds())
	c.deps.Logger.Info("batch settled",
		"place", place.String(),
		"duration", duration,
	)
	return BatchReport{Place: place, Panels: reports, Duration: duration}
}

// prepare resolves the inputs shared by every provider. Both lookups are
// optional: failures leave the field nil.
func (c *Coordinator) prepare(ctx context.Context, place domain.Place, started time.Time) domain.AggregationContext {
	actx := domain.AggregationContext{Place: place, StartedAt: started}

	point, err := c.deps.Geocoder.Geocode(ctx, place.City, place.State)
	if err != nil {
		c.deps.Logger.Warn("geocode failed", "place", place.String(), "error", err)
		return actx
	}
	actx.Point = &point

	if c.deps.Elevation == nil {
		return actx
	}
	meters, err := c.deps.Elevation.Lookup(ctx, point)
	if err != nil {
		c.deps.Logger.Warn("elevation lookup failed", "place", place.String(), "error", err)
		return actx
	}
	actx.ElevationMeters = meters
	return actx
}

func (c *Coordinator) runPanel(ctx context.Context, b *batch, i int, p provider.DataProvider, actx domain.AggregationContext) PanelReport {
	d := p.Domain()
	report := PanelReport{Domain: d}
	logger := c.deps.Logger.With("domain", d.String(), "place", b.place.String())

	b.set(i, domain.Fetching, "")
	start := c.deps.Clock.Now()
	table, err := p.Fetch(ctx, actx)
	c.deps.Metrics.ProviderDuration.WithLabelValues(d.String()).Observe(c.deps.Clock.Since(start).Seconds())

	if err != nil || table == nil {
		if err != nil && !errors.Is(err, domain.ErrResolutionMiss) {
			logger.Warn("provider failed", "error", err)
		} else {
			logger.Debug("provider returned no data", "error", err)
		}
		b.set(i, domain.Skipped, "")
		c.deps.Metrics.Panels.WithLabelValues(d.String(), "skipped").Inc()
		report.State, report.Err = domain.Skipped, err
		return report
	}

	b.set(i, domain.ReadyToRender, "")
	result := domain.PanelResult{Domain: d, Content: *table, Place: b.place}

	var element string
	attempts, err := retry.Until(ctx, c.deps.Clock, retry.Fixed(c.retryInterval, b.deadline), func() (bool, error) {
		id, done, err := c.tryRender(b, i, result)
		element = id
		return done, err
	})
	report.Attempts = attempts
	c.deps.Metrics.RenderAttempts.Observe(float64(attempts))

	if err != nil {
		outcome := "failed"
		switch {
		case errors.Is(err, retry.ErrDeadlineExceeded):
			err = fmt.Errorf("%w after %s", domain.ErrRenderTimeout, c.renderTimeout)
			outcome = "timeout"
		case errors.Is(err, domain.ErrStaleResult):
			outcome = "stale"
		}
		logger.Info("panel abandoned", "error", err, "attempts", attempts)
		b.set(i, domain.Abandoned, "")
		c.deps.Metrics.Panels.WithLabelValues(d.String(), outcome).Inc()
		report.State, report.Err = domain.Abandoned, err
		return report
	}

	c.deps.Metrics.Panels.WithLabelValues(d.String(), "rendered").Inc()
	logger.Debug("panel rendered", "element", element, "attempts", attempts)
	report.State = domain.Rendered

	if c.deps.Sink != nil {
		if err := c.deps.Sink.Publish(ctx, result); err != nil {
			logger.Warn("panel publish failed", "error", err)
		}
	}
	return report
}

// tryRender checks the render gate for the panel at index i and renders it
// when the gate is open. The check and the insertion happen under one lock so
// that the document cannot change between them.
func (c *Coordinator) tryRender(b *batch, i int, result domain.PanelResult) (string, bool, error) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if !c.deps.Tracker.IsCurrent(b.place) {
		return "", false, domain.ErrStaleResult
	}

	anchor, ok := b.anchor(i)
	if !ok || !c.anchorPresent(anchor, b.place) {
		return "", false, nil
	}

	id, err := c.deps.Host.InsertAfter(anchor, result)
	if err != nil {
		return "", false, fmt.Errorf("insert %s panel: %w", result.Domain, err)
	}
	b.set(i, domain.Rendered, id)
	return id, true, nil
}

func (c *Coordinator) anchorPresent(anchor string, place domain.Place) bool {
	if anchor != "" {
		return c.deps.Host.HasElement(anchor)
	}
	header, ok := c.deps.Host.HeaderText()
	return ok && domain.StripDiacritics(strings.TrimSpace(header)) == place.City
}
