// Package provider turns an aggregation context into the table for one panel.
// Each provider resolves the identifiers it needs, calls its data source once,
// and shapes the result. A nil table with a nil error means the place has no
// data for that panel.
package provider

import (
	"context"
	"math"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// DataProvider produces the table of one panel domain.
type DataProvider interface {
	Domain() domain.PanelDomain
	Fetch(ctx context.Context, actx domain.AggregationContext) (*domain.Table, error)
}

// roundHalfUp rounds to the nearest integer with halves toward positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
