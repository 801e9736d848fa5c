package provider

import (
	"context"
	"fmt"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
)

// ElevationSource returns the elevation in meters at a point, or nil when unknown.
type ElevationSource interface {
	Elevation(ctx context.Context, p geo.Point) (*float64, error)
}

// Elevation looks up a place's elevation while a batch is prepared and renders
// it from the aggregation context.
type Elevation struct {
	source ElevationSource
}

// NewElevation creates the elevation provider.
func NewElevation(source ElevationSource) *Elevation {
	return &Elevation{source: source}
}

// Lookup returns the elevation in meters at p.
func (e *Elevation) Lookup(ctx context.Context, p geo.Point) (*float64, error) {
	return e.source.Elevation(ctx, p)
}

func (e *Elevation) Domain() domain.PanelDomain { return domain.Elevation }

func (e *Elevation) Fetch(_ context.Context, actx domain.AggregationContext) (*domain.Table, error) {
	if actx.ElevationMeters == nil {
		return nil, nil
	}

	feet := roundHalfUp(geo.MetersToFeet(*actx.ElevationMeters))
	return &domain.Table{
		Class: domain.Elevation.TableClass(),
		Rows:  [][]string{{"Elevation", fmt.Sprintf("%d ft", feet)}},
	}, nil
}
