package provider

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
)

// Indicator is a named statistic requested from a data source.
type Indicator struct {
	Label string
	Code  string
	Unit  string
}

// CityIndicator is the housing value shown for every city with a region.
var CityIndicator = Indicator{Label: "Home Value (SFR)", Code: "ZSFH"}

// MetroIndicators are requested in order until the first one without data.
var MetroIndicators = []Indicator{
	{Label: "Sale Price (SFR)", Code: "SSSM"},
	{Label: "Rent (all homes)", Code: "RSNA"},
	{Label: "List Price (SFR)", Code: "LSSM"},
}

// RegionResolver resolves housing regions for a city and its metro.
type RegionResolver interface {
	ResolveCityRegion(city, state string) (domain.CityRegion, error)
	ResolveMetroRegion(ctx context.Context, cityPoint geo.Point, state, label string) (domain.MetroRegion, error)
}

// HousingSource returns the latest value of an indicator for a region, or nil without data.
type HousingSource interface {
	Latest(ctx context.Context, indicator string, regionID int) (*float64, error)
}

// Housing builds the housing price panel.
type Housing struct {
	resolver RegionResolver
	source   HousingSource
	logger   *slog.Logger
}

// NewHousing creates the housing provider.
func NewHousing(resolver RegionResolver, source HousingSource, logger *slog.Logger) *Housing {
	return &Housing{resolver: resolver, source: source, logger: logger}
}

func (h *Housing) Domain() domain.PanelDomain { return domain.Housing }

func (h *Housing) Fetch(ctx context.Context, actx domain.AggregationContext) (*domain.Table, error) {
	place := actx.Place

	region, err := h.resolver.ResolveCityRegion(place.City, place.State)
	if err != nil {
		return nil, err
	}

	value, err := h.source.Latest(ctx, CityIndicator.Code, region.RegionID)
	if err != nil {
		return nil, err
	}

	table := &domain.Table{Class: domain.Housing.TableClass()}
	table.Rows = append(table.Rows, []string{CityIndicator.Label, dollars(value)})

	if actx.Point == nil {
		return table, nil
	}

	metro, err := h.resolver.ResolveMetroRegion(ctx, *actx.Point, place.State, region.Metro)
	if err != nil {
		h.logger.Info("metro region not resolved", "place", place.String(), "metro", region.Metro, "error", err)
		return table, nil
	}

	for _, ind := range MetroIndicators {
		v, err := h.source.Latest(ctx, ind.Code, metro.RegionID)
		if err != nil {
			h.logger.Warn("metro indicator fetch failed", "indicator", ind.Code, "region_id", metro.RegionID, "error", err)
			break
		}
		if v == nil {
			break
		}
		table.Rows = append(table.Rows, []string{ind.Label, dollars(v)})
	}

	table.Rows = append(table.Rows,
		[]string{"City metro: " + region.Metro, ""},
		[]string{"Metro: " + metro.Name + ", " + metro.State, ""},
	)
	return table, nil
}

func dollars(v *float64) string {
	if v == nil {
		return ""
	}
	return "$" + domain.FormatNumber(*v)
}
