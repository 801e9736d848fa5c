package provider

import (
	"context"
	"fmt"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// DemographicIndicators are the ACS profile variables shown, in display order.
var DemographicIndicators = []Indicator{
	{Label: "Population", Code: "DP05_0001E"},
	{Label: "Median property value", Code: "DP04_0089E"},
	{Label: "Median household income", Code: "DP03_0062E"},
	{Label: "Unemployment rate", Code: "DP03_0005PE", Unit: "%"},
	{Label: "Bachelor's degree or higher", Code: "DP02_0068PE", Unit: "%"},
	{Label: "Below 18", Code: "DP05_0019PE", Unit: "%"},
	{Label: "Over 65", Code: "DP05_0024PE", Unit: "%"},
	{Label: "White (not Hispanic)", Code: "DP05_0077PE", Unit: "%"},
	{Label: "Black", Code: "DP05_0038PE", Unit: "%"},
	{Label: "Asian", Code: "DP05_0044PE", Unit: "%"},
	{Label: "Hispanic", Code: "DP05_0071PE", Unit: "%"},
}

// CodeResolver resolves census codes for a city.
type CodeResolver interface {
	ResolveStatisticalCodes(city, state string) (domain.StatisticalCodes, error)
}

// ProfileSource returns survey values for a place, aligned with variables.
type ProfileSource interface {
	Profile(ctx context.Context, year int, codes domain.StatisticalCodes, variables []string) ([]string, error)
}

// Demographics builds the census demographics panel.
type Demographics struct {
	resolver CodeResolver
	source   ProfileSource
}

// NewDemographics creates the demographics provider.
func NewDemographics(resolver CodeResolver, source ProfileSource) *Demographics {
	return &Demographics{resolver: resolver, source: source}
}

func (d *Demographics) Domain() domain.PanelDomain { return domain.Demographics }

func (d *Demographics) Fetch(ctx context.Context, actx domain.AggregationContext) (*domain.Table, error) {
	codes, err := d.resolver.ResolveStatisticalCodes(actx.Place.City, actx.Place.State)
	if err != nil {
		return nil, err
	}

	variables := make([]string, len(DemographicIndicators))
	for i, ind := range DemographicIndicators {
		variables[i] = ind.Code
	}

	values, err := d.source.Profile(ctx, domain.SurveyYear(), codes, variables)
	if err != nil {
		return nil, err
	}
	if len(values) != len(variables) {
		return nil, fmt.Errorf("%w: expected %d census values, got %d", domain.ErrProviderUnavailable, len(variables), len(values))
	}

	table := &domain.Table{Class: domain.Demographics.TableClass()}
	for i, ind := range DemographicIndicators {
		cell := ""
		if values[i] != "" {
			cell = domain.FormatWithCommas(values[i]) + ind.Unit
		}
		table.Rows = append(table.Rows, []string{ind.Label, cell})
	}
	return table, nil
}
