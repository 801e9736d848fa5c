package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

var (
	milpitas      = domain.Place{City: "Milpitas", State: "CA"}
	milpitasPoint = geo.Point{Lat: 37.4323, Lng: -121.8996}
)

// --- housing ---

type fakeRegions struct {
	city     domain.CityRegion
	cityErr  error
	metro    domain.MetroRegion
	metroErr error
	labels   []string
}

func (f *fakeRegions) ResolveCityRegion(_, _ string) (domain.CityRegion, error) {
	return f.city, f.cityErr
}

func (f *fakeRegions) ResolveMetroRegion(_ context.Context, _ geo.Point, _, label string) (domain.MetroRegion, error) {
	f.labels = append(f.labels, label)
	return f.metro, f.metroErr
}

type fakeHousing struct {
	values   map[string]*float64
	requests []string
}

func (f *fakeHousing) Latest(_ context.Context, indicator string, _ int) (*float64, error) {
	f.requests = append(f.requests, indicator)
	return f.values[indicator], nil
}

func TestHousing_CityAndMetroStopsAtFirstMissing(t *testing.T) {
	regions := &fakeRegions{
		city:  domain.CityRegion{RegionID: 1002, Metro: "San Jose-Sunnyvale-Santa Clara"},
		metro: domain.MetroRegion{RegionID: 2005, Name: "San Jose", State: "CA"},
	}
	source := &fakeHousing{values: map[string]*float64{
		"ZSFH": ptr(1096500.0),
		"SSSM": ptr(1250000.0),
		"LSSM": ptr(1300000.0),
	}}
	h := NewHousing(regions, source, discardLogger())

	table, err := h.Fetch(context.Background(), domain.AggregationContext{Place: milpitas, Point: &milpitasPoint})
	require.NoError(t, err)
	require.NotNil(t, table)

	assert.Equal(t, []string{"ZSFH", "SSSM", "RSNA"}, source.requests, "LSSM must not be requested after RSNA is missing")
	assert.Equal(t, "housing-table", table.Class)
	assert.Equal(t, [][]string{
		{"Home Value (SFR)", "$1,096,500"},
		{"Sale Price (SFR)", "$1,250,000"},
		{"City metro: San Jose-Sunnyvale-Santa Clara", ""},
		{"Metro: San Jose, CA", ""},
	}, table.Rows)
	assert.Equal(t, []string{"San Jose-Sunnyvale-Santa Clara"}, regions.labels)
}

func TestHousing_NoMetro(t *testing.T) {
	regions := &fakeRegions{
		city:     domain.CityRegion{RegionID: 1003, Metro: "Reno"},
		metroErr: domain.ErrResolutionMiss,
	}
	source := &fakeHousing{values: map[string]*float64{"ZSFH": ptr(450000.0)}}

	table, err := NewHousing(regions, source, discardLogger()).
		Fetch(context.Background(), domain.AggregationContext{Place: milpitas, Point: &milpitasPoint})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Home Value (SFR)", "$450,000"}}, table.Rows)
	assert.Equal(t, []string{"ZSFH"}, source.requests)
}

func TestHousing_NoPointSkipsMetro(t *testing.T) {
	regions := &fakeRegions{city: domain.CityRegion{RegionID: 1}}
	source := &fakeHousing{values: map[string]*float64{}}

	table, err := NewHousing(regions, source, discardLogger()).
		Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Home Value (SFR)", ""}}, table.Rows)
	assert.Empty(t, regions.labels)
}

func TestHousing_CityMiss(t *testing.T) {
	regions := &fakeRegions{cityErr: domain.ErrResolutionMiss}
	source := &fakeHousing{}

	table, err := NewHousing(regions, source, discardLogger()).
		Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.ErrorIs(t, err, domain.ErrResolutionMiss)
	assert.Nil(t, table)
	assert.Empty(t, source.requests)
}

// --- demographics ---

type fakeCodes struct {
	codes domain.StatisticalCodes
	err   error
}

func (f fakeCodes) ResolveStatisticalCodes(_, _ string) (domain.StatisticalCodes, error) {
	return f.codes, f.err
}

type fakeProfile struct {
	year      int
	codes     domain.StatisticalCodes
	variables []string
	values    []string
	err       error
}

func (f *fakeProfile) Profile(_ context.Context, year int, codes domain.StatisticalCodes, variables []string) ([]string, error) {
	f.year, f.codes, f.variables = year, codes, variables
	return f.values, f.err
}

func TestDemographics_RequestsElevenIndicatorsInOrder(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	codes := domain.StatisticalCodes{State: "06", Place: "47766"}
	profile := &fakeProfile{values: []string{
		"80430", "1045600", "159394", "3.9", "48.1", "21.8", "12.4", "12.6", "2.4", "68.4", "15.9",
	}}
	d := NewDemographics(fakeCodes{codes: codes}, profile)

	table, err := d.Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.NoError(t, err)

	assert.Equal(t, 2022, profile.year)
	assert.Equal(t, codes, profile.codes)
	assert.Equal(t, []string{
		"DP05_0001E", "DP04_0089E", "DP03_0062E", "DP03_0005PE", "DP02_0068PE",
		"DP05_0019PE", "DP05_0024PE", "DP05_0077PE", "DP05_0038PE", "DP05_0044PE", "DP05_0071PE",
	}, profile.variables)

	require.Len(t, table.Rows, 11)
	assert.Equal(t, "demographics-table", table.Class)
	assert.Equal(t, []string{"Population", "80,430"}, table.Rows[0])
	assert.Equal(t, []string{"Median property value", "1,045,600"}, table.Rows[1])
	assert.Equal(t, []string{"Unemployment rate", "3.9%"}, table.Rows[3])
	assert.Equal(t, []string{"Hispanic", "15.9%"}, table.Rows[10])
}

func TestDemographics_EmptyValueHasNoUnit(t *testing.T) {
	values := make([]string, len(DemographicIndicators))
	values[0] = "100"
	d := NewDemographics(fakeCodes{}, &fakeProfile{values: values})

	table, err := d.Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.NoError(t, err)
	assert.Equal(t, []string{"Unemployment rate", ""}, table.Rows[3])
}

func TestDemographics_ResolutionMissSkipsFetch(t *testing.T) {
	profile := &fakeProfile{}
	d := NewDemographics(fakeCodes{err: domain.ErrResolutionMiss}, profile)

	table, err := d.Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.ErrorIs(t, err, domain.ErrResolutionMiss)
	assert.Nil(t, table)
	assert.Nil(t, profile.variables)
}

func TestDemographics_WrongValueCount(t *testing.T) {
	d := NewDemographics(fakeCodes{}, &fakeProfile{values: []string{"1"}})

	_, err := d.Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

// --- elevation ---

type fakeElevation struct {
	meters *float64
	err    error
}

func (f fakeElevation) Elevation(_ context.Context, _ geo.Point) (*float64, error) {
	return f.meters, f.err
}

func TestElevation_Fetch(t *testing.T) {
	e := NewElevation(fakeElevation{})

	table, err := e.Fetch(context.Background(), domain.AggregationContext{Place: milpitas, ElevationMeters: ptr(6.0)})
	require.NoError(t, err)
	assert.Equal(t, "elevation-table", table.Class)
	assert.Equal(t, [][]string{{"Elevation", "20 ft"}}, table.Rows)
}

func TestElevation_FetchWithoutElevation(t *testing.T) {
	table, err := NewElevation(fakeElevation{}).Fetch(context.Background(), domain.AggregationContext{Place: milpitas})
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestElevation_Lookup(t *testing.T) {
	e := NewElevation(fakeElevation{meters: ptr(12.5)})
	m, err := e.Lookup(context.Background(), milpitasPoint)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, *m, 0)

	e = NewElevation(fakeElevation{err: errors.New("down")})
	_, err = e.Lookup(context.Background(), milpitasPoint)
	assert.Error(t, err)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, -2, roundHalfUp(-2.5))
	assert.Equal(t, 20, roundHalfUp(19.686))
}
