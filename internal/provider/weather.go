package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
)

const (
	normalsDataset = "NORMAL_MLY"
	normalsYear    = 2010

	stationSearchRadiusMiles = 50.0
	maxStationCandidates     = 25

	// MaxStationElevationDeltaFeet is how far a station's elevation may differ
	// from the target's for the station to represent it.
	MaxStationElevationDeltaFeet = 150.0

	dtMinTemp  = "MLY-TMIN-NORMAL"
	dtMaxTemp  = "MLY-TMAX-NORMAL"
	dtRainDays = "MLY-PRCP-AVGNDS-GE010HI"
)

var normalDatatypes = []string{dtMinTemp, dtMaxTemp, dtRainDays}

// ClimateSource finds stations and their monthly normals.
type ClimateSource interface {
	Stations(ctx context.Context, box geo.BoundingBox, year int, datatypes []string) ([]domain.WeatherStation, error)
	Normals(ctx context.Context, dataset string, datatypes, stationIDs []string, year int) ([]domain.NormalRecord, error)
}

// Weather builds the monthly climate normals panel from the nearest
// representative station with a complete year of data.
type Weather struct {
	source ClimateSource
	logger *slog.Logger
}

// NewWeather creates the weather provider.
func NewWeather(source ClimateSource, logger *slog.Logger) *Weather {
	return &Weather{source: source, logger: logger}
}

func (w *Weather) Domain() domain.PanelDomain { return domain.Weather }

func (w *Weather) Fetch(ctx context.Context, actx domain.AggregationContext) (*domain.Table, error) {
	if actx.Point == nil {
		return nil, fmt.Errorf("%w: no coordinate for %s", domain.ErrResolutionMiss, actx.Place)
	}

	box := geo.NewBoundingBox(*actx.Point, stationSearchRadiusMiles)
	stations, err := w.source.Stations(ctx, box, normalsYear, normalDatatypes)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		w.logger.Info("no weather stations nearby", "place", actx.Place.String())
		return nil, nil
	}

	candidates := SelectStations(stations, actx.ElevationMeters)
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, s := range candidates {
		ids[i] = s.ID
	}
	records, err := w.source.Normals(ctx, normalsDataset, normalDatatypes, ids, normalsYear)
	if err != nil {
		return nil, err
	}

	station, months, ok := FirstCompleteStation(candidates, records)
	if !ok {
		w.logger.Info("no station with complete normals", "place", actx.Place.String(), "candidates", len(candidates))
		return nil, nil
	}
	w.logger.Debug("weather station selected",
		"place", actx.Place.String(),
		"station", station.ID,
		"name", station.Name,
		"distance_miles", station.DistanceMiles,
	)

	table := &domain.Table{
		Class:  domain.Weather.TableClass(),
		Header: []string{"Month", "High / Low", "Rain"},
	}
	for m := time.January; m <= time.December; m++ {
		v := months[m]
		table.Rows = append(table.Rows, []string{
			m.String()[:3],
			fmt.Sprintf("%d / %d", roundHalfUp(v[dtMaxTemp]), roundHalfUp(v[dtMinTemp])),
			fmt.Sprintf("%d days", roundHalfUp(v[dtRainDays])),
		})
	}
	return table, nil
}

// SelectStations orders stations by distance, keeps those whose elevation is
// within MaxStationElevationDeltaFeet of the target (or of the nearest
// station when the target is unknown), and returns at most 25.
func SelectStations(stations []domain.WeatherStation, targetMeters *float64) []domain.WeatherStation {
	if len(stations) == 0 {
		return nil
	}

	sorted := make([]domain.WeatherStation, len(stations))
	copy(sorted, stations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DistanceMiles < sorted[j].DistanceMiles
	})

	base := sorted[0].ElevationMeters
	if targetMeters != nil {
		base = *targetMeters
	}
	baseFeet := geo.MetersToFeet(base)

	var out []domain.WeatherStation
	for _, s := range sorted {
		if math.Abs(geo.MetersToFeet(s.ElevationMeters)-baseFeet) > MaxStationElevationDeltaFeet {
			continue
		}
		out = append(out, s)
		if len(out) == maxStationCandidates {
			break
		}
	}
	return out
}

// FirstCompleteStation returns the first station, in the given order, with a
// value for every month and datatype. Stations with partial coverage are skipped.
func FirstCompleteStation(stations []domain.WeatherStation, records []domain.NormalRecord) (domain.WeatherStation, map[time.Month]map[string]float64, bool) {
	byStation := make(map[string][]domain.NormalRecord)
	for _, r := range records {
		byStation[r.Station] = append(byStation[r.Station], r)
	}

	want := 12 * len(normalDatatypes)
	for _, s := range stations {
		months := make(map[time.Month]map[string]float64, 12)
		n := 0
		for _, r := range byStation[s.ID] {
			if !slices.Contains(normalDatatypes, r.Datatype) {
				continue
			}
			if months[r.Month] == nil {
				months[r.Month] = make(map[string]float64, len(normalDatatypes))
			}
			if _, dup := months[r.Month][r.Datatype]; dup {
				continue
			}
			months[r.Month][r.Datatype] = r.Value
			n++
		}
		if n == want {
			return s, months, true
		}
	}
	return domain.WeatherStation{}, nil, false
}
