package reference

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
)

// MaxMetroDistanceMiles bounds how far a metro's first city may be from the target city.
const MaxMetroDistanceMiles = 100.0

// placeTypes breaks ties between same-named places, most preferred first.
var placeTypes = []string{"city", "town", "municipality", "village", "CDP"}

var metroSeparators = regexp.MustCompile(`[-/]+`)

// Resolver maps places to the identifiers each data provider is keyed by.
type Resolver struct {
	store    *Store
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewResolver creates a resolver over a reference store and a geocoder.
func NewResolver(store *Store, geocoder domain.Geocoder, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, geocoder: geocoder, logger: logger}
}

// Geocode returns the coordinate of a city.
func (r *Resolver) Geocode(ctx context.Context, city, state string) (geo.Point, error) {
	return r.geocoder.Geocode(ctx, city, state)
}

// ResolveStatisticalCodes finds the census state and place codes for a city.
// A place matches when its name, with periods removed, starts with the city.
// Among several matches the place type order city, town, municipality,
// village, CDP decides; otherwise the first row in file order wins.
func (r *Resolver) ResolveStatisticalCodes(city, state string) (domain.StatisticalCodes, error) {
	if err := r.store.Load(); err != nil {
		return domain.StatisticalCodes{}, err
	}

	fips, ok := r.store.stateFIPS[state]
	if !ok {
		return domain.StatisticalCodes{}, fmt.Errorf("%w: no state code for %s", domain.ErrResolutionMiss, state)
	}

	table, err := r.store.placesFor(state, fips)
	if err != nil {
		return domain.StatisticalCodes{}, err
	}

	key := matchKey(city)
	if key == "" {
		return domain.StatisticalCodes{}, fmt.Errorf("%w: empty city", domain.ErrResolutionMiss)
	}

	var matches []int
	for _, i := range table.byHead[key[0]] {
		row := table.rows[i]
		if row.stateFP == fips && strings.HasPrefix(row.key, key) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return domain.StatisticalCodes{}, fmt.Errorf("%w: no place %q in %s", domain.ErrResolutionMiss, city, state)
	}

	for _, pt := range placeTypes {
		want := key + " " + pt
		for _, i := range matches {
			if strings.Contains(table.rows[i].key, want) {
				return domain.StatisticalCodes{State: fips, Place: table.rows[i].placeFP}, nil
			}
		}
	}
	return domain.StatisticalCodes{State: fips, Place: table.rows[matches[0]].placeFP}, nil
}

// ResolveCityRegion finds the housing region of a city and the label of its metro.
// Cities listed without a metro use their own name as the metro label.
func (r *Resolver) ResolveCityRegion(city, state string) (domain.CityRegion, error) {
	if err := r.store.Load(); err != nil {
		return domain.CityRegion{}, err
	}

	i, ok := r.store.cityIndex[cityKey(city, state)]
	if !ok {
		return domain.CityRegion{}, fmt.Errorf("%w: no city region for %s, %s", domain.ErrResolutionMiss, city, state)
	}

	row := r.store.cities[i]
	return domain.CityRegion{RegionID: row.regionID, Metro: metroLabel(row)}, nil
}

// MetroCandidates splits a metro label on hyphens and slashes and returns the
// parts followed by their cumulative hyphen joins, without duplicates.
func MetroCandidates(label string) []string {
	parts := metroSeparators.Split(label, -1)

	seen := make(map[string]bool, len(parts)*2)
	out := make([]string, 0, len(parts)*2)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, p := range parts {
		add(p)
	}
	cumulative := parts[0]
	for _, p := range parts[1:] {
		cumulative += "-" + p
		add(cumulative)
	}
	return out
}

// ResolveMetroRegion selects the metro row nearest to the city among rows whose
// name is one of the label's candidates and whose primary state is the city's
// state or a neighbor. Distance is measured to each metro's first constituent
// city. The first row in file order wins ties.
func (r *Resolver) ResolveMetroRegion(ctx context.Context, cityPoint geo.Point, state, label string) (domain.MetroRegion, error) {
	if err := r.store.Load(); err != nil {
		return domain.MetroRegion{}, err
	}

	allowed := make(map[string]bool)
	for _, s := range StatesNear(state) {
		allowed[s] = true
	}

	var rows []int
	for _, c := range MetroCandidates(label) {
		for _, i := range r.store.metroIndex[c] {
			if allowed[r.store.metros[i].state] {
				rows = append(rows, i)
			}
		}
	}
	if len(rows) == 0 {
		return domain.MetroRegion{}, fmt.Errorf("%w: no metro for %q near %s", domain.ErrResolutionMiss, label, state)
	}
	sort.Ints(rows)

	var (
		best  domain.MetroRegion
		found bool
	)
	for _, i := range rows {
		row := r.store.metros[i]
		firstCity := strings.Split(row.name, "-")[0]

		point, err := r.geocoder.Geocode(ctx, firstCity, row.state)
		if err != nil {
			r.logger.Warn("metro candidate geocode failed",
				"metro", row.name,
				"state", row.state,
				"error", err,
			)
			continue
		}

		d := geo.DistanceMiles(cityPoint, point)
		if !found || d < best.DistanceMiles {
			best = domain.MetroRegion{RegionID: row.regionID, Name: row.name, State: row.state, DistanceMiles: d}
			found = true
		}
	}

	if !found {
		return domain.MetroRegion{}, fmt.Errorf("%w: no metro candidate for %q could be located", domain.ErrResolutionMiss, label)
	}
	if best.DistanceMiles > MaxMetroDistanceMiles {
		return domain.MetroRegion{}, fmt.Errorf("%w: nearest metro %s, %s is %.0f miles away",
			domain.ErrResolutionMiss, best.Name, best.State, best.DistanceMiles)
	}
	return best, nil
}
