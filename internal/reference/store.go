// Package reference resolves places to the identifiers used by the data
// providers, using static tables loaded once from a reference data directory.
package reference

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

const (
	statesFile = "states/state.txt"
	citiesFile = "cities.csv"
	metrosFile = "metros.csv"
)

// Store holds the parsed reference tables. The state, city, and metro tables
// are read by Load; per-state place tables are read on first use. All tables
// are cached for the life of the process.
type Store struct {
	fsys fs.FS

	loadOnce   sync.Once
	loadErr    error
	stateFIPS  map[string]string
	cities     []cityRow
	cityIndex  map[string]int
	metros     []metroRow
	metroIndex map[string][]int
	issues     []Issue

	mu     sync.Mutex
	places map[string]*placeTable
}

// NewStore creates a store reading from fsys, typically os.DirFS(REFERENCE_DATA_DIR).
func NewStore(fsys fs.FS) *Store {
	return &Store{
		fsys:   fsys,
		places: make(map[string]*placeTable),
	}
}

// Load parses the state, city, and metro tables. It is safe to call more than
// once; only the first call reads the files.
func (s *Store) Load() error {
	s.loadOnce.Do(func() {
		s.loadErr = s.load()
	})
	return s.loadErr
}

func (s *Store) load() error {
	f, err := s.fsys.Open(statesFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", statesFile, err)
	}
	s.stateFIPS, err = parseStates(f)
	f.Close()
	if err != nil {
		return err
	}

	f, err = s.fsys.Open(citiesFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", citiesFile, err)
	}
	s.cities, s.cityIndex, err = parseCities(f, s.reporter(citiesFile))
	f.Close()
	if err != nil {
		return err
	}

	f, err = s.fsys.Open(metrosFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", metrosFile, err)
	}
	s.metros, s.metroIndex, err = parseMetros(f, s.reporter(metrosFile))
	f.Close()
	return err
}

func (s *Store) reporter(file string) reportFunc {
	return func(line int, problem string) {
		s.issues = append(s.issues, Issue{File: file, Line: line, Problem: problem})
	}
}

// Issue is a table line that Load skipped because it could not be parsed.
type Issue struct {
	File    string
	Line    int
	Problem string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s:%d: %s", i.File, i.Line, i.Problem)
}

// City is a city table entry. Metro is empty when the city is listed without one.
type City struct {
	RegionID int
	Name     string
	State    string
	Metro    string
}

// Issues returns the lines Load skipped, in file order.
func (s *Store) Issues() []Issue {
	return s.issues
}

// States returns the state acronyms from the state table, sorted.
func (s *Store) States() []string {
	out := make([]string, 0, len(s.stateFIPS))
	for st := range s.stateFIPS {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}

// Cities returns the city table in file order. Metro names have periods and
// apostrophes removed, as they are when resolving a city region.
func (s *Store) Cities() []City {
	out := make([]City, 0, len(s.cities))
	for _, row := range s.cities {
		c := City{RegionID: row.regionID, Name: row.name, State: row.state}
		if row.metro != "" {
			c.Metro = metroLabel(row)
		}
		out = append(out, c)
	}
	return out
}

// MetroStates returns the primary states of the metro rows with the given name.
func (s *Store) MetroStates(name string) []string {
	idx := s.metroIndex[name]
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.metros[i].state)
	}
	return out
}

// CheckPlaces reads the place table of a state listed in the state table.
func (s *Store) CheckPlaces(state string) error {
	if err := s.Load(); err != nil {
		return err
	}
	fips, ok := s.stateFIPS[state]
	if !ok {
		return fmt.Errorf("no state code for %s", state)
	}
	_, err := s.placesFor(state, fips)
	return err
}

// placesFor returns the place table for a state, reading it on first use.
func (s *Store) placesFor(state, fips string) (*placeTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.places[state]; ok {
		return t, nil
	}

	name := fmt.Sprintf("states/st%s_%s_places.txt", fips, strings.ToLower(state))
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	t, err := parsePlaces(f, name)
	if err != nil {
		return nil, err
	}
	s.places[state] = t
	return t, nil
}
