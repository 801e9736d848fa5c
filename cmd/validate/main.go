// Command validate checks the reference data directory used to resolve
// places: table lines that cannot be parsed, states without a place table,
// and cities whose metro cannot be matched to a metro row in the city's
// state or a neighboring one.
//
// Usage:
//
//	go run ./cmd/validate -reference-dir data/reference
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/couchcryptid/city-info-service/internal/reference"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("reference-dir", sharedcfg.EnvOrDefault("REFERENCE_DATA_DIR", "data/reference"),
		"directory containing states/, cities.csv and metros.csv")
	flag.Parse()

	if code := run(os.DirFS(*dir), os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(fsys fs.FS, out io.Writer) int {
	fmt.Fprintln(out, "=== Reference Data Validation ===")
	fmt.Fprintln(out)

	store := reference.NewStore(fsys)
	if err := store.Load(); err != nil {
		fmt.Fprintf(out, "FATAL: load reference tables: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateTableFormat(store),
		validatePlaceFiles(store),
		validateMetroCoverage(store),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Tables: %d states, %d cities\n", len(store.States()), len(store.Cities()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: every table line parses ──

func validateTableFormat(store *reference.Store) *phase {
	p := &phase{name: "Phase 1: Table format"}
	for _, issue := range store.Issues() {
		p.errorf("%s", issue)
	}
	return p
}

// ── Phase 2: every state has a place table ──

func validatePlaceFiles(store *reference.Store) *phase {
	p := &phase{name: "Phase 2: Place files"}
	for _, state := range store.States() {
		if err := store.CheckPlaces(state); err != nil {
			p.errorf("%s: %v", state, err)
		}
	}
	return p
}

// ── Phase 3: every listed metro has a candidate row nearby ──

// countyMetros are metro labels naming a county-level area; the metro table
// files those under different names.
var countyMetros = []string{"Parish", "County", "Borough"}

func validateMetroCoverage(store *reference.Store) *phase {
	p := &phase{name: "Phase 3: Metro coverage"}
	for _, city := range store.Cities() {
		if city.Metro == "" || isCountyMetro(city.Metro) {
			continue
		}
		if !hasNearbyMetro(store, city) {
			p.errorf("%s, %s: no metro row for %q in %s", city.Name, city.State, city.Metro,
				strings.Join(reference.StatesNear(city.State), "/"))
		}
	}
	return p
}

func hasNearbyMetro(store *reference.Store, city reference.City) bool {
	allowed := make(map[string]bool)
	for _, s := range reference.StatesNear(city.State) {
		allowed[s] = true
	}
	for _, name := range reference.MetroCandidates(city.Metro) {
		for _, st := range store.MetroStates(name) {
			if allowed[st] {
				return true
			}
		}
	}
	return false
}

func isCountyMetro(label string) bool {
	for _, w := range countyMetros {
		if strings.Contains(label, w) {
			return true
		}
	}
	return false
}
