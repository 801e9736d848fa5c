package reference

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// placeRow is one line of a per-state place file:
// STATE|STATEFP|PLACEFP|PLACENAME|TYPE|FUNCSTAT|COUNTY.
type placeRow struct {
	stateFP string
	placeFP string
	name    string
	key     string // name with periods and diacritics removed
}

// placeTable is the arena of a state's place rows in file order, indexed by
// the first byte of each row's key.
type placeTable struct {
	rows   []placeRow
	byHead map[byte][]int
}

// cityRow is one "city" line of cities.csv: <id>,city,<City>; <ST>; <Metro>; ...
type cityRow struct {
	regionID int
	name     string
	state    string
	metro    string
}

// metroRow is one "metro" line of metros.csv: <id>,metro,"<Name>, <ST[-ST...]>".
type metroRow struct {
	regionID int
	name     string
	state    string // primary state
}

func matchKey(s string) string {
	return strings.ReplaceAll(domain.StripDiacritics(s), ".", "")
}

// reportFunc records a line that could not be parsed.
type reportFunc func(line int, problem string)

func scanLines(r io.Reader, name string, fn func(n int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// parseStates reads state.txt (STATE|STUSAB|STATE_NAME|STATENS) into acronym → FIPS.
func parseStates(r io.Reader) (map[string]string, error) {
	fips := make(map[string]string)
	err := scanLines(r, statesFile, func(_ int, line string) error {
		fields := strings.Split(line, "|")
		if len(fields) < 2 || fields[0] == "STATE" {
			return nil
		}
		if _, dup := fips[fields[1]]; !dup {
			fips[fields[1]] = fields[0]
		}
		return nil
	})
	return fips, err
}

func parsePlaces(r io.Reader, name string) (*placeTable, error) {
	t := &placeTable{byHead: make(map[byte][]int)}
	err := scanLines(r, name, func(_ int, line string) error {
		fields := strings.Split(line, "|")
		if len(fields) < 4 || fields[0] == "STATE" {
			return nil
		}
		row := placeRow{
			stateFP: fields[1],
			placeFP: fields[2],
			name:    fields[3],
			key:     matchKey(fields[3]),
		}
		if row.key == "" {
			return nil
		}
		t.byHead[row.key[0]] = append(t.byHead[row.key[0]], len(t.rows))
		t.rows = append(t.rows, row)
		return nil
	})
	return t, err
}

func parseCities(r io.Reader, report reportFunc) ([]cityRow, map[string]int, error) {
	var rows []cityRow
	index := make(map[string]int)
	err := scanLines(r, citiesFile, func(n int, line string) error {
		id, kind, rest, ok := splitRegionLine(line)
		if !ok {
			if n > 1 {
				report(n, "not <id>,<type>,<name>")
			}
			return nil
		}
		if kind != "city" {
			return nil
		}
		parts := strings.Split(rest, "; ")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			report(n, "city line without \"<city>; <state>\"")
			return nil
		}
		row := cityRow{regionID: id, name: parts[0], state: parts[1]}
		// The metro is only present when further fields follow it.
		if len(parts) >= 4 && parts[2] != "" {
			row.metro = parts[2]
		}
		key := cityKey(row.name, row.state)
		if _, dup := index[key]; !dup {
			index[key] = len(rows)
		}
		rows = append(rows, row)
		return nil
	})
	return rows, index, err
}

func parseMetros(r io.Reader, report reportFunc) ([]metroRow, map[string][]int, error) {
	var rows []metroRow
	index := make(map[string][]int)
	err := scanLines(r, metrosFile, func(n int, line string) error {
		id, kind, rest, ok := splitRegionLine(line)
		if !ok {
			if n > 1 {
				report(n, "not <id>,<type>,<name>")
			}
			return nil
		}
		if kind != "metro" {
			return nil
		}
		rest = strings.Trim(rest, `"`)
		i := strings.LastIndex(rest, ", ")
		if i < 0 || len(rest)-(i+2) < 2 {
			report(n, "metro line without \"<name>, <state>\"")
			return nil
		}
		name, states := rest[:i], rest[i+2:]
		index[name] = append(index[name], len(rows))
		rows = append(rows, metroRow{regionID: id, name: name, state: states[:2]})
		return nil
	})
	return rows, index, err
}

// splitRegionLine splits "<id>,<kind>,<rest>".
func splitRegionLine(line string) (int, string, string, bool) {
	idStr, after, ok := strings.Cut(line, ",")
	if !ok {
		return 0, "", "", false
	}
	kind, rest, ok := strings.Cut(after, ",")
	if !ok {
		return 0, "", "", false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, "", "", false
	}
	return id, kind, rest, true
}

// metroLabel is the metro name a city row is filed under, without periods or
// apostrophes. Cities listed without a metro use their own name.
func metroLabel(row cityRow) string {
	metro := row.metro
	if metro == "" {
		metro = row.name
	}
	return strings.NewReplacer(".", "", "'", "").Replace(metro)
}

func cityKey(city, state string) string {
	return domain.StripDiacritics(city) + "|" + state
}
