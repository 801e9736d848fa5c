package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var placeURLPattern = regexp.MustCompile(`https://www\.google\.com/maps/place/(.+?)/`)

// Place identifies a displayed location by city and state acronym.
type Place struct {
	City  string `json:"city"`
	State string `json:"state"`
}

func (p Place) String() string {
	return p.City + ", " + p.State
}

// StateName returns the full name of the place's state.
func (p Place) StateName() string {
	return StateNames[p.State]
}

// ExtractPlace parses a map page URL into a Place. URLs that do not describe a
// single city and state return ErrNotAPlace.
func ExtractPlace(rawURL string) (Place, error) {
	m := placeURLPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return Place{}, ErrNotAPlace
	}

	fragment := m[1]
	if strings.Count(fragment, ",") != 1 {
		return Place{}, fmt.Errorf("%w: %q", ErrNotAPlace, fragment)
	}
	fragment = strings.ReplaceAll(fragment, "+", " ")

	city, state, _ := strings.Cut(fragment, ",")
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)

	// "CA 95035" carries a postal code.
	if fields := strings.Split(state, " "); len(fields) == 2 {
		state = fields[0]
	}
	state = strings.ToUpper(state)

	decoded, err := url.PathUnescape(city)
	if err != nil {
		return Place{}, fmt.Errorf("%w: decode city: %v", ErrNotAPlace, err)
	}
	city = StripDiacritics(decoded)

	if city == "" {
		return Place{}, fmt.Errorf("%w: empty city", ErrNotAPlace)
	}
	if _, ok := StateNames[state]; !ok {
		return Place{}, fmt.Errorf("%w: unknown state %q", ErrNotAPlace, state)
	}

	return Place{City: city, State: state}, nil
}

// StripDiacritics removes combining marks after canonical decomposition,
// e.g. "Nānākuli" becomes "Nanakuli".
func StripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
