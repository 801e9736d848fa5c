package domain

import (
	"time"

	"github.com/couchcryptid/city-info-service/internal/geo"
)

// PanelDomain identifies one kind of data panel. Values are in display order.
type PanelDomain int

const (
	Housing PanelDomain = iota
	Demographics
	Elevation
	Weather
)

// PanelDomains lists every domain in display order.
var PanelDomains = []PanelDomain{Housing, Demographics, Elevation, Weather}

func (d PanelDomain) String() string {
	switch d {
	case Housing:
		return "housing"
	case Demographics:
		return "demographics"
	case Elevation:
		return "elevation"
	case Weather:
		return "weather"
	default:
		return "unknown"
	}
}

// TableClass is the CSS class of the table rendered for the domain.
func (d PanelDomain) TableClass() string {
	return d.String() + "-table"
}

// PanelState tracks a single panel through a batch.
type PanelState int

const (
	Pending PanelState = iota
	Fetching
	ReadyToRender
	Rendered
	Skipped
	Abandoned
)

func (s PanelState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fetching:
		return "fetching"
	case ReadyToRender:
		return "ready_to_render"
	case Rendered:
		return "rendered"
	case Skipped:
		return "skipped"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether the panel will not change state again.
func (s PanelState) Terminal() bool {
	return s == Rendered || s == Skipped || s == Abandoned
}

// Table is the rendered content of a panel: an optional header row followed by
// label/value rows.
type Table struct {
	Class  string     `json:"class"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows"`
}

// PanelResult is a fetched panel waiting to be placed in the document.
type PanelResult struct {
	Domain  PanelDomain `json:"domain"`
	Content Table       `json:"content"`
	Place   Place       `json:"place"`
}

// AggregationContext is the immutable input shared by every provider in a batch.
// Point and ElevationMeters are nil when they could not be resolved.
type AggregationContext struct {
	Place           Place
	Point           *geo.Point
	ElevationMeters *float64
	StartedAt       time.Time
}
