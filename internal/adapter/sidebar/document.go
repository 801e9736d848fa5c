// Package sidebar holds the in-memory place sidebar that panels are rendered
// into. It plays the part of the host page: the watcher reads its location
// and the coordinator inserts panels after its header.
package sidebar

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"slices"
	"sync"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// ErrAnchorNotFound is returned when a panel is inserted after an element
// that is not in the document.
var ErrAnchorNotFound = errors.New("anchor element not found")

type panel struct {
	ID     string
	Result domain.PanelResult
}

// Document is a sidebar with a place header followed by rendered panels.
// It is safe for concurrent use.
type Document struct {
	mu       sync.RWMutex
	location string
	header   string
	place    domain.Place
	panels   []panel
	seq      int
}

// NewDocument returns an empty document with no location.
func NewDocument() *Document {
	return &Document{}
}

// Location returns the URL currently shown.
func (d *Document) Location() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.location
}

// Navigate moves the document to url. An empty header means the header has
// not loaded yet. When the header or the place named by the URL changes the
// sidebar is rebuilt and every rendered panel is dropped; same-named cities
// in different states share a header.
func (d *Document) Navigate(url, header string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = url
	// Non-place URLs leave the zero Place.
	place, _ := domain.ExtractPlace(url)
	if header != d.header || place != d.place {
		d.header = header
		d.place = place
		d.panels = nil
	}
}

// HeaderText returns the header text, or false while there is none.
func (d *Document) HeaderText() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.header, d.header != ""
}

// HasElement reports whether a panel table with the given id is present.
func (d *Document) HasElement(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.indexOf(id) >= 0
}

// InsertAfter places a divider and the panel table after anchor, or directly
// after the header when anchor is empty.
func (d *Document) InsertAfter(anchor string, result domain.PanelResult) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos := 0
	if anchor == "" {
		if d.header == "" {
			return "", fmt.Errorf("header: %w", ErrAnchorNotFound)
		}
	} else {
		i := d.indexOf(anchor)
		if i < 0 {
			return "", fmt.Errorf("%s: %w", anchor, ErrAnchorNotFound)
		}
		pos = i + 1
	}

	d.seq++
	p := panel{ID: fmt.Sprintf("%s-%d", result.Domain.TableClass(), d.seq), Result: result}
	d.panels = slices.Insert(d.panels, pos, p)
	return p.ID, nil
}

// Panels returns the rendered panels from top to bottom.
func (d *Document) Panels() []domain.PanelResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.PanelResult, len(d.panels))
	for i, p := range d.panels {
		out[i] = p.Result
	}
	return out
}

func (d *Document) indexOf(id string) int {
	return slices.IndexFunc(d.panels, func(p panel) bool { return p.ID == id })
}

var sidebarTemplate = template.Must(template.New("sidebar").Parse(`<div class="sidebar">
{{- with .Header}}
<h1 class="section-hero-header-title">{{.}}</h1>
{{- end}}
{{- range .Panels}}
<div class="section-divider section-divider-bottom-line"></div>
<table id="{{.ID}}" class="{{.Result.Content.Class}}" style="margin: 10px">
{{- with .Result.Content.Header}}
<tr>{{range .}}<th>{{.}}</th>{{end}}</tr>
{{- end}}
{{- range .Result.Content.Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</table>
{{- end}}
</div>
`))

// Render writes the sidebar as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	data := struct {
		Header string
		Panels []panel
	}{Header: d.header, Panels: slices.Clone(d.panels)}
	d.mu.RUnlock()

	return sidebarTemplate.Execute(w, data)
}
