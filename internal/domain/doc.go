// Package domain models the places, panels, and per-batch context shared by
// the city info pipeline.
//
// # Place URLs
//
// A place is detected from a map page URL of the form:
//
//	https://www.google.com/maps/place/<fragment>/<anything>
//
// The fragment must contain exactly one comma separating the city from the
// state acronym. "+" encodes a space, the city may be percent-encoded, and a
// postal code may follow the state:
//
//	"Milpitas,+CA+95035"   →  {City: "Milpitas", State: "CA"}
//	"N%C4%81n%C4%81kuli,+HI" →  {City: "Nanakuli", State: "HI"}
//
// Diacritics are removed from the city by canonical decomposition followed by
// dropping nonspacing marks. The state must be one of the acronyms in
// [StateNames]; anything else is [ErrNotAPlace].
//
// # Panels
//
// A batch produces at most one panel per [PanelDomain], displayed in the fixed
// order Housing, Demographics, Elevation, Weather. Each panel moves through
// [PanelState] values:
//
//	Pending → Fetching → ReadyToRender → Rendered
//	Pending → Fetching → Skipped
//	Pending → Fetching → ReadyToRender → Abandoned
//
// Skipped and Abandoned panels never reach the document. Failures are
// classified with the sentinel errors in errors.go and are logged, never
// surfaced to the reader of the sidebar.
package domain
