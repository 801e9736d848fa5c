package domain

import "errors"

var (
	// ErrNotAPlace means the location does not parse to a place.
	ErrNotAPlace = errors.New("location is not a place")

	// ErrResolutionMiss means a reference lookup found no matching row.
	ErrResolutionMiss = errors.New("reference resolution miss")

	// ErrGeocode means the geocoding provider returned no results.
	ErrGeocode = errors.New("geocode returned no results")

	// ErrProviderUnavailable means a data provider failed or reported no data.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRenderTimeout means the document never became ready for a panel before the batch deadline.
	ErrRenderTimeout = errors.New("render timed out")

	// ErrStaleResult means the current place changed while a panel was in flight.
	ErrStaleResult = errors.New("stale result")
)
