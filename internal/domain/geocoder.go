package domain

import (
	"context"

	"github.com/couchcryptid/city-info-service/internal/geo"
)

// Geocoder resolves a city and state to a coordinate. Implementations return
// an error wrapping ErrGeocode when the provider has no result.
type Geocoder interface {
	Geocode(ctx context.Context, city, state string) (geo.Point, error)
}

// Relay forwards a request to a privileged fetcher and returns the raw response body.
type Relay interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
