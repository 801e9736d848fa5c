// Package mapquest implements geocoding and elevation lookups against the MapQuest APIs.
package mapquest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/couchcryptid/city-info-service/internal/observability"
)

// statusElevationUnavailable is the info.statuscode MapQuest reports when it
// has no elevation for a coordinate.
const statusElevationUnavailable = 601

// Client implements domain.Geocoder and elevation lookups using MapQuest.
type Client struct {
	apiKey       string
	httpClient   *http.Client
	geocodeURL   string
	elevationURL string
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewClient creates a MapQuest client. A zero timeout leaves requests unbounded.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geocodeURL:   "https://www.mapquestapi.com/geocoding/v1/address",
		elevationURL: "https://open.mapquestapi.com/elevation/v1/profile",
		metrics:      metrics,
		logger:       logger,
	}
}

// Geocode converts a city and state to coordinates.
func (c *Client) Geocode(ctx context.Context, city, state string) (geo.Point, error) {
	params := url.Values{
		"key":       {c.apiKey},
		"inFormat":  {"kvp"},
		"outFormat": {"json"},
		"location":  {fmt.Sprintf("%s, %s", city, state)},
		"thumbMaps": {"false"},
	}

	start := time.Now()
	var resp geocodeResponse
	err := c.doRequest(ctx, c.geocodeURL+"?"+params.Encode(), "geocode", &resp)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return geo.Point{}, err
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Locations) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return geo.Point{}, fmt.Errorf("%w: %s, %s", domain.ErrGeocode, city, state)
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	ll := resp.Results[0].Locations[0].LatLng
	return geo.Point{Lat: ll.Lat, Lng: ll.Lng}, nil
}

// Elevation returns the elevation in meters at a point, or nil when MapQuest
// reports it unavailable.
func (c *Client) Elevation(ctx context.Context, p geo.Point) (*float64, error) {
	params := url.Values{
		"key":              {c.apiKey},
		"shapeFormat":      {"raw"},
		"latLngCollection": {strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)},
	}

	var resp elevationResponse
	if err := c.doRequest(ctx, c.elevationURL+"?"+params.Encode(), "elevation", &resp); err != nil {
		return nil, err
	}

	if resp.Info.StatusCode == statusElevationUnavailable {
		c.logger.Debug("elevation unavailable", "lat", p.Lat, "lng", p.Lng)
		return nil, nil
	}
	if len(resp.ElevationProfile) == 0 {
		return nil, fmt.Errorf("%w: empty elevation profile", domain.ErrProviderUnavailable)
	}

	height := resp.ElevationProfile[0].Height
	return &height, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, source string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mapquest API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}
	return nil
}

// MapQuest API response types.

type info struct {
	StatusCode int `json:"statuscode"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Info    info `json:"info"`
	Results []struct {
		Locations []struct {
			LatLng latLng `json:"latLng"`
		} `json:"locations"`
	} `json:"results"`
}

type elevationResponse struct {
	Info             info `json:"info"`
	ElevationProfile []struct {
		Distance float64 `json:"distance"`
		Height   float64 `json:"height"`
	} `json:"elevationProfile"`
}
