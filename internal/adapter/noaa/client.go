// Package noaa queries the NOAA Climate Data Online v2 API for stations and monthly normals.
package noaa

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
)

const (
	pageLimit  = 1000
	dateLayout = "2006-01-02T15:04:05"
)

// Client calls the CDO API with a token header.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a NOAA CDO client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.ncdc.noaa.gov/cdo-web/api/v2",
		logger:     logger,
	}
}

// Stations returns stations inside box that report every datatype during year.
// DistanceMiles is measured from the box center.
func (c *Client) Stations(ctx context.Context, box geo.BoundingBox, year int, datatypes []string) ([]domain.WeatherStation, error) {
	params := url.Values{
		"extent":     {formatExtent(box)},
		"startdate":  {fmt.Sprintf("%d-01-01", year)},
		"enddate":    {fmt.Sprintf("%d-12-31", year)},
		"datatypeid": datatypes,
		"limit":      {strconv.Itoa(pageLimit)},
	}

	var resp stationsResponse
	if err := c.get(ctx, "/stations", params, &resp); err != nil {
		return nil, err
	}

	stations := make([]domain.WeatherStation, 0, len(resp.Results))
	for _, s := range resp.Results {
		stations = append(stations, domain.WeatherStation{
			ID:              s.ID,
			Name:            s.Name,
			Latitude:        s.Latitude,
			Longitude:       s.Longitude,
			ElevationMeters: s.Elevation,
			DistanceMiles:   geo.DistanceMiles(box.Center, geo.Point{Lat: s.Latitude, Lng: s.Longitude}),
		})
	}
	return stations, nil
}

// Normals returns the monthly normal records of dataset for the given stations and year.
func (c *Client) Normals(ctx context.Context, dataset string, datatypes, stationIDs []string, year int) ([]domain.NormalRecord, error) {
	params := url.Values{
		"datasetid":  {dataset},
		"datatypeid": datatypes,
		"stationid":  stationIDs,
		"units":      {"standard"},
		"startdate":  {fmt.Sprintf("%d-01-01", year)},
		"enddate":    {fmt.Sprintf("%d-12-31", year)},
		"limit":      {strconv.Itoa(pageLimit)},
	}

	var resp dataResponse
	if err := c.get(ctx, "/data", params, &resp); err != nil {
		return nil, err
	}

	records := make([]domain.NormalRecord, 0, len(resp.Results))
	for _, r := range resp.Results {
		date, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			c.logger.Debug("skipping normal with unparseable date", "station", r.Station, "date", r.Date)
			continue
		}
		records = append(records, domain.NormalRecord{
			Station:  r.Station,
			Month:    date.Month(),
			Datatype: r.Datatype,
			Value:    r.Value,
		})
	}
	return records, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: noaa %s request: %v", domain.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: noaa API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode noaa %s response: %w", path, err)
	}
	return nil
}

func formatExtent(box geo.BoundingBox) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(box.Southwest.Lat) + "," + f(box.Southwest.Lng) + "," + f(box.Northeast.Lat) + "," + f(box.Northeast.Lng)
}

// CDO API response types. An empty result set omits "results".

type stationsResponse struct {
	Results []struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

type dataResponse struct {
	Results []struct {
		Date     string  `json:"date"`
		Datatype string  `json:"datatype"`
		Station  string  `json:"station"`
		Value    float64 `json:"value"`
	} `json:"results"`
}
