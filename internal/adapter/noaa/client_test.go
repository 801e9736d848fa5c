package noaa

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/couchcryptid/city-info-service/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var datatypes = []string{"MLY-TMIN-NORMAL", "MLY-TMAX-NORMAL"}

func testClient(baseURL string) *Client {
	return &Client{
		token:      "tok",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Stations(t *testing.T) {
	box := geo.BoundingBox{
		Southwest: geo.Point{Lat: 37, Lng: -123},
		Northeast: geo.Point{Lat: 38.5, Lng: -121.5},
		Center:    geo.Point{Lat: 37.75, Lng: -122.25},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stations", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("token"))
		assert.Equal(t, "37,-123,38.5,-121.5", r.URL.Query().Get("extent"))
		assert.Equal(t, datatypes, r.URL.Query()["datatypeid"])
		assert.Equal(t, "2010-01-01", r.URL.Query().Get("startdate"))
		_, _ = io.WriteString(w, `{"results":[{"id":"GHCND:USC00043244","name":"FREMONT, CA US","latitude":37.75,"longitude":-122.25,"elevation":9.1}]}`)
	}))
	defer srv.Close()

	stations, err := testClient(srv.URL).Stations(context.Background(), box, 2010, datatypes)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "GHCND:USC00043244", stations[0].ID)
	assert.InDelta(t, 9.1, stations[0].ElevationMeters, 1e-9)
	assert.InDelta(t, 0, stations[0].DistanceMiles, 1e-9)
}

func TestClient_Stations_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	stations, err := testClient(srv.URL).Stations(context.Background(), geo.BoundingBox{}, 2010, datatypes)
	require.NoError(t, err)
	assert.Empty(t, stations)
}

func TestClient_Normals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data", r.URL.Path)
		assert.Equal(t, "NORMAL_MLY", r.URL.Query().Get("datasetid"))
		assert.Equal(t, []string{"A", "B"}, r.URL.Query()["stationid"])
		assert.Equal(t, "standard", r.URL.Query().Get("units"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `{"results":[
			{"date":"2010-03-01T00:00:00","datatype":"MLY-TMAX-NORMAL","station":"A","value":64.5},
			{"date":"bogus","datatype":"MLY-TMAX-NORMAL","station":"A","value":1}
		]}`)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).Normals(context.Background(), "NORMAL_MLY", datatypes, []string{"A", "B"}, 2010)
	require.NoError(t, err)
	assert.Equal(t, []domain.NormalRecord{
		{Station: "A", Month: time.March, Datatype: "MLY-TMAX-NORMAL", Value: 64.5},
	}, records)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Normals(context.Background(), "NORMAL_MLY", datatypes, []string{"A"}, 2010)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
