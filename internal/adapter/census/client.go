// Package census reads American Community Survey 5-year profile data.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// Client queries the Census Data API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Census client. The API key is optional.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.census.gov/data",
		logger:     logger,
	}
}

// Profile returns the values of variables for a place in the given survey year,
// in the same order as variables. Null values are returned as empty strings.
func (c *Client) Profile(ctx context.Context, year int, codes domain.StatisticalCodes, variables []string) ([]string, error) {
	params := url.Values{
		"get": {strings.Join(variables, ",")},
		"for": {"place:" + codes.Place},
		"in":  {"state:" + codes.State},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s/%d/acs/acs5/profile?%s", c.baseURL, year, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: census request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	// The API answers 204 when the place has no data for the year.
	if resp.StatusCode == http.StatusNoContent {
		return nil, fmt.Errorf("%w: no census data for place %s-%s", domain.ErrProviderUnavailable, codes.State, codes.Place)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: census API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	// The first row holds column names, the second the values.
	var table [][]any
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode census response: %w", err)
	}
	if len(table) < 2 {
		return nil, fmt.Errorf("%w: census response has no data row", domain.ErrProviderUnavailable)
	}

	columns := make(map[string]int, len(table[0]))
	for i, h := range table[0] {
		if name, ok := h.(string); ok {
			columns[name] = i
		}
	}

	values := make([]string, len(variables))
	for i, v := range variables {
		col, ok := columns[v]
		if !ok || col >= len(table[1]) {
			c.logger.Warn("census variable missing from response", "variable", v)
			continue
		}
		values[i] = cellString(table[1][col])
	}
	return values, nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
