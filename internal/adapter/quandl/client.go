// Package quandl reads Zillow housing indicators from the Quandl datatables API.
// Requests go through the relay.
package quandl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/couchcryptid/city-info-service/internal/domain"
)

// valueColumn is the position of the indicator value in a ZILLOW/DATA row:
// indicator_id, region_id, date, value.
const valueColumn = 3

// Client fetches the latest value of a housing indicator for a region.
type Client struct {
	relay   domain.Relay
	apiKey  string
	baseURL string
}

// NewClient creates a Quandl client that sends every request through relay.
func NewClient(relay domain.Relay, apiKey string) *Client {
	return &Client{
		relay:   relay,
		apiKey:  apiKey,
		baseURL: "https://www.quandl.com/api/v3/datatables/ZILLOW/DATA",
	}
}

// Latest returns the most recent value of indicator for regionID, or nil when
// the provider has no data for that pair.
func (c *Client) Latest(ctx context.Context, indicator string, regionID int) (*float64, error) {
	params := url.Values{
		"indicator_id": {indicator},
		"region_id":    {strconv.Itoa(regionID)},
		"api_key":      {c.apiKey},
	}

	body, err := c.relay.Fetch(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: quandl %s: %v", domain.ErrProviderUnavailable, indicator, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quandl response: %w", err)
	}

	if len(resp.Datatable.Data) == 0 {
		return nil, nil
	}
	row := resp.Datatable.Data[0]
	if len(row) <= valueColumn {
		return nil, fmt.Errorf("quandl row has %d columns", len(row))
	}

	var v float64
	if err := json.Unmarshal(row[valueColumn], &v); err != nil {
		return nil, fmt.Errorf("decode quandl value: %w", err)
	}
	return &v, nil
}

type response struct {
	Datatable struct {
		Data [][]json.RawMessage `json:"data"`
	} `json:"datatable"`
}
