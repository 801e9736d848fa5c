// Package relay implements the request relay used by providers that cannot be
// called directly, along with an optional Redis response cache.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxBodyBytes caps relayed responses.
const maxBodyBytes = 8 << 20

// Client relays GET requests and returns the raw response body.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a relay client. A zero timeout leaves requests unbounded.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch performs a GET on url and returns the body of a 200 response.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay error: status %d: %s", resp.StatusCode, body)
	}

	c.logger.Debug("relayed request", "host", req.URL.Host, "bytes", len(body))
	return body, nil
}
