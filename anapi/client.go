// Package anapi contains minimal clients for the parliament agenda and live-broadcast
// JSON endpoints used by the bot commands.
package anapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/legibot/backend/telemetry"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Endpoint string
	Code     int
	Status   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %s", e.Endpoint, e.Status)
}

// baseClient carries the pieces shared by AgendaClient and LiveClient.
type baseClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *baseClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// getJSON issues GET {BaseURL}{path}?{query} and decodes the body into out. endpoint labels
// the upstream duration metric.
func (c *baseClient) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http().Do(req)
	telemetry.ObserveUpstream(endpoint, time.Since(start))
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", endpoint, err)
	}
	return nil
}
