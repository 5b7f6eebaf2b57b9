// Package spansh provides the client for the Spansh system dump API.
package spansh

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/canonn-science/firmament/internal/config"
)

// maxResponseSize bounds a single dump response (64MB). Individual system
// dumps are small; this guards against a misbehaving endpoint.
const maxResponseSize = 64 * 1024 * 1024

// StatusError is returned when the dump API answers with a non-200 status.
// Callers treat the system as unavailable for this run and skip it.
type StatusError struct {
	ID64       int64
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("system %d unavailable: %s", e.ID64, e.Status)
}

// Client fetches full system documents from the dump API. A single
// underlying connection pool is reused across all fetches in a run.
type Client struct {
	httpClient *http.Client
	dumpURL    string
	userAgent  string
}

// NewClient creates a dump API client from configuration.
func NewClient(cfg *config.SourceConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		dumpURL:    cfg.DumpURL,
		userAgent:  cfg.UserAgent,
	}
}

// FetchSystem retrieves the full system document for the given address.
// A non-200 response yields a *StatusError; malformed JSON yields an
// ordinary error, which is fatal for the run.
func (c *Client) FetchSystem(ctx context.Context, id64 int64) (*SystemDocument, error) {
	url := fmt.Sprintf("%s/%d", c.dumpURL, id64)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch system %d: %w", id64, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			ID64:       id64,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response for system %d: %w", id64, err)
	}

	doc, err := ParseDump(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dump for system %d: %w", id64, err)
	}

	return doc, nil
}
