// Package sink is the HTTP client for the map collection service.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ctmesh/wardrive/internal/domain"
)

const (
	putRepeaterPath = "/put-repeater"
	putSamplePath   = "/put-sample"
	consolidatePath = "/consolidate"
	cleanUpPath     = "/clean-up?op=repeaters"

	defaultRequestTimeout = 5 * time.Second
	maxResponsePreview    = 512
)

// Client talks to the map service. Requests share one short timeout; there
// are no retries and no queue, a failed upload is dropped by the caller.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		logger:  logger.With("component", "sink"),
	}
}

// SetHTTPClient replaces the underlying HTTP client, for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

// PutRepeater uploads a repeater update.
func (c *Client) PutRepeater(ctx context.Context, rec domain.RepeaterUpdate) error {
	return c.postJSON(ctx, putRepeaterPath, rec)
}

// PutSample uploads an observed coordinate sample.
func (c *Client) PutSample(ctx context.Context, rec domain.SampleObservation) error {
	return c.postJSON(ctx, putSamplePath, rec)
}

// Consolidate asks the service to merge stored repeater sightings. The
// response body is returned for logging.
func (c *Client) Consolidate(ctx context.Context) (string, error) {
	return c.get(ctx, consolidatePath)
}

// CleanUpRepeaters asks the service to drop stale repeater records.
func (c *Client) CleanUpRepeaters(ctx context.Context) (string, error) {
	return c.get(ctx, cleanUpPath)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("POST %s: unexpected status %s", path, resp.Status)
	}

	c.logger.Info("record uploaded", "path", path, "status", resp.StatusCode, "body", string(body))

	return nil
}

func (c *Client) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", path, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	preview, err := io.ReadAll(io.LimitReader(resp.Body, maxResponsePreview))
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("GET %s: unexpected status %s: %s", path, resp.Status, preview)
	}

	return string(preview), nil
}
