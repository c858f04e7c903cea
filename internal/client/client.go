// Package client provides a typed HTTP client for the reportloom server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/reportloom/reportloom/internal/metrics"
	"github.com/reportloom/reportloom/internal/report"
)

// Client talks to the reportloom server's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, uses the REPORTLOOM_SERVER_URL
// env var or defaults to localhost:8090. The timeout can be configured via
// REPORTLOOM_CLIENT_TIMEOUT (commands only enqueue work, so the default is
// short).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("REPORTLOOM_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}

	timeout := 30 * time.Second
	if t := os.Getenv("REPORTLOOM_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do issues a JSON request and decodes the response into result. Non-200
// responses come back as classified errors.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Init creates or confirms the report for a session. With confirm unset the
// server answers with a non-persisted preview.
func (c *Client) Init(ctx context.Context, sessionID string, confirm bool) (report.ReportState, error) {
	var state report.ReportState
	err := c.do(ctx, http.MethodPost, "/api/reports/"+url.PathEscape(sessionID)+"/init", map[string]bool{"confirm": confirm}, &state)
	return state, err
}

// State fetches the authoritative report state.
func (c *Client) State(ctx context.Context, sessionID string) (report.ReportState, error) {
	var state report.ReportState
	err := c.do(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(sessionID), nil, &state)
	return state, err
}

// GenerateSection asks the server to draft a section. The returned section
// shows as generating; poll State for the result.
func (c *Client) GenerateSection(ctx context.Context, sessionID, sectionID string) (report.Section, error) {
	var sec report.Section
	err := c.do(ctx, http.MethodPost, sectionPath(sessionID, sectionID)+"/generate", nil, &sec)
	return sec, err
}

// SubmitReview submits a review verdict for a section awaiting review.
func (c *Client) SubmitReview(ctx context.Context, sessionID, sectionID string, accepted bool, feedback string) (report.Section, error) {
	payload := map[string]any{
		"accepted": accepted,
		"feedback": feedback,
	}
	var sec report.Section
	err := c.do(ctx, http.MethodPost, sectionPath(sessionID, sectionID)+"/review", payload, &sec)
	return sec, err
}

// ResetSection returns a section to planned. Accepted sections require force.
func (c *Client) ResetSection(ctx context.Context, sessionID, sectionID string, force bool) (report.Section, error) {
	var sec report.Section
	err := c.do(ctx, http.MethodPost, sectionPath(sessionID, sectionID)+"/reset", map[string]bool{"force": force}, &sec)
	return sec, err
}

// Finalize asks the server to validate and assemble the report.
func (c *Client) Finalize(ctx context.Context, sessionID string) (report.ReportState, error) {
	var state report.ReportState
	err := c.do(ctx, http.MethodPost, "/api/reports/"+url.PathEscape(sessionID)+"/finalize", nil, &state)
	return state, err
}

// Document is a downloaded report document.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Export downloads the completed report. An empty format means markdown.
func (c *Client) Export(ctx context.Context, sessionID, format string) (Document, error) {
	path := "/api/reports/" + url.PathEscape(sessionID) + "/export"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Document{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, decodeError(resp.StatusCode, data)
	}

	doc := Document{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		doc.Filename = params["filename"]
	}
	return doc, nil
}

// Stats fetches the server's runtime metrics snapshot.
func (c *Client) Stats(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap)
	return snap, err
}

// Health checks whether the server is reachable and serving.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func sectionPath(sessionID, sectionID string) string {
	return "/api/reports/" + url.PathEscape(sessionID) + "/sections/" + url.PathEscape(sectionID)
}
