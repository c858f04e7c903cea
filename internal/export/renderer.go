package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Renderer converts an assembled markdown document into a binary format.
type Renderer interface {
	Render(ctx context.Context, title string, markdown []byte, format Format) ([]byte, error)
}

// HTTPRenderer calls an external document conversion service over HTTP.
type HTTPRenderer struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check that HTTPRenderer implements Renderer.
var _ Renderer = (*HTTPRenderer)(nil)

// NewHTTPRenderer creates a client for the render service.
func NewHTTPRenderer(baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Render calls POST /api/render and returns the raw document bytes.
func (c *HTTPRenderer) Render(ctx context.Context, title string, markdown []byte, format Format) ([]byte, error) {
	body, _ := json.Marshal(map[string]string{
		"title":    title,
		"markdown": string(markdown),
		"format":   string(format),
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("renderer /api/render: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("renderer /api/render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("renderer /api/render returned %d: %s", resp.StatusCode, string(msg))
	}
	return io.ReadAll(resp.Body)
}
