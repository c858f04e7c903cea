package generator

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

// HTTP calls an external generation service over HTTP.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check that HTTP implements Generator.
var _ Generator = (*HTTP)(nil)

// NewHTTP creates a client for the generation service. Drafting is slow, so
// the client timeout is generous; callers bound individual attempts with the
// context.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Generate calls POST /api/generate-section.
func (c *HTTP) Generate(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("generator: marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/api/generate-section", body)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if err := checkResp(resp, "/api/generate-section"); err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("generator /api/generate-section: decode: %w", err)
	}
	if result.Content == "" {
		return Result{}, fmt.Errorf("generator returned empty content for section %s", req.SectionID)
	}
	return result, nil
}

func (c *HTTP) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", path, err)
	}
	return resp, nil
}

// checkResp reads the response body and returns an error if the status is
// not 2xx. On error it includes the upstream body for debugging.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("generator %s returned %d: %s", path, resp.StatusCode, string(body))
}
