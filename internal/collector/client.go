// Package collector provides an HTTP client for the content collector API,
// which re-fetches watched source documents on demand.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/docwatch/internal/domain"
)

// ErrNoContent is returned when the collector answered but produced no
// content for the source.
var ErrNoContent = errors.New("no content returned for source")

// resyncEndpoint is the collector extension endpoint for re-fetching a
// previously collected document.
const resyncEndpoint = "/ext/resync-source-document"

const defaultHTTPTimeout = 60 * time.Second

// ResyncOptions identifies the source to re-fetch. Link is set for sources
// addressed by URL; ChunkSource carries the raw source reference for
// connector-backed kinds.
type ResyncOptions struct {
	Link        string `json:"link,omitempty"`
	ChunkSource string `json:"chunkSource,omitempty"`
}

type resyncRequest struct {
	Type    string        `json:"type"`
	Options ResyncOptions `json:"options"`
}

type resyncResponse struct {
	Success bool    `json:"success"`
	Content *string `json:"content"`
	Reason  string  `json:"reason"`
}

// Client talks to the content collector API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a collector client. If httpClient is nil, a default
// client with a 60 second timeout is used.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// IsOnline reports whether the collector is reachable and responding.
func (c *Client) IsOnline(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Resync asks the collector to re-fetch a source document and returns the
// fresh page content. A response without content yields ErrNoContent.
func (c *Client) Resync(ctx context.Context, kind domain.SourceKind, opts ResyncOptions) (string, error) {
	payload, err := json.Marshal(resyncRequest{
		Type:    kind.String(),
		Options: opts,
	})
	if err != nil {
		return "", fmt.Errorf("marshal resync request: %w", err)
	}

	url := c.baseURL + resyncEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resync source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result resyncResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	if !result.Success || result.Content == nil || *result.Content == "" {
		if result.Reason != "" {
			return "", fmt.Errorf("%w: %s", ErrNoContent, result.Reason)
		}
		return "", ErrNoContent
	}

	return *result.Content, nil
}
