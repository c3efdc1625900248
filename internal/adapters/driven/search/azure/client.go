// Package azure implements the search index port against Azure AI
// Search's REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.SearchIndex = (*Client)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2023-11-01"
	DefaultTimeout    = 60 * time.Second
)

// Service batch limits for document uploads.
const (
	maxBatchActions = 1000
	maxBatchBytes   = 16 * 1024 * 1024
)

// Config holds configuration for the search client.
type Config struct {
	// Endpoint is the search service URL (required).
	Endpoint string

	// APIKey is the admin or query key (required).
	APIKey string

	// IndexName is the target index (required).
	IndexName string

	// APIVersion selects the service API version.
	APIVersion string

	// Timeout bounds a single request (default 60s).
	Timeout time.Duration

	// HTTPClient overrides the default client. Used in tests.
	HTTPClient *http.Client
}

// Client talks to one Azure AI Search index.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	indexName  string
	apiVersion string
}

// NewClient creates a search client for an index.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search: API key is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("search: index name is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: client,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		indexName:  cfg.IndexName,
		apiVersion: cfg.APIVersion,
	}, nil
}

// IndexName returns the configured index name.
func (c *Client) IndexName() string {
	return c.indexName
}

// url builds a service URL with the api-version query parameter.
func (c *Client) url(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return c.endpoint + path + sep + "api-version=" + c.apiVersion
}

// do sends a JSON request and decodes the response into out when it
// is non-nil. Service throttling and outages map to domain errors so
// the shared retry policy can classify them.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("search: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return 0, fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("search: %w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("search: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, fmt.Errorf("search: %w: %s", domain.ErrRateLimited, serviceMessage(respBody))
	case resp.StatusCode >= http.StatusInternalServerError:
		return resp.StatusCode, fmt.Errorf("search: %w: status %d: %s", domain.ErrTransient, resp.StatusCode, serviceMessage(respBody))
	}

	if out != nil && resp.StatusCode < http.StatusBadRequest && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("search: decode response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("search: status %d: %s", resp.StatusCode, serviceMessage(respBody))
	}

	return resp.StatusCode, nil
}

// serviceMessage extracts the error message from a service response.
func serviceMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
