// Package cdn uploads assets to named CDN endpoints.
package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// UploadOptions carries metadata for an upload.
type UploadOptions struct {
	Filename    string
	ContentType string
}

// UploadResult identifies the stored asset.
type UploadResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Uploader uploads bytes to a named CDN.
type Uploader interface {
	Upload(ctx context.Context, cdnName string, data []byte, opts UploadOptions) (*UploadResult, error)
}

// Endpoint is the configuration of one CDN target.
type Endpoint struct {
	URL   string
	Token string
}

// Client is an HTTP Uploader over a set of named endpoints.
type Client struct {
	endpoints map[string]Endpoint
	http      *http.Client
}

// NewClient creates an uploader for the configured endpoints.
func NewClient(endpoints map[string]Endpoint) *Client {
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload POSTs the asset bytes to the named endpoint and decodes the
// {id, url} response. Upstream failures are wrapped and propagated;
// retrying is the caller's decision.
func (c *Client) Upload(ctx context.Context, cdnName string, data []byte, opts UploadOptions) (*UploadResult, error) {
	ep, ok := c.endpoints[cdnName]
	if !ok {
		return nil, fmt.Errorf("cdn %q is not configured", cdnName)
	}

	uploadURL := ep.URL + "/upload?filename=" + url.QueryEscape(opts.Filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", opts.ContentType)
	if ep.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ep.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload to cdn %q: %w", cdnName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upload to cdn %q: status %d: %s", cdnName, resp.StatusCode, body)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}
