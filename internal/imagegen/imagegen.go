// Package imagegen provides image-generation model clients.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Size is one of the three fixed aspect-ratio presets supported by the
// image backends.
type Size string

const (
	SizeSquare Size = "1024x1024"
	SizeTall   Size = "1024x1536"
	SizeWide   Size = "1536x1024"
)

// SizeForAspectRatio maps the caller-facing aspect ratio names to the
// fixed presets. Unknown values fall back to square.
func SizeForAspectRatio(aspectRatio string) Size {
	switch aspectRatio {
	case "tall":
		return SizeTall
	case "wide":
		return SizeWide
	default:
		return SizeSquare
	}
}

// Request asks for N generated images.
type Request struct {
	Prompt string
	Size   Size
	N      int
}

// Image is one generated image.
type Image struct {
	MediaType string
	Data      []byte
}

// Client generates images from a prompt.
type Client interface {
	GenerateImage(ctx context.Context, req Request) ([]Image, error)
}

// Registry resolves model names to clients.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a client under a model name.
func (r *Registry) Register(model string, c Client) {
	r.clients[model] = c
}

// Client returns the client for a model name.
func (r *Registry) Client(model string) (Client, error) {
	c, ok := r.clients[model]
	if !ok {
		return nil, fmt.Errorf("image model %q is not configured", model)
	}
	return c, nil
}

// HTTPClient generates images through an OpenAI-style images endpoint.
type HTTPClient struct {
	url   string
	key   string
	model string
	http  *http.Client
}

// NewHTTPClient creates a client for one image backend.
func NewHTTPClient(url, key, model string) *HTTPClient {
	return &HTTPClient{
		url:   url,
		key:   key,
		model: model,
		http:  &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

type generateResponse struct {
	Data []struct {
		B64JSON   string `json:"b64_json"`
		MediaType string `json:"media_type"`
	} `json:"data"`
}

// GenerateImage requests images and decodes the base64 payloads.
func (c *HTTPClient) GenerateImage(ctx context.Context, req Request) ([]Image, error) {
	if req.N <= 0 {
		req.N = 1
	}
	if req.Size == "" {
		req.Size = SizeSquare
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		Size:   string(req.Size),
		N:      req.N,
	})
	if err != nil {
		return nil, fmt.Errorf("encode image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generate image: status %d: %s", resp.StatusCode, msg)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}

	images := make([]Image, 0, len(decoded.Data))
	for _, d := range decoded.Data {
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		mediaType := d.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		images = append(images, Image{MediaType: mediaType, Data: data})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("generate image: backend returned no images")
	}
	return images, nil
}
