package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSizeForAspectRatio(t *testing.T) {
	cases := []struct {
		aspectRatio string
		want        Size
	}{
		{"square", SizeSquare},
		{"tall", SizeTall},
		{"wide", SizeWide},
		{"", SizeSquare},
		{"panoramic", SizeSquare},
	}
	for _, tc := range cases {
		if got := SizeForAspectRatio(tc.aspectRatio); got != tc.want {
			t.Errorf("SizeForAspectRatio(%q) = %q, want %q", tc.aspectRatio, got, tc.want)
		}
	}
}

func TestRegistryUnknownModel(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Client("missing"); err == nil {
		t.Fatal("expected an error for an unconfigured model")
	}
}

func TestHTTPClientGenerateImage(t *testing.T) {
	payload := []byte("fake image bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Size != string(SizeWide) {
			t.Errorf("size = %q, want %q", req.Size, SizeWide)
		}
		if req.N != 1 {
			t.Errorf("n = %d, want 1", req.N)
		}

		resp := generateResponse{}
		resp.Data = append(resp.Data, struct {
			B64JSON   string `json:"b64_json"`
			MediaType string `json:"media_type"`
		}{B64JSON: base64.StdEncoding.EncodeToString(payload)})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", "paint-1")
	images, err := c.GenerateImage(context.Background(), Request{Prompt: "a lighthouse", Size: SizeWide})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("len(images) = %d, want 1", len(images))
	}
	if images[0].MediaType != "image/png" {
		t.Errorf("MediaType = %q, want image/png default", images[0].MediaType)
	}
	if string(images[0].Data) != string(payload) {
		t.Error("decoded payload does not match")
	}
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "paint-1")
	if _, err := c.GenerateImage(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestHTTPClientEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", "paint-1")
	if _, err := c.GenerateImage(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected an error when the backend returns no images")
	}
}
