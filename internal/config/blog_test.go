package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBlogConfig(t *testing.T) {
	path := writeConfig(t, `
providers:
  ghost-main:
    type: ghost
    description: Main company blog
    url: https://blog.example.com
    key: admin-key
    imageGenerationModel: paint-1
    cdn: assets
defaults:
  provider: ghost-main
review:
  patterns:
    - confidential
    - embargo
  escalationTarget: ops
  timeout: 5m
cdns:
  assets:
    url: https://cdn.example.com
    token: cdn-token
imageModels:
  paint-1:
    url: https://images.example.com/v1/generate
    key: image-key
    model: paint-v1
`)

	cfg, err := LoadBlogConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	p, ok := cfg.Providers["ghost-main"]
	if !ok {
		t.Fatal("ghost-main provider not parsed")
	}
	if p.Type != "ghost" || p.URL != "https://blog.example.com" {
		t.Errorf("provider = %+v", p)
	}
	if cfg.Defaults.Provider != "ghost-main" {
		t.Errorf("default provider = %q", cfg.Defaults.Provider)
	}
	if len(cfg.Review.Patterns) != 2 || cfg.Review.EscalationTarget != "ops" {
		t.Errorf("review = %+v", cfg.Review)
	}
	if cfg.Review.Timeout.Duration() != 5*time.Minute {
		t.Errorf("review timeout = %v, want 5m", cfg.Review.Timeout)
	}
}

func TestLoadBlogConfigMissingFile(t *testing.T) {
	cfg, err := LoadBlogConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Providers) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestValidateRejectsBrokenReferences(t *testing.T) {
	cases := []struct {
		name string
		cfg  BlogConfig
	}{
		{
			name: "ghost without url",
			cfg: BlogConfig{
				Providers: map[string]ProviderConfig{"g": {Type: "ghost"}},
			},
		},
		{
			name: "unknown type",
			cfg: BlogConfig{
				Providers: map[string]ProviderConfig{"w": {Type: "wordpress"}},
			},
		},
		{
			name: "unconfigured cdn",
			cfg: BlogConfig{
				Providers: map[string]ProviderConfig{"m": {Type: "memory", CDN: "nope"}},
			},
		},
		{
			name: "unconfigured image model",
			cfg: BlogConfig{
				Providers: map[string]ProviderConfig{"m": {Type: "memory", ImageGenerationModel: "nope"}},
			},
		},
		{
			name: "unknown default provider",
			cfg: BlogConfig{
				Defaults: AgentDefaults{Provider: "nope"},
			},
		},
		{
			name: "negative review timeout",
			cfg: BlogConfig{
				Review: ReviewConfig{Timeout: Duration(-time.Second)},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
