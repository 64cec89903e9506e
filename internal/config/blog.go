package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BlogConfig is the parsed blog configuration file: which provider
// backends exist, where images are generated and uploaded, and the
// publish review gate.
type BlogConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Defaults    AgentDefaults               `yaml:"defaults"`
	Review      ReviewConfig                `yaml:"review"`
	CDNs        map[string]CDNConfig        `yaml:"cdns"`
	ImageModels map[string]ImageModelConfig `yaml:"imageModels"`
}

// ProviderConfig describes one blog backend.
type ProviderConfig struct {
	// Type selects the backend implementation: "ghost" or "memory".
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Key         string `yaml:"key"`

	// ImageGenerationModel and CDN name the collaborators used when
	// generating a featured image for a post on this backend.
	ImageGenerationModel string `yaml:"imageGenerationModel"`
	CDN                  string `yaml:"cdn"`
}

// AgentDefaults are the state defaults a new session starts with.
type AgentDefaults struct {
	Provider string `yaml:"provider"`
}

// ReviewConfig gates automatic publication. Posts whose content
// matches any pattern are escalated to the target instead of being
// published directly. A zero timeout waits indefinitely.
type ReviewConfig struct {
	Patterns         []string `yaml:"patterns"`
	EscalationTarget string   `yaml:"escalationTarget"`
	Timeout          Duration `yaml:"timeout"`
}

// Duration wraps time.Duration for YAML parsing from strings like "5m"
// or plain numbers interpreted as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// CDNConfig describes one upload endpoint.
type CDNConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// ImageModelConfig describes one image-generation backend.
type ImageModelConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
}

// LoadBlogConfig parses the YAML blog configuration file. A missing
// file yields an empty configuration so the server can boot with no
// providers in development.
func LoadBlogConfig(path string) (*BlogConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &BlogConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blog config: %w", err)
	}

	var cfg BlogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse blog config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-references between providers and their named
// collaborators.
func (c *BlogConfig) Validate() error {
	for name, p := range c.Providers {
		switch p.Type {
		case "ghost":
			if p.URL == "" {
				return fmt.Errorf("provider %q: url is required for type ghost", name)
			}
		case "memory", "":
		default:
			return fmt.Errorf("provider %q: unknown type %q", name, p.Type)
		}
		if p.CDN != "" {
			if _, ok := c.CDNs[p.CDN]; !ok {
				return fmt.Errorf("provider %q: cdn %q is not configured", name, p.CDN)
			}
		}
		if p.ImageGenerationModel != "" {
			if _, ok := c.ImageModels[p.ImageGenerationModel]; !ok {
				return fmt.Errorf("provider %q: image model %q is not configured", name, p.ImageGenerationModel)
			}
		}
	}
	if c.Defaults.Provider != "" {
		if _, ok := c.Providers[c.Defaults.Provider]; !ok {
			return fmt.Errorf("default provider %q is not configured", c.Defaults.Provider)
		}
	}
	if c.Review.Timeout < 0 {
		return fmt.Errorf("review timeout cannot be negative")
	}
	return nil
}
