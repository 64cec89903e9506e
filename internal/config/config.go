// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration. Process-level settings
// come from environment variables; the blog stack (providers, CDNs,
// image models, review gate) comes from a YAML file referenced by
// BLOG_CONFIG.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	SessionTTL  time.Duration
	Blog        BlogConfig
}

// Load reads configuration from environment variables and the blog
// configuration file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/blog.db"),
		SessionTTL:  getEnvDuration("SESSION_TTL", 30*24*time.Hour),
	}

	blogPath := getEnv("BLOG_CONFIG", "./blog.yaml")
	blog, err := LoadBlogConfig(blogPath)
	if err != nil {
		return nil, fmt.Errorf("load blog config %q: %w", blogPath, err)
	}
	cfg.Blog = *blog

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	return c.Blog.Validate()
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
