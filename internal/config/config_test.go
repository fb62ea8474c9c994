package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxPages != 10 {
		t.Errorf("Expected max pages 10, got %d", cfg.MaxPages)
	}

	if cfg.Delay != 1*time.Second {
		t.Errorf("Expected delay 1s, got %v", cfg.Delay)
	}

	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("Expected request timeout 10s, got %v", cfg.RequestTimeout)
	}

	if cfg.RobotsTimeout != 5*time.Second {
		t.Errorf("Expected robots timeout 5s, got %v", cfg.RobotsTimeout)
	}

	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("Expected user agent %q, got %s", DefaultUserAgent, cfg.UserAgent)
	}

	if !cfg.CheckRobots {
		t.Errorf("Expected check robots true, got %v", cfg.CheckRobots)
	}

	if cfg.SkipFailed {
		t.Errorf("Expected skip failed false, got %v", cfg.SkipFailed)
	}

	if cfg.DatabasePath != "" {
		t.Errorf("Expected no database by default, got %s", cfg.DatabasePath)
	}

	if cfg.SitemapFormat != SitemapText {
		t.Errorf("Expected sitemap format text, got %s", cfg.SitemapFormat)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *CrawlConfig {
		cfg := DefaultConfig()
		cfg.StartURL = "https://example.com/"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*CrawlConfig)
		wantErr error
	}{
		{"valid config", func(c *CrawlConfig) {}, nil},
		{"zero delay", func(c *CrawlConfig) { c.Delay = 0 }, nil},
		{"single page", func(c *CrawlConfig) { c.MaxPages = 1 }, nil},
		{"markdown sitemap", func(c *CrawlConfig) { c.SitemapFormat = SitemapMarkdown }, nil},
		{"missing start url", func(c *CrawlConfig) { c.StartURL = "" }, ErrNoStartURL},
		{"relative start url", func(c *CrawlConfig) { c.StartURL = "/docs" }, ErrInvalidStartURL},
		{"schemeless start url", func(c *CrawlConfig) { c.StartURL = "example.com" }, ErrInvalidStartURL},
		{"zero max pages", func(c *CrawlConfig) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative max pages", func(c *CrawlConfig) { c.MaxPages = -3 }, ErrInvalidMaxPages},
		{"negative delay", func(c *CrawlConfig) { c.Delay = -time.Second }, ErrNegativeDelay},
		{"zero request timeout", func(c *CrawlConfig) { c.RequestTimeout = 0 }, ErrInvalidTimeout},
		{"zero robots timeout", func(c *CrawlConfig) { c.RobotsTimeout = 0 }, ErrInvalidTimeout},
		{"unknown sitemap format", func(c *CrawlConfig) { c.SitemapFormat = "xml" }, ErrInvalidSitemapFormat},
		{"unknown log format", func(c *CrawlConfig) { c.Log.Format = "yaml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
