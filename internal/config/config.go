// Package config provides configuration management for the crawler.
// It defines configuration structures and default values for crawling parameters.
package config

import (
	"net/url"
	"time"
)

// Sitemap output formats
const (
	SitemapText     = "text"
	SitemapMarkdown = "markdown"
)

// DefaultUserAgent identifies the crawler honestly to the sites it visits.
const DefaultUserAgent = "PoliteCrawl/1.0 (+educational crawler)"

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // text or json
	File       string `mapstructure:"file" yaml:"file"`               // Optional log file path
	MaxSizeMB  int64  `mapstructure:"max_size_mb" yaml:"max_size_mb"` // Rotate the log file after this size
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"` // Rotated files to keep
}

// CrawlConfig holds crawler configuration
type CrawlConfig struct {
	// Core crawl parameters
	StartURL string        `mapstructure:"start_url" yaml:"start_url"` // Page the crawl starts from
	MaxPages int           `mapstructure:"max_pages" yaml:"max_pages"` // Stop after N successfully fetched pages
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`         // Pause between fetches

	// HTTP
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // Per-page request timeout
	RobotsTimeout  time.Duration `mapstructure:"robots_timeout" yaml:"robots_timeout"`   // robots.txt request timeout
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header

	// Behaviour
	CheckRobots bool `mapstructure:"check_robots" yaml:"check_robots"` // Report robots.txt before crawling (advisory)
	SkipFailed  bool `mapstructure:"skip_failed" yaml:"skip_failed"`   // Never re-enqueue a URL whose fetch failed
	Progress    bool `mapstructure:"progress" yaml:"progress"`         // Show a terminal spinner

	// Output
	SitemapPath   string `mapstructure:"sitemap_path" yaml:"sitemap_path"`     // Write a sitemap here when set
	SitemapFormat string `mapstructure:"sitemap_format" yaml:"sitemap_format"` // text or markdown
	DatabasePath  string `mapstructure:"database_path" yaml:"database_path"`   // SQLite results archive, empty disables it

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		MaxPages:       10,
		Delay:          1 * time.Second,
		RequestTimeout: 10 * time.Second,
		RobotsTimeout:  5 * time.Second,
		UserAgent:      DefaultUserAgent,
		CheckRobots:    true,
		SitemapFormat:  SitemapText,
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
	}
}

// Validate checks if the configuration is valid
func (c *CrawlConfig) Validate() error {
	if c.StartURL == "" {
		return ErrNoStartURL
	}

	u, err := url.Parse(c.StartURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidStartURL
	}

	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}

	if c.Delay < 0 {
		return ErrNegativeDelay
	}

	if c.RequestTimeout <= 0 || c.RobotsTimeout <= 0 {
		return ErrInvalidTimeout
	}

	switch c.SitemapFormat {
	case "", SitemapText, SitemapMarkdown:
	default:
		return ErrInvalidSitemapFormat
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	return nil
}
