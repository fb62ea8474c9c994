package config

import "errors"

var (
	// ErrNoStartURL is returned when no start URL is provided
	ErrNoStartURL = errors.New("no start URL provided")
	// ErrInvalidStartURL is returned when the start URL is not an absolute URL
	ErrInvalidStartURL = errors.New("start_url must be an absolute URL with scheme and host")
	// ErrInvalidMaxPages is returned when max_pages is less than 1
	ErrInvalidMaxPages = errors.New("max_pages must be at least 1")
	// ErrNegativeDelay is returned when delay is negative
	ErrNegativeDelay = errors.New("delay cannot be negative")
	// ErrInvalidTimeout is returned when a request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout and robots_timeout must be greater than 0")
	// ErrInvalidSitemapFormat is returned for an unknown sitemap format
	ErrInvalidSitemapFormat = errors.New("sitemap_format must be 'text' or 'markdown'")
	// ErrInvalidLogFormat is returned for an unknown log format
	ErrInvalidLogFormat = errors.New("log.format must be 'text' or 'json'")
)
