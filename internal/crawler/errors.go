package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned when Run is called on an engine that has already run
	ErrAlreadyRun = errors.New("crawl engine has already been run")
	// ErrNilFetcher is returned when no fetcher is supplied
	ErrNilFetcher = errors.New("fetcher cannot be nil")
	// ErrNilConfig is returned when no configuration is supplied
	ErrNilConfig = errors.New("configuration cannot be nil")
)

// ExtractError reports a page that was fetched but could not be processed.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s: extraction failed: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
