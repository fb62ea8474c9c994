// Package crawler provides the core web crawling functionality.
// It implements a sequential, breadth-first crawl of a single host with
// request pacing and per-page error recovery.
package crawler

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/masahif/politecrawl/internal/config"
	"github.com/masahif/politecrawl/internal/parser"
	"github.com/masahif/politecrawl/internal/urlscope"
)

// Engine crawls one site once. It is not safe for concurrent use.
type Engine struct {
	startURL   string
	domain     string
	maxPages   int
	skipFailed bool

	fetcher  Fetcher
	pacer    *Pacer
	observer Observer

	phase Phase
	state *crawlState
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver replaces the default log observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// New creates an engine for cfg.StartURL. The domain is fixed here from the
// start URL's host. Invalid limits fail immediately instead of producing an
// empty crawl.
func New(cfg *config.CrawlConfig, f Fetcher, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if f == nil {
		return nil, ErrNilFetcher
	}
	if cfg.MaxPages < 1 {
		return nil, config.ErrInvalidMaxPages
	}
	if cfg.Delay < 0 {
		return nil, config.ErrNegativeDelay
	}

	domain, err := urlscope.Domain(cfg.StartURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidStartURL, err)
	}

	e := &Engine{
		startURL:   cfg.StartURL,
		domain:     domain,
		maxPages:   cfg.MaxPages,
		skipFailed: cfg.SkipFailed,
		fetcher:    f,
		pacer:      NewPacer(cfg.Delay),
		observer:   LogObserver{},
		phase:      PhaseIdle,
		state:      newCrawlState(cfg.StartURL),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Domain returns the host the crawl is confined to.
func (e *Engine) Domain() string {
	return e.domain
}

// Phase returns the engine's lifecycle state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Run crawls until maxPages pages have been fetched or the frontier is empty.
// Page failures are reported to the observer and never abort the run. A
// cancelled ctx stops the loop early; the partial result is returned along
// with ctx's error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.phase != PhaseIdle {
		return nil, ErrAlreadyRun
	}
	e.phase = PhaseRunning
	defer func() { e.phase = PhaseDone }()

	startTime := time.Now()
	st := e.state
	e.observer.CrawlStarted(e.startURL, e.maxPages)

	var runErr error
	for st.pending() > 0 && st.visitedCount() < e.maxPages {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		pageURL := st.dequeue()
		if st.isVisited(pageURL) {
			continue
		}

		if st.visitedCount() > 0 {
			if err := e.pacer.Wait(ctx); err != nil {
				st.requeueFront(pageURL)
				runErr = err
				break
			}
		}

		st.attempts++
		e.observer.PageStarted(st.visitedCount()+1, e.maxPages, pageURL)
		out := e.process(ctx, pageURL)
		e.pacer.Mark()
		e.apply(pageURL, out)
	}

	result := &Result{
		Pages:    append([]PageRecord(nil), st.pages...),
		Visited:  st.visitedCount(),
		Pending:  st.pending(),
		Attempts: st.attempts,
		Failures: st.failures,
		Duration: time.Since(startTime),
	}
	e.observer.CrawlFinished(result)

	return result, runErr
}

// outcome is the result of fetching and extracting one page.
type outcome struct {
	fetched bool // the fetch succeeded, so the URL joins the visited set
	record  *PageRecord
	links   []string
	err     error
}

// process fetches and extracts pageURL without touching crawl state.
func (e *Engine) process(ctx context.Context, pageURL string) (out outcome) {
	resp, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return outcome{err: err}
	}
	out.fetched = true

	defer func() {
		if r := recover(); r != nil {
			out.record = nil
			out.links = nil
			out.err = &ExtractError{URL: pageURL, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	page, err := parser.Parse(pageURL, resp.Body, e.domain)
	if err != nil {
		out.err = &ExtractError{URL: pageURL, Err: err}
		return out
	}

	out.record = &PageRecord{
		URL:           pageURL,
		Title:         page.Title,
		TextLength:    utf8.RuneCountInString(page.Text),
		LinksFound:    len(page.Links),
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		ResponseSize:  int64(len(resp.Body)),
		FetchDuration: resp.Metrics.DownloadTime,
		CrawledAt:     time.Now().UTC(),
	}
	out.links = page.Links
	return out
}

// apply folds one outcome into the crawl state.
func (e *Engine) apply(pageURL string, out outcome) {
	st := e.state

	if out.fetched {
		st.markVisited(pageURL)
	}

	if out.err != nil {
		st.failures++
		if !out.fetched && e.skipFailed {
			st.markFailed(pageURL)
		}
		e.observer.PageFailed(pageURL, out.err)
		return
	}

	st.pages = append(st.pages, *out.record)
	for _, link := range out.links {
		st.enqueue(link)
	}
	e.observer.PageCrawled(*out.record)
}
