package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/masahif/politecrawl/internal/config"
	"github.com/masahif/politecrawl/internal/fetcher"
	"github.com/masahif/politecrawl/internal/urlscope"
)

func init() {
	// Disable slog output during testing
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const site = "https://example.com"

// fakeFetcher serves canned HTML by URL and records every call in order.
type fakeFetcher struct {
	pages    map[string]string
	failures map[string]error
	calls    []string
	times    []time.Time
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, failures: map[string]error{}}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*fetcher.Response, error) {
	f.calls = append(f.calls, url)
	f.times = append(f.times, time.Now())

	if err, ok := f.failures[url]; ok {
		return nil, err
	}
	body, ok := f.pages[url]
	if !ok {
		return nil, &fetcher.FetchError{URL: url, Kind: fetcher.KindStatus, StatusCode: 404}
	}
	return &fetcher.Response{
		URL:         url,
		FinalURL:    url,
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}, nil
}

// recordingObserver keeps every notification for later assertions.
type recordingObserver struct {
	started   []int
	crawled   []string
	failed    []string
	finished  *Result
	startedAt string
}

func (r *recordingObserver) CrawlStarted(startURL string, _ int) { r.startedAt = startURL }
func (r *recordingObserver) PageStarted(position, _ int, _ string) {
	r.started = append(r.started, position)
}
func (r *recordingObserver) PageCrawled(rec PageRecord)     { r.crawled = append(r.crawled, rec.URL) }
func (r *recordingObserver) PageFailed(url string, _ error) { r.failed = append(r.failed, url) }
func (r *recordingObserver) CrawlFinished(res *Result)      { r.finished = res }

func page(title string, hrefs ...string) string {
	body := "<html><head><title>" + title + "</title></head><body><p>" + title + " body</p>"
	for _, h := range hrefs {
		body += fmt.Sprintf(`<a href="%s">%s</a>`, h, h)
	}
	return body + "</body></html>"
}

func testConfig(maxPages int) *config.CrawlConfig {
	cfg := config.DefaultConfig()
	cfg.StartURL = site + "/"
	cfg.MaxPages = maxPages
	cfg.Delay = 0
	return cfg
}

func runEngine(t *testing.T, cfg *config.CrawlConfig, f Fetcher, obs *recordingObserver) *Result {
	t.Helper()
	var opts []Option
	if obs != nil {
		opts = append(opts, WithObserver(obs))
	}
	engine, err := New(cfg, f, opts...)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return result
}

func TestBreadthFirstOrder(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a", "/b"),
		site + "/a": page("A", "/c"),
		site + "/b": page("B"),
		site + "/c": page("C"),
	})

	result := runEngine(t, testConfig(10), f, nil)

	expected := []string{site + "/", site + "/a", site + "/b", site + "/c"}
	if !reflect.DeepEqual(f.calls, expected) {
		t.Errorf("Fetch order = %v, want %v", f.calls, expected)
	}

	var recorded []string
	for _, p := range result.Pages {
		recorded = append(recorded, p.URL)
	}
	if !reflect.DeepEqual(recorded, expected) {
		t.Errorf("Record order = %v, want %v", recorded, expected)
	}
	if result.Visited != 4 || result.Pending != 0 {
		t.Errorf("Expected visited=4 pending=0, got visited=%d pending=%d", result.Visited, result.Pending)
	}
}

func TestCrossDomainLinksExcluded(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":    page("Home", "/one", "https://example.com/two", "https://other.org/three"),
		site + "/one": page("One"),
		site + "/two": page("Two"),
	})

	result := runEngine(t, testConfig(3), f, nil)

	if len(result.Pages) != 3 {
		t.Fatalf("Expected 3 pages, got %d", len(result.Pages))
	}
	if result.Pages[0].LinksFound != 2 {
		t.Errorf("Expected start page linksFound=2, got %d", result.Pages[0].LinksFound)
	}
	for _, p := range result.Pages {
		if !urlscope.InScopeString(p.URL, "example.com") {
			t.Errorf("Out of scope page recorded: %s", p.URL)
		}
	}
	for _, call := range f.calls {
		if !urlscope.InScopeString(call, "example.com") {
			t.Errorf("Out of scope URL fetched: %s", call)
		}
	}
}

func TestStartURLServerError(t *testing.T) {
	f := newFakeFetcher(nil)
	f.failures[site+"/"] = &fetcher.FetchError{URL: site + "/", Kind: fetcher.KindStatus, StatusCode: 500}
	obs := &recordingObserver{}

	result := runEngine(t, testConfig(5), f, obs)

	if len(result.Pages) != 0 {
		t.Errorf("Expected no pages, got %d", len(result.Pages))
	}
	if result.Visited != 0 {
		t.Errorf("Expected empty visited set, got %d", result.Visited)
	}
	if result.Pending != 0 {
		t.Errorf("Expected empty frontier, got %d", result.Pending)
	}
	if result.Attempts != 1 || result.Failures != 1 {
		t.Errorf("Expected 1 attempt and 1 failure, got %d/%d", result.Attempts, result.Failures)
	}
	if !reflect.DeepEqual(obs.failed, []string{site + "/"}) {
		t.Errorf("Expected failure notification for start URL, got %v", obs.failed)
	}
}

func TestSelfLinkNotRevisited(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/": page("Home", "/", site+"/", "./"),
	})

	result := runEngine(t, testConfig(10), f, nil)

	if len(f.calls) != 1 {
		t.Errorf("Expected a single fetch, got %v", f.calls)
	}
	if len(result.Pages) != 1 || result.Pending != 0 {
		t.Errorf("Expected 1 page and empty frontier, got %d pages, %d pending", len(result.Pages), result.Pending)
	}
}

func TestMaxPagesBound(t *testing.T) {
	pages := map[string]string{}
	for i := 0; i < 10; i++ {
		pages[fmt.Sprintf("%s/p%d", site, i)] = page(fmt.Sprintf("P%d", i), fmt.Sprintf("/p%d", i+1))
	}
	pages[site+"/"] = page("Home", "/p0")
	f := newFakeFetcher(pages)

	for _, limit := range []int{1, 2, 3, 7} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			f.calls = nil
			result := runEngine(t, testConfig(limit), f, nil)

			if result.Visited != limit {
				t.Errorf("Expected visited=%d, got %d", limit, result.Visited)
			}
			if len(result.Pages) != limit {
				t.Errorf("Expected %d pages, got %d", limit, len(result.Pages))
			}
			if result.Pending != 1 {
				t.Errorf("Expected the next chain link pending, got %d", result.Pending)
			}
		})
	}
}

func TestFrontierExhaustedBeforeLimit(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a"),
		site + "/a": page("A"),
	})

	result := runEngine(t, testConfig(50), f, nil)

	if result.Visited != 2 || result.Pending != 0 {
		t.Errorf("Expected visited=2 pending=0, got %d/%d", result.Visited, result.Pending)
	}
}

func TestFailedFetchDoesNotCount(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/broken", "/a", "/b"),
		site + "/a": page("A"),
		site + "/b": page("B"),
	})
	obs := &recordingObserver{}

	result := runEngine(t, testConfig(3), f, obs)

	expected := []string{site + "/", site + "/broken", site + "/a", site + "/b"}
	if !reflect.DeepEqual(f.calls, expected) {
		t.Errorf("Fetch order = %v, want %v", f.calls, expected)
	}
	if result.Visited != 3 || len(result.Pages) != 3 {
		t.Errorf("Expected 3 visited pages, got visited=%d pages=%d", result.Visited, len(result.Pages))
	}
	if !reflect.DeepEqual(obs.started, []int{1, 2, 2, 3}) {
		t.Errorf("Progress positions = %v, want [1 2 2 3]", obs.started)
	}
}

func TestFailedURLRediscovery(t *testing.T) {
	pages := map[string]string{
		site + "/":  page("Home", "/broken", "/a"),
		site + "/a": page("A", "/broken"),
	}

	t.Run("rediscovered failures are retried", func(t *testing.T) {
		f := newFakeFetcher(pages)
		runEngine(t, testConfig(10), f, nil)

		expected := []string{site + "/", site + "/broken", site + "/a", site + "/broken"}
		if !reflect.DeepEqual(f.calls, expected) {
			t.Errorf("Fetch order = %v, want %v", f.calls, expected)
		}
	})

	t.Run("skip failed suppresses retries", func(t *testing.T) {
		f := newFakeFetcher(pages)
		cfg := testConfig(10)
		cfg.SkipFailed = true
		runEngine(t, cfg, f, nil)

		expected := []string{site + "/", site + "/broken", site + "/a"}
		if !reflect.DeepEqual(f.calls, expected) {
			t.Errorf("Fetch order = %v, want %v", f.calls, expected)
		}
	})
}

func TestQueuedURLNotEnqueuedTwice(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a", "/b"),
		site + "/a": page("A", "/b", "/"),
		site + "/b": page("B", "/a"),
	})

	runEngine(t, testConfig(10), f, nil)

	expected := []string{site + "/", site + "/a", site + "/b"}
	if !reflect.DeepEqual(f.calls, expected) {
		t.Errorf("Fetch order = %v, want %v", f.calls, expected)
	}
}

func TestTrailingSlashIsDistinct(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":      page("Home", "/docs", "/docs/"),
		site + "/docs":  page("Docs"),
		site + "/docs/": page("Docs slash"),
	})

	result := runEngine(t, testConfig(10), f, nil)

	if len(result.Pages) != 3 {
		t.Errorf("Expected /docs and /docs/ to be crawled separately, got %d pages", len(result.Pages))
	}
}

func TestPageRecordContents(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/": `<html><body><p>héllo   wörld</p><script>ignored()</script></body></html>`,
	})

	result := runEngine(t, testConfig(1), f, nil)

	if len(result.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(result.Pages))
	}
	rec := result.Pages[0]
	if rec.Title != "No title" {
		t.Errorf("Expected 'No title', got %q", rec.Title)
	}
	if rec.TextLength != len([]rune("héllo wörld")) {
		t.Errorf("Expected text length %d, got %d", len([]rune("héllo wörld")), rec.TextLength)
	}
	if rec.StatusCode != 200 || rec.CrawledAt.IsZero() {
		t.Errorf("Expected fetch metadata, got %+v", rec)
	}
}

func TestPacing(t *testing.T) {
	const delay = 40 * time.Millisecond
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a", "/b"),
		site + "/a": page("A"),
		site + "/b": page("B"),
	})
	cfg := testConfig(3)
	cfg.Delay = delay

	start := time.Now()
	runEngine(t, cfg, f, nil)

	if len(f.times) != 3 {
		t.Fatalf("Expected 3 fetches, got %d", len(f.times))
	}
	if first := f.times[0].Sub(start); first >= delay {
		t.Errorf("First fetch should not be delayed, waited %v", first)
	}
	for i := 1; i < len(f.times); i++ {
		if gap := f.times[i].Sub(f.times[i-1]); gap < delay-5*time.Millisecond {
			t.Errorf("Gap before fetch %d = %v, want at least %v", i, gap, delay)
		}
	}
}

// slowFetcher delays every response and records when each fetch returned.
type slowFetcher struct {
	*fakeFetcher
	latency time.Duration
	ends    []time.Time
}

func (s *slowFetcher) Fetch(ctx context.Context, url string) (*fetcher.Response, error) {
	resp, err := s.fakeFetcher.Fetch(ctx, url)
	time.Sleep(s.latency)
	s.ends = append(s.ends, time.Now())
	return resp, err
}

func TestPacingWaitsAfterSlowFetch(t *testing.T) {
	const delay = 40 * time.Millisecond
	f := &slowFetcher{
		fakeFetcher: newFakeFetcher(map[string]string{
			site + "/":  page("Home", "/a", "/missing", "/b"),
			site + "/a": page("A"),
			site + "/b": page("B"),
		}),
		latency: 60 * time.Millisecond,
	}
	cfg := testConfig(3)
	cfg.Delay = delay

	runEngine(t, cfg, f, nil)

	if len(f.times) != 4 {
		t.Fatalf("Expected 4 fetches, got %d", len(f.times))
	}
	for i := 1; i < len(f.times); i++ {
		if idle := f.times[i].Sub(f.ends[i-1]); idle < delay-5*time.Millisecond {
			t.Errorf("Idle time before fetch %d = %v, want at least %v", i, idle, delay)
		}
	}
}

func TestRunOnlyOnce(t *testing.T) {
	f := newFakeFetcher(map[string]string{site + "/": page("Home")})
	engine, err := New(testConfig(1), f)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	if engine.Phase() != PhaseIdle {
		t.Errorf("Expected idle phase, got %s", engine.Phase())
	}
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if engine.Phase() != PhaseDone {
		t.Errorf("Expected done phase, got %s", engine.Phase())
	}
	if _, err := engine.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("Expected ErrAlreadyRun, got %v", err)
	}
	if len(f.calls) != 1 {
		t.Errorf("Second run must not fetch, got %v", f.calls)
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFakeFetcher(map[string]string{site + "/": page("Home")})
	engine, err := New(testConfig(1), f)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if result == nil || result.Pending != 1 || len(f.calls) != 0 {
		t.Errorf("Expected untouched frontier, got result=%+v calls=%v", result, f.calls)
	}
}

func TestCancelledWhilePacing(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a"),
		site + "/a": page("A"),
	})
	cfg := testConfig(5)
	cfg.Delay = time.Hour

	engine, err := New(cfg, f)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := engine.Run(ctx)
	if err == nil {
		t.Fatal("Expected pacing to be interrupted")
	}
	if len(result.Pages) != 1 || result.Pending != 1 {
		t.Errorf("Expected 1 page and /a still pending, got %d pages, %d pending", len(result.Pages), result.Pending)
	}
}

func TestNewValidation(t *testing.T) {
	f := newFakeFetcher(nil)

	tests := []struct {
		name    string
		mutate  func(*config.CrawlConfig)
		fetcher Fetcher
		wantErr error
	}{
		{"zero max pages", func(c *config.CrawlConfig) { c.MaxPages = 0 }, f, config.ErrInvalidMaxPages},
		{"negative delay", func(c *config.CrawlConfig) { c.Delay = -time.Second }, f, config.ErrNegativeDelay},
		{"relative start", func(c *config.CrawlConfig) { c.StartURL = "/docs" }, f, config.ErrInvalidStartURL},
		{"nil fetcher", func(c *config.CrawlConfig) {}, nil, ErrNilFetcher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(1)
			tt.mutate(cfg)
			if _, err := New(cfg, tt.fetcher); !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(nil, f); !errors.Is(err, ErrNilConfig) {
		t.Errorf("New(nil) error = %v, want %v", err, ErrNilConfig)
	}
}

func TestEngineDomain(t *testing.T) {
	cfg := testConfig(1)
	cfg.StartURL = "http://127.0.0.1:8080/start"
	engine, err := New(cfg, newFakeFetcher(nil))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	if engine.Domain() != "127.0.0.1:8080" {
		t.Errorf("Expected domain 127.0.0.1:8080, got %s", engine.Domain())
	}
}

func TestObserverNotifications(t *testing.T) {
	f := newFakeFetcher(map[string]string{
		site + "/":  page("Home", "/a", "/gone"),
		site + "/a": page("A"),
	})
	obs := &recordingObserver{}

	result := runEngine(t, testConfig(10), f, obs)

	if obs.startedAt != site+"/" {
		t.Errorf("Expected CrawlStarted with start URL, got %q", obs.startedAt)
	}
	if !reflect.DeepEqual(obs.crawled, []string{site + "/", site + "/a"}) {
		t.Errorf("Crawled notifications = %v", obs.crawled)
	}
	if !reflect.DeepEqual(obs.failed, []string{site + "/gone"}) {
		t.Errorf("Failed notifications = %v", obs.failed)
	}
	if obs.finished != result {
		t.Error("Expected CrawlFinished to receive the returned result")
	}
}

func TestExtractError(t *testing.T) {
	inner := errors.New("boom")
	err := &ExtractError{URL: site + "/x", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ExtractError should unwrap to its cause")
	}
	if err.Error() != "https://example.com/x: extraction failed: boom" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
