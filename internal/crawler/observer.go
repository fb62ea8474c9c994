package crawler

import (
	"errors"
	"log/slog"

	"github.com/masahif/politecrawl/internal/fetcher"
)

// LogObserver reports crawl progress through the default slog logger.
type LogObserver struct{}

func (LogObserver) CrawlStarted(startURL string, maxPages int) {
	slog.Info("Starting crawl", "start_url", startURL, "limit", maxPages)
}

func (LogObserver) PageStarted(position, maxPages int, url string) {
	slog.Info("Crawling", "page", position, "limit", maxPages, "url", url)
}

func (LogObserver) PageCrawled(record PageRecord) {
	slog.Info("Page crawled", "url", record.URL, "links", record.LinksFound, "text_length", record.TextLength)
}

func (LogObserver) PageFailed(url string, err error) {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		slog.Warn("Fetch failed", "url", url, "kind", fetchErr.Kind, "status", fetchErr.StatusCode, "error", err)
		return
	}
	slog.Error("Unexpected error", "url", url, "error", err)
}

func (LogObserver) CrawlFinished(result *Result) {
	slog.Info("Crawl finished", "visited", result.Visited, "pending", result.Pending,
		"failures", result.Failures, "duration", result.Duration)
}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) CrawlStarted(startURL string, maxPages int) {
	for _, o := range m {
		o.CrawlStarted(startURL, maxPages)
	}
}

func (m MultiObserver) PageStarted(position, maxPages int, url string) {
	for _, o := range m {
		o.PageStarted(position, maxPages, url)
	}
}

func (m MultiObserver) PageCrawled(record PageRecord) {
	for _, o := range m {
		o.PageCrawled(record)
	}
}

func (m MultiObserver) PageFailed(url string, err error) {
	for _, o := range m {
		o.PageFailed(url, err)
	}
}

func (m MultiObserver) CrawlFinished(result *Result) {
	for _, o := range m {
		o.CrawlFinished(result)
	}
}
