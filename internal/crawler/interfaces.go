package crawler

import (
	"context"

	"github.com/masahif/politecrawl/internal/fetcher"
)

// Fetcher performs a single GET. Any error, including a non-2xx status,
// makes the page count as not fetched.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
}

// Observer receives progress notifications from the crawl loop. Calls are
// made synchronously from the loop, in order.
type Observer interface {
	CrawlStarted(startURL string, maxPages int)
	PageStarted(position, maxPages int, url string)
	PageCrawled(record PageRecord)
	PageFailed(url string, err error)
	CrawlFinished(result *Result)
}
