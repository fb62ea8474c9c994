package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"

	"github.com/masahif/politecrawl/internal/crawler"
)

// printResults lists every crawled page followed by a one-line summary.
func printResults(w io.Writer, result *crawler.Result) {
	fmt.Fprintf(w, "\nResults:\n")
	var downloaded uint64
	for i, page := range result.Pages {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, page.Title)
		fmt.Fprintf(w, "   URL: %s\n", page.URL)
		fmt.Fprintf(w, "   Text length: %s characters\n", humanize.Comma(int64(page.TextLength)))
		fmt.Fprintf(w, "   Links found: %d\n", page.LinksFound)
		downloaded += uint64(page.ResponseSize)
	}

	fmt.Fprintf(w, "\nCrawled %d %s in %s (%d failed, %d pending, %s downloaded)\n",
		len(result.Pages), pluralize(len(result.Pages), "page", "pages"),
		result.Duration.Round(time.Millisecond), result.Failures, result.Pending,
		humanize.Bytes(downloaded))
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// progressObserver shows the page being fetched next to a terminal spinner.
// The spinner stays silent when w is not a terminal.
type progressObserver struct {
	s *spinner.Spinner
}

func newProgressObserver(w io.Writer) *progressObserver {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	return &progressObserver{s: s}
}

func (p *progressObserver) CrawlStarted(startURL string, _ int) {
	p.setSuffix(" " + startURL)
	p.s.Start()
}

func (p *progressObserver) PageStarted(position, maxPages int, url string) {
	p.setSuffix(fmt.Sprintf(" [%d/%d] %s", position, maxPages, formatSpinnerURL(url)))
}

func (p *progressObserver) PageCrawled(crawler.PageRecord) {}

func (p *progressObserver) PageFailed(string, error) {}

func (p *progressObserver) CrawlFinished(*crawler.Result) {
	p.s.Stop()
}

func (p *progressObserver) setSuffix(suffix string) {
	p.s.Lock()
	p.s.Suffix = suffix
	p.s.Unlock()
}

// formatSpinnerURL keeps long URLs from wrapping the spinner line.
func formatSpinnerURL(url string) string {
	const maxLen = 60
	runes := []rune(url)
	if len(runes) <= maxLen {
		return url
	}
	return string(runes[:maxLen-3]) + "..."
}
