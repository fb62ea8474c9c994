// Package sitemap renders crawled pages as a sitemap in plain text or Markdown.
package sitemap

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"

	"github.com/masahif/politecrawl/internal/config"
	"github.com/masahif/politecrawl/internal/crawler"
)

const banner = "SITEMAP\n" + "==================================================" + "\n\n"

// FormatText returns the plain text sitemap: a banner followed by one
// bullet and indented URL per page.
func FormatText(pages []crawler.PageRecord) string {
	var b strings.Builder
	b.WriteString(banner)
	for _, p := range pages {
		fmt.Fprintf(&b, "• %s\n  %s\n\n", p.Title, p.URL)
	}
	return b.String()
}

// WriteText writes the plain text sitemap to w.
func WriteText(w io.Writer, pages []crawler.PageRecord) error {
	_, err := io.WriteString(w, FormatText(pages))
	return err
}

// WriteMarkdown writes a Markdown sitemap with a crawl summary table and one
// table row per page. result may be nil.
func WriteMarkdown(w io.Writer, pages []crawler.PageRecord, result *crawler.Result) error {
	md := markdown.NewMarkdown(w)

	md.H1("Sitemap")
	md.PlainText("")

	if result != nil {
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows: [][]string{
				{"Pages", strconv.Itoa(len(pages))},
				{"Attempts", strconv.Itoa(result.Attempts)},
				{"Failures", strconv.Itoa(result.Failures)},
				{"Pending", strconv.Itoa(result.Pending)},
				{"Duration", result.Duration.Round(time.Millisecond).String()},
			},
		})
		md.PlainText("")
	}

	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages crawled.")
		return md.Build()
	}

	rows := make([][]string, 0, len(pages))
	for i, p := range pages {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			escapeCell(p.Title),
			p.URL,
			humanize.Comma(int64(p.TextLength)),
			strconv.Itoa(p.LinksFound),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "URL", "Text length", "Links"},
		Rows:   rows,
	})

	return md.Build()
}

// WriteFile writes the sitemap in format to path, replacing any existing file.
// An empty format means text.
func WriteFile(path, format string, pages []crawler.PageRecord, result *crawler.Result) (err error) {
	switch format {
	case "", config.SitemapText, config.SitemapMarkdown:
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidSitemapFormat, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create sitemap file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if format == config.SitemapMarkdown {
		return WriteMarkdown(f, pages, result)
	}
	return WriteText(f, pages)
}

// escapeCell keeps a table cell on one row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
