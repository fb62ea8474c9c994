// Package robots reports on a site's robots.txt before a crawl.
//
// The report is informational only. Directives are not parsed and the
// result never decides whether a page is fetched.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/masahif/politecrawl/internal/fetcher"
)

// DefaultTimeout bounds the robots.txt request.
const DefaultTimeout = 5 * time.Second

// previewRunes is how much of robots.txt is echoed back to the operator.
const previewRunes = 500

// Getter fetches a URL regardless of status.
type Getter interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

// Report describes what was found at a site's robots.txt location.
type Report struct {
	RobotsURL  string
	Found      bool
	StatusCode int
	Preview    string
	Err        error
}

// Advisor fetches robots.txt and logs what it found.
type Advisor struct {
	getter  Getter
	timeout time.Duration
}

// NewAdvisor creates an advisor. A non-positive timeout means DefaultTimeout.
func NewAdvisor(getter Getter, timeout time.Duration) *Advisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Advisor{getter: getter, timeout: timeout}
}

// RobotsURL returns {scheme}://{host}/robots.txt for pageURL.
func RobotsURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("URL %q must be absolute", pageURL)
	}
	return fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host), nil
}

// Check fetches robots.txt for pageURL and describes the outcome.
func (a *Advisor) Check(ctx context.Context, pageURL string) Report {
	robotsURL, err := RobotsURL(pageURL)
	if err != nil {
		return Report{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	report := Report{RobotsURL: robotsURL}
	resp, err := a.getter.Get(ctx, robotsURL)
	if err != nil {
		report.Err = err
		return report
	}

	report.StatusCode = resp.StatusCode
	if resp.StatusCode == 200 {
		report.Found = true
		report.Preview = preview(string(resp.Body))
	}
	return report
}

// Advise logs the robots.txt report for pageURL. It always returns true:
// the crawl proceeds whatever robots.txt says or whether it exists.
func (a *Advisor) Advise(ctx context.Context, pageURL string) bool {
	report := a.Check(ctx, pageURL)

	switch {
	case report.Err != nil:
		slog.Warn("robots.txt unreachable", "url", report.RobotsURL, "error", report.Err)
	case report.Found:
		slog.Info("robots.txt found", "url", report.RobotsURL)
		slog.Info("robots.txt preview", "content", report.Preview)
	default:
		slog.Info("No robots.txt", "url", report.RobotsURL, "status", report.StatusCode)
	}

	return true
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	return string([]rune(content)[:previewRunes])
}
