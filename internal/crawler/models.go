package crawler

import "time"

// Phase is the lifecycle state of an Engine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// PageRecord summarizes one successfully fetched and parsed page.
type PageRecord struct {
	URL        string
	Title      string // "No title" when the page has none
	TextLength int    // Visible text length in characters
	LinksFound int    // Distinct in-scope links on the page

	StatusCode    int
	ContentType   string
	ResponseSize  int64
	FetchDuration time.Duration
	CrawledAt     time.Time // UTC
}

// Result is what a finished crawl hands back.
type Result struct {
	Pages    []PageRecord // In fetch order
	Visited  int          // Size of the visited set at exit
	Pending  int          // Frontier length at exit
	Attempts int          // Fetches issued, successful or not
	Failures int          // Pages that produced no record
	Duration time.Duration
}
