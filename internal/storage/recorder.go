package storage

import (
	"log/slog"

	"github.com/masahif/politecrawl/internal/crawler"
)

// Recorder archives a crawl as it runs. It implements crawler.Observer.
// Storage errors are logged and never interrupt the crawl.
type Recorder struct {
	store *SQLiteStorage
	info  RunInfo
	runID string
	seq   int
}

// NewRecorder creates a recorder that opens a run for info when the crawl starts.
func NewRecorder(store *SQLiteStorage, info RunInfo) *Recorder {
	return &Recorder{store: store, info: info}
}

// RunID returns the ID of the run opened by CrawlStarted, or "" before that.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) CrawlStarted(_ string, _ int) {
	id, err := r.store.BeginRun(r.info)
	if err != nil {
		slog.Error("Failed to record run", "error", err)
		return
	}
	r.runID = id
	slog.Debug("Recording run", "run_id", id)
}

func (r *Recorder) PageStarted(_, _ int, _ string) {}

func (r *Recorder) PageCrawled(record crawler.PageRecord) {
	if r.runID == "" {
		return
	}
	r.seq++
	if err := r.store.SavePage(r.runID, r.seq, record); err != nil {
		slog.Error("Failed to record page", "url", record.URL, "error", err)
	}
}

func (r *Recorder) PageFailed(url string, err error) {
	if r.runID == "" {
		return
	}
	if saveErr := r.store.SaveFailure(r.runID, url, err); saveErr != nil {
		slog.Error("Failed to record failure", "url", url, "error", saveErr)
	}
}

func (r *Recorder) CrawlFinished(result *crawler.Result) {
	if r.runID == "" {
		return
	}
	if err := r.store.FinishRun(r.runID, result); err != nil {
		slog.Error("Failed to finish run", "run_id", r.runID, "error", err)
	}
}
