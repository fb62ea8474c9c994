// Package storage archives crawl results in SQLite.
// It records runs, their page records and their failures. It is a results
// archive only; nothing in it can resume a crawl.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/masahif/politecrawl/internal/crawler"
	"github.com/masahif/politecrawl/internal/fetcher"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is unknown
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a crawl run as it starts.
type RunInfo struct {
	StartURL  string
	Domain    string
	MaxPages  int
	Delay     time.Duration
	UserAgent string
}

// Run is a stored crawl run.
type Run struct {
	ID         string
	StartURL   string
	Domain     string
	MaxPages   int
	Delay      time.Duration
	UserAgent  string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Visited    int
	Pending    int
	Attempts   int
	Failures   int
}

// Failure is a stored page failure.
type Failure struct {
	URL        string
	Kind       string
	StatusCode int
	Message    string
	OccurredAt time.Time
}

// SQLiteStorage stores crawl results in a SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginRun inserts a new run and returns its ID.
func (s *SQLiteStorage) BeginRun(info RunInfo) (string, error) {
	id := uuid.NewString()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, start_url, domain, max_pages, delay_ms, user_agent, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, info.StartURL, info.Domain, info.MaxPages, info.Delay.Milliseconds(), info.UserAgent,
		time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("failed to begin run: %w", err)
	}
	return id, nil
}

// SavePage stores the seq-th page record of a run.
func (s *SQLiteStorage) SavePage(runID string, seq int, record crawler.PageRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO pages (
			run_id, seq, url, title, text_length, links_found,
			status_code, content_type, response_size_bytes, fetch_ms, crawled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		seq,
		record.URL,
		record.Title,
		record.TextLength,
		record.LinksFound,
		record.StatusCode,
		record.ContentType,
		record.ResponseSize,
		record.FetchDuration.Milliseconds(),
		record.CrawledAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", record.URL, err)
	}
	return nil
}

// SaveFailure stores a failed page with the error's kind.
func (s *SQLiteStorage) SaveFailure(runID, url string, cause error) error {
	kind, status := classifyFailure(cause)
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	_, err := s.db.Exec(`
		INSERT INTO crawl_errors (run_id, url, error_type, status_code, error_message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, url, kind, status, message, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to save failure for %s: %w", url, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *SQLiteStorage) FinishRun(runID string, result *crawler.Result) error {
	res, err := s.db.Exec(`
		UPDATE runs SET
			finished_at = ?,
			visited = ?,
			pending = ?,
			attempts = ?,
			failures = ?
		WHERE id = ?
	`, time.Now().UTC().Format(timeLayout), result.Visited, result.Pending, result.Attempts, result.Failures, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// SetMeta attaches a key-value pair to a run, replacing any previous value
func (s *SQLiteStorage) SetMeta(runID, key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

// GetMeta retrieves a run's metadata value
func (s *SQLiteStorage) GetMeta(runID, key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// LatestRun loads the most recently started run.
func (s *SQLiteStorage) LatestRun() (*Run, error) {
	var runID string
	err := s.db.QueryRow("SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return s.GetRun(runID)
}

// GetRun loads a run by ID.
func (s *SQLiteStorage) GetRun(runID string) (*Run, error) {
	var (
		run        Run
		delayMS    int64
		userAgent  sql.NullString
		startedAt  string
		finishedAt sql.NullString
		visited    sql.NullInt64
		pending    sql.NullInt64
		attempts   sql.NullInt64
		failures   sql.NullInt64
	)

	err := s.db.QueryRow(`
		SELECT id, start_url, domain, max_pages, delay_ms, user_agent, started_at,
			finished_at, visited, pending, attempts, failures
		FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.StartURL, &run.Domain, &run.MaxPages, &delayMS, &userAgent,
		&startedAt, &finishedAt, &visited, &pending, &attempts, &failures)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Delay = time.Duration(delayMS) * time.Millisecond
	run.UserAgent = userAgent.String
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if finishedAt.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finishedAt.String); err != nil {
			return nil, fmt.Errorf("invalid finished_at %q: %w", finishedAt.String, err)
		}
	}
	run.Visited = int(visited.Int64)
	run.Pending = int(pending.Int64)
	run.Attempts = int(attempts.Int64)
	run.Failures = int(failures.Int64)

	return &run, nil
}

// Pages returns a run's page records in fetch order.
func (s *SQLiteStorage) Pages(runID string) ([]crawler.PageRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, title, text_length, links_found, status_code, content_type,
			response_size_bytes, fetch_ms, crawled_at
		FROM pages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []crawler.PageRecord
	for rows.Next() {
		var (
			rec         crawler.PageRecord
			contentType sql.NullString
			fetchMS     int64
			crawledAt   string
		)
		if err := rows.Scan(&rec.URL, &rec.Title, &rec.TextLength, &rec.LinksFound, &rec.StatusCode,
			&contentType, &rec.ResponseSize, &fetchMS, &crawledAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		rec.ContentType = contentType.String
		rec.FetchDuration = time.Duration(fetchMS) * time.Millisecond
		if rec.CrawledAt, err = time.Parse(timeLayout, crawledAt); err != nil {
			return nil, fmt.Errorf("invalid crawled_at %q: %w", crawledAt, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Failures returns a run's failures in the order they occurred.
func (s *SQLiteStorage) Failures(runID string) ([]Failure, error) {
	rows, err := s.db.Query(`
		SELECT url, error_type, status_code, error_message, occurred_at
		FROM crawl_errors
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []Failure
	for rows.Next() {
		var (
			f          Failure
			status     sql.NullInt64
			message    sql.NullString
			occurredAt string
		)
		if err := rows.Scan(&f.URL, &f.Kind, &status, &message, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.StatusCode = int(status.Int64)
		f.Message = message.String
		if f.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("invalid occurred_at %q: %w", occurredAt, err)
		}
		failures = append(failures, f)
	}

	return failures, rows.Err()
}

// classifyFailure maps a crawl error to its stored error_type and status code.
func classifyFailure(err error) (string, int) {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind), fetchErr.StatusCode
	}
	var extractErr *crawler.ExtractError
	if errors.As(err, &extractErr) {
		return "extract_error", 0
	}
	return "unknown", 0
}
