package storage

const schemaSQL = `
-- One row per crawl run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY NOT NULL,
    start_url TEXT NOT NULL,
    domain TEXT NOT NULL,
    max_pages INTEGER NOT NULL,
    delay_ms INTEGER NOT NULL,
    user_agent TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT,

    -- Final counters (NULL until the run finishes)
    visited INTEGER,
    pending INTEGER,
    attempts INTEGER,
    failures INTEGER
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Page records in fetch order
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    text_length INTEGER NOT NULL,
    links_found INTEGER NOT NULL,
    status_code INTEGER,
    content_type TEXT,
    response_size_bytes INTEGER,
    fetch_ms INTEGER,
    crawled_at TEXT NOT NULL,
    UNIQUE(run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id, seq);
CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

-- Failed fetches and extractions
CREATE TABLE IF NOT EXISTS crawl_errors (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    error_type TEXT NOT NULL,
    status_code INTEGER,
    error_message TEXT,
    occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_errors_run ON crawl_errors(run_id);
CREATE INDEX IF NOT EXISTS idx_errors_type ON crawl_errors(error_type);

-- Free-form key-value pairs attached to a run
CREATE TABLE IF NOT EXISTS run_meta (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (run_id, key)
);
`
