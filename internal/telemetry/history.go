// Package telemetry records local search history and aggregate query
// metrics in a SQLite database. Everything stays on the user's disk;
// nothing is reported anywhere.
package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	naragerr "github.com/naragtive/naragtive/internal/errors"
)

// historyLimit caps the search_history table; older rows are pruned.
const historyLimit = 500

// SearchRecord is one completed search.
type SearchRecord struct {
	Store       string
	Query       string
	ResultCount int
	Degraded    bool
	Reranked    bool
	Elapsed     time.Duration
	At          time.Time
}

// History is the SQLite-backed telemetry store.
type History struct {
	db *sql.DB
}

// Open creates or opens the history database and applies the schema.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &History{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		store TEXT NOT NULL,
		query TEXT NOT NULL,
		result_count INTEGER NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0,
		reranked INTEGER NOT NULL DEFAULT 0,
		elapsed_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_created ON search_history(created_at DESC);

	-- Query terms with frequency, for suggestion/stats display.
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Latency histogram, aggregated daily.
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, fmt.Errorf("create telemetry schema: %w", err))
	}
	return nil
}

// RecordSearch appends one search to the history and updates the
// aggregates in a single transaction.
func (h *History) RecordSearch(rec SearchRecord) error {
	tx, err := h.db.Begin()
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO search_history (store, query, result_count, degraded, reranked, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Store, rec.Query, rec.ResultCount,
		boolToInt(rec.Degraded), boolToInt(rec.Reranked), rec.Elapsed.Milliseconds())
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	_, err = tx.Exec(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET count = count + 1, last_seen = CURRENT_TIMESTAMP`,
		rec.Query)
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	date := time.Now().UTC().Format("2006-01-02")
	_, err = tx.Exec(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, 1)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + 1`,
		date, latencyBucket(rec.Elapsed))
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	// Prune history beyond the cap.
	_, err = tx.Exec(`
		DELETE FROM search_history
		WHERE id NOT IN (SELECT id FROM search_history ORDER BY id DESC LIMIT ?)`,
		historyLimit)
	if err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return naragerr.Wrap(naragerr.ErrCodeSaveFailed, err)
	}
	return nil
}

// Recent returns the newest history entries, newest first.
func (h *History) Recent(limit int) ([]SearchRecord, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := h.db.Query(`
		SELECT store, query, result_count, degraded, reranked, elapsed_ms, created_at
		FROM search_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchRecord
	for rows.Next() {
		var rec SearchRecord
		var degraded, reranked int
		var elapsedMs int64
		var createdAt string
		if err := rows.Scan(&rec.Store, &rec.Query, &rec.ResultCount, &degraded, &reranked, &elapsedMs, &createdAt); err != nil {
			return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
		}
		rec.Degraded = degraded != 0
		rec.Reranked = reranked != 0
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if at, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			rec.At = at
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TermCount is one query term with its frequency.
type TermCount struct {
	Term  string
	Count int
}

// TopTerms returns the most frequent query terms.
func (h *History) TopTerms(limit int) ([]TermCount, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := h.db.Query(`
		SELECT term, count FROM query_terms ORDER BY count DESC, term ASC LIMIT ?`, limit)
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	var out []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// LatencyHistogram returns bucket counts for one UTC date
// (YYYY-MM-DD).
func (h *History) LatencyHistogram(date string) (map[string]int, error) {
	rows, err := h.db.Query(`
		SELECT bucket, count FROM query_latency_stats WHERE date = ?`, date)
	if err != nil {
		return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, naragerr.Wrap(naragerr.ErrCodeFileCorrupt, err)
		}
		out[bucket] = count
	}
	return out, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// latencyBucket maps a duration to a histogram bucket label.
func latencyBucket(d time.Duration) string {
	switch {
	case d < 10*time.Millisecond:
		return "<10ms"
	case d < 50*time.Millisecond:
		return "10-50ms"
	case d < 100*time.Millisecond:
		return "50-100ms"
	case d < 500*time.Millisecond:
		return "100-500ms"
	default:
		return ">500ms"
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
