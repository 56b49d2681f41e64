package telemetry

import (
	"database/sql"
	"fmt"
	"time"
)

// zeroResultRetention caps the persisted zero-result query list.
const zeroResultRetention = 100

// SQLiteMetricsStore persists query metrics in SQLite. The *sql.DB is
// shared with the caller and is not closed here.
type SQLiteMetricsStore struct {
	db *sql.DB
}

// NewSQLiteMetricsStore wraps an open database. Call
// InitTelemetrySchema first on fresh databases.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// InitTelemetrySchema creates the telemetry tables if missing.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_type_stats (
		date TEXT NOT NULL,
		query_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, query_type)
	);

	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// upsertDailyCounts adds counts into a (date, key) table inside one
// transaction.
func (s *SQLiteMetricsStore) upsertDailyCounts(query, date string, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		if _, err := stmt.Exec(date, key, count); err != nil {
			return fmt.Errorf("upsert count for %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sumDailyCounts reads SUM(count) grouped by key over a date range.
func (s *SQLiteMetricsStore) sumDailyCounts(query, from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// SaveQueryTypeCounts adds daily retrieval-path counts.
func (s *SQLiteMetricsStore) SaveQueryTypeCounts(date string, counts map[QueryType]int64) error {
	raw := make(map[string]int64, len(counts))
	for k, v := range counts {
		raw[string(k)] = v
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_type_stats (date, query_type, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, query_type) DO UPDATE SET count = count + excluded.count
	`, date, raw)
}

// GetQueryTypeCounts sums retrieval-path counts over a date range.
func (s *SQLiteMetricsStore) GetQueryTypeCounts(from, to string) (map[QueryType]int64, error) {
	raw, err := s.sumDailyCounts(`
		SELECT query_type, SUM(count)
		FROM query_type_stats
		WHERE date >= ? AND date <= ?
		GROUP BY query_type
	`, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[QueryType]int64, len(raw))
	for k, v := range raw {
		counts[QueryType(k)] = v
	}
	return counts, nil
}

// UpsertTermCounts adds to term frequencies and refreshes last_seen.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term %q: %w", term, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTopTerms returns the most frequent terms, highest count first.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQuery records a query that found nothing, keeping only
// the most recent entries.
func (s *SQLiteMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	if _, err := s.db.Exec(`
		INSERT INTO zero_result_queries (query, timestamp)
		VALUES (?, ?)
	`, query, timestamp); err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, zeroResultRetention); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

// GetZeroResultQueries returns recent zero-result queries, newest first.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveLatencyCounts adds daily latency histogram counts.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	raw := make(map[string]int64, len(counts))
	for k, v := range counts {
		raw[string(k)] = v
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, date, raw)
}

// GetLatencyCounts sums latency histogram counts over a date range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	raw, err := s.sumDailyCounts(`
		SELECT bucket, SUM(count)
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[LatencyBucket]int64, len(raw))
	for k, v := range raw {
		counts[LatencyBucket(k)] = v
	}
	return counts, nil
}

// Close is a no-op; the database handle belongs to the caller.
func (s *SQLiteMetricsStore) Close() error {
	return nil
}
