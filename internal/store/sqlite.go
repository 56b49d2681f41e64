package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements ChunkStore backed by SQLite.
// Chunk IDs are derived from rowids ("chunk-<rowid>") so they stay stable
// across reads and match the IDs stored in the lexical and dense indexes.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ ChunkStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the chunk database at path.
// If path is empty, an in-memory database is created for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536", // 64MB cache (negative = KB)
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the sources, chunks, and state tables.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sources (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		path        TEXT NOT NULL,
		pages       INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		ingested_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		chunk_id   TEXT UNIQUE,
		source_id  TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		ordinal    INTEGER NOT NULL,
		page_start INTEGER NOT NULL DEFAULT 0,
		page_end   INTEGER NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id, ordinal);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSource inserts or replaces a source record.
func (s *SQLiteStore) SaveSource(ctx context.Context, source *Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sources (id, title, path, pages, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		source.ID, source.Title, source.Path, source.Pages, source.ChunkCount,
		source.IngestedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save source %s: %w", source.ID, err)
	}
	return nil
}

// GetSource retrieves a source by ID. Returns sql.ErrNoRows if missing.
func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, path, pages, chunk_count, ingested_at
		FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns all sources ordered by path.
func (s *SQLiteStore) ListSources(ctx context.Context) ([]*Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, path, pages, chunk_count, ingested_at
		FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// DeleteSource removes a source and, via FK cascade, its chunks.
func (s *SQLiteStore) DeleteSource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source %s: %w", id, err)
	}
	return nil
}

// SaveChunks inserts chunks and assigns their rowid-based IDs in place.
// Chunks that already carry an ID are replaced.
func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, source_id, title, content, ordinal, page_start, page_end, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertStmt.Close()

	idStmt, err := tx.PrepareContext(ctx,
		`UPDATE chunks SET chunk_id = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare ID update: %w", err)
	}
	defer idStmt.Close()

	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		// chunk_id is filled after insert once the rowid is known
		var chunkID any
		if c.ID != "" {
			chunkID = c.ID
		}
		res, err := insertStmt.ExecContext(ctx, chunkID, c.SourceID, c.Title,
			c.Content, c.Ordinal, c.PageStart, c.PageEnd, c.WordCount,
			c.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert chunk (source %s, ordinal %d): %w", c.SourceID, c.Ordinal, err)
		}

		if c.ID == "" {
			rowID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to read rowid: %w", err)
			}
			c.ID = fmt.Sprintf("chunk-%d", rowID)
			if _, err := idStmt.ExecContext(ctx, c.ID, rowID); err != nil {
				return fmt.Errorf("failed to assign chunk ID %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

// GetChunk retrieves a single chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, source_id, title, content, ordinal, page_start, page_end, word_count, created_at
		FROM chunks WHERE chunk_id = ?`, id)
	return scanChunk(row)
}

// GetChunks retrieves chunks by ID in a single query.
// Missing IDs are silently skipped; callers preserve their own ordering.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT chunk_id, source_id, title, content, ordinal, page_start, page_end, word_count, created_at
		FROM chunks WHERE chunk_id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunksBySource returns all chunks for a source ordered by ordinal.
func (s *SQLiteStore) GetChunksBySource(ctx context.Context, sourceID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, source_id, title, content, ordinal, page_start, page_end, word_count, created_at
		FROM chunks WHERE source_id = ? ORDER BY ordinal`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks for source %s: %w", sourceID, err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the total number of stored chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// GetState returns the value for a state key, or empty string if unset.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState stores a state key-value pair.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Close closes the database, checkpointing the WAL first.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var src Source
	var ingestedAt string
	if err := row.Scan(&src.ID, &src.Title, &src.Path, &src.Pages, &src.ChunkCount, &ingestedAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, ingestedAt); err == nil {
		src.IngestedAt = t
	}
	return &src, nil
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var c Chunk
	var createdAt string
	if err := row.Scan(&c.ID, &c.SourceID, &c.Title, &c.Content, &c.Ordinal,
		&c.PageStart, &c.PageEnd, &c.WordCount, &createdAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = t
	}
	return &c, nil
}
