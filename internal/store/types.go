// Package store provides dense vector storage (HNSW), lexical full-text
// indexes (SQLite FTS5 or Bleve), and chunk metadata persistence (SQLite).
// This is the persistence layer for all ingested data.
package store

import (
	"context"
	"fmt"
	"time"
)

// State keys for the chunk store key-value table.
const (
	// StateKeyIndexDimension stores the embedding dimension used for the index
	StateKeyIndexDimension = "index_embedding_dimension"
	// StateKeyIndexModel stores the embedding model name used for the index
	StateKeyIndexModel = "index_embedding_model"
	// StateKeyLexicalBackend stores which lexical backend built the index
	StateKeyLexicalBackend = "lexical_backend"
	// StateKeyIngestedAt stores the timestamp of the last completed ingest
	StateKeyIngestedAt = "ingested_at"
)

// Source represents an ingested document.
type Source struct {
	ID         string    // Stable slug derived from the file name
	Title      string    // Display title, defaults to file stem
	Path       string    // Relative to the corpus root
	Pages      int       // Page count for PDFs, 0 for plain text
	ChunkCount int       // Number of chunks produced from this source
	IngestedAt time.Time // When ingested
}

// Chunk represents a retrievable unit of document text.
type Chunk struct {
	ID        string    // "chunk-<rowid>", assigned on save
	SourceID  string    // Parent source ID
	Title     string    // Source title, denormalized for citation display
	Content   string    // Chunk text
	Ordinal   int       // 0-based position within the source
	PageStart int       // First page covered (PDFs), 0 otherwise
	PageEnd   int       // Last page covered (PDFs), 0 otherwise
	WordCount int       // Whitespace-separated token count
	CreatedAt time.Time
}

// ChunkStore persists sources and chunks in SQLite.
type ChunkStore interface {
	// Source operations
	SaveSource(ctx context.Context, source *Source) error
	GetSource(ctx context.Context, id string) (*Source, error)
	ListSources(ctx context.Context) ([]*Source, error)
	DeleteSource(ctx context.Context, id string) error // Cascades to chunks

	// Chunk operations. SaveChunks assigns each chunk its rowid-based ID
	// in place before returning.
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) // Batch retrieval for performance
	GetChunksBySource(ctx context.Context, sourceID string) ([]*Chunk, error)
	CountChunks(ctx context.Context) (int, error)

	// State operations (key-value store for runtime state)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// Document represents a chunk to be indexed for lexical search.
type Document struct {
	ID      string // Chunk ID
	Content string // Text content
}

// LexicalResult represents a single lexical (BM25) search result.
type LexicalResult struct {
	ChunkID      string
	Score        float64
	MatchedTerms []string
}

// IndexStats provides statistics about the lexical index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// LexicalIndex provides keyword search scored by BM25.
type LexicalIndex interface {
	// Index adds documents to the index
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25
	Search(ctx context.Context, query string, limit int) ([]*LexicalResult, error)

	// Delete removes documents from index
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns all document IDs in the index (for consistency checks)
	AllIDs() ([]string, error)

	// Stats returns index statistics
	Stats() *IndexStats

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// LexicalConfig configures the lexical index.
type LexicalConfig struct {
	// K1 is the term frequency saturation parameter (default: 1.2)
	K1 float64

	// B is the length normalization parameter (default: 0.75)
	B float64

	// StopWords is a list of words to filter out during tokenization
	StopWords []string

	// MinTokenLength is minimum token length to index (default: 2)
	MinTokenLength int
}

// DefaultLexicalConfig returns default lexical index configuration.
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords contains common English function words that carry no
// retrieval signal in prose corpora.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on",
	"for", "with", "is", "are", "was", "were", "be", "been", "that",
	"this", "these", "those", "it", "its", "as", "at", "by", "from",
}

// DenseResult represents a single dense vector search result.
type DenseResult struct {
	ID       string  // Chunk ID
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// DenseIndexConfig configures the dense vector index.
type DenseIndexConfig struct {
	// Dimensions is the vector dimension (256 for the hash embedder)
	Dimensions int

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 32)
	M int

	// EfConstruction is HNSW build-time search width (default: 128)
	EfConstruction int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultDenseIndexConfig returns sensible defaults for the dense index.
func DefaultDenseIndexConfig(dimensions int) DenseIndexConfig {
	return DenseIndexConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// DenseIndex provides semantic search using the HNSW algorithm.
type DenseIndex interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to query vector.
	Search(ctx context.Context, query []float32, k int) ([]*DenseResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns all vector IDs in the store (for consistency checks)
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'minirag ingest --rebuild')", e.Expected, e.Got)
}
