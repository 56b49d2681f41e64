// Package search provides hybrid retrieval combining dense vector search
// with lexical full-text search. Results from both sources are fused with
// a weighted sum over min-max normalized scores.
package search

import (
	"context"
	"time"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// Mode selects the retrieval strategy for a query.
type Mode string

const (
	// ModeBaseline uses dense vector similarity only.
	ModeBaseline Mode = "baseline"

	// ModeHybrid fuses dense and lexical results with weighted scoring.
	ModeHybrid Mode = "hybrid"
)

// ValidMode reports whether m names a supported retrieval mode.
func ValidMode(m Mode) bool {
	return m == ModeBaseline || m == ModeHybrid
}

// Engine executes retrieval queries against the chunk indices.
type Engine interface {
	// Search runs a query and returns ranked, enriched results.
	Search(ctx context.Context, query string, opts Options) (*Response, error)

	// Index adds chunks to both the dense and lexical indices.
	Index(ctx context.Context, chunks []*store.Chunk) error

	// Delete removes chunks from both indices. The chunk store itself
	// is managed by the ingest pipeline.
	Delete(ctx context.Context, chunkIDs []string) error

	// Stats returns index statistics.
	Stats() *EngineStats

	// Close releases all resources.
	Close() error
}

// Options configures a single query.
type Options struct {
	// TopK is the maximum number of results to return (default: 4, max: 20).
	TopK int

	// Mode selects baseline or hybrid retrieval (default: hybrid).
	Mode Mode

	// Weights overrides the default dense/lexical blend.
	Weights *Weights
}

// Weights configures the relative contribution of each retrieval source
// to the fused score. They should sum to 1.
type Weights struct {
	// Dense is the weight for vector similarity (default: 0.6).
	Dense float64

	// Lexical is the weight for full-text match scores (default: 0.4).
	Lexical float64
}

// DefaultWeights returns the standard dense-leaning blend.
func DefaultWeights() Weights {
	return Weights{
		Dense:   0.6,
		Lexical: 0.4,
	}
}

// Result is a single ranked chunk with its score breakdown.
type Result struct {
	// Chunk is the full chunk record from the store.
	Chunk *store.Chunk

	// FusedScore is the weighted combination of normalized source scores.
	FusedScore float64

	// DenseScore is the normalized vector similarity (0 if absent).
	DenseScore float64

	// LexicalScore is the normalized full-text score (0 if absent).
	LexicalScore float64

	// DenseRank is the position in dense results (1-indexed, 0 if absent).
	DenseRank int

	// LexicalRank is the position in lexical results (1-indexed, 0 if absent).
	LexicalRank int

	// InBothLists indicates the chunk was returned by both sources.
	InBothLists bool

	// MatchedTerms contains the lexical query terms that matched.
	MatchedTerms []string
}

// Response is the outcome of a single query.
type Response struct {
	// Results are ranked chunks, at most Options.TopK of them.
	Results []*Result

	// Mode is the retrieval mode that actually ran.
	Mode Mode

	// Degraded is true when hybrid was requested but the lexical source
	// failed and results came from dense retrieval alone.
	Degraded bool
}

// EngineStats provides statistics about the retrieval indices.
type EngineStats struct {
	// LexicalStats contains full-text index statistics.
	LexicalStats *store.IndexStats

	// VectorCount is the number of vectors in the dense index.
	VectorCount int
}

// Config configures the search engine.
type Config struct {
	// DefaultTopK is the default number of results (default: 4).
	DefaultTopK int

	// MaxTopK is the maximum allowed results per query (default: 20).
	MaxTopK int

	// PerSourceLimit is how many candidates each source contributes
	// before fusion (default: 30).
	PerSourceLimit int

	// DefaultWeights is the dense/lexical blend used when the caller
	// does not override it.
	DefaultWeights Weights

	// SearchTimeout bounds a single query (default: 5s).
	SearchTimeout time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTopK:    4,
		MaxTopK:        20,
		PerSourceLimit: 30,
		DefaultWeights: DefaultWeights(),
		SearchTimeout:  5 * time.Second,
	}
}
