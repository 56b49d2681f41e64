package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/embed"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/telemetry"
)

// HybridEngine implements retrieval over dense and lexical indices.
type HybridEngine struct {
	lexical  store.LexicalIndex
	dense    store.DenseIndex
	embedder embed.Embedder
	chunks   store.ChunkStore
	config   Config
	metrics  *telemetry.QueryMetrics // Optional query telemetry collector
	mu       sync.RWMutex
}

// Ensure HybridEngine implements the Engine interface.
var _ Engine = (*HybridEngine)(nil)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*HybridEngine)

// WithMetrics sets an optional query metrics collector for telemetry.
// When set, query patterns, latency, and zero-result queries are tracked.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *HybridEngine) {
		e.metrics = m
	}
}

// NewEngine creates a hybrid search engine with the given dependencies.
// Returns an error if any required dependency is nil.
func NewEngine(
	lexical store.LexicalIndex,
	dense store.DenseIndex,
	embedder embed.Embedder,
	chunks store.ChunkStore,
	config Config,
	opts ...EngineOption,
) (*HybridEngine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if dense == nil {
		return nil, fmt.Errorf("%w: dense index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if chunks == nil {
		return nil, fmt.Errorf("%w: chunk store is required", ErrNilDependency)
	}
	e := &HybridEngine{
		lexical:  lexical,
		dense:    dense,
		embedder: embedder,
		chunks:   chunks,
		config:   config,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs a query against the configured indices.
//
// Baseline mode uses dense retrieval alone. Hybrid mode runs both sources
// in parallel and fuses the lists with weighted scoring. A lexical failure
// in hybrid mode degrades to dense-only results with Degraded set rather
// than failing the query.
func (e *HybridEngine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	opts = e.applyDefaults(opts)

	if e.config.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.SearchTimeout)
		defer cancel()
	}

	if err := e.validateDimensions(ctx); err != nil {
		if opts.Mode == ModeBaseline {
			return nil, err
		}
		// Hybrid can still answer from the lexical side.
		slog.Warn("dimension mismatch detected, dense retrieval disabled",
			slog.String("error", err.Error()))
		return e.lexicalOnlySearch(ctx, query, opts, start)
	}

	if opts.Mode == ModeBaseline {
		return e.baselineSearch(ctx, query, opts, start)
	}

	denseResults, lexicalResults, denseErr, lexicalErr := e.parallelSearch(ctx, query, e.config.PerSourceLimit)

	if denseErr != nil && lexicalErr != nil {
		return nil, errors.Join(denseErr, lexicalErr)
	}

	degraded := false
	if lexicalErr != nil {
		slog.Warn("lexical search failed, returning dense-only results",
			slog.String("error", lexicalErr.Error()))
		lexicalResults = nil
		degraded = true
	}
	if denseErr != nil {
		slog.Warn("dense search failed, returning lexical-only results",
			slog.String("error", denseErr.Error()))
		denseResults = nil
	}

	fused := NewWeightedFusionWith(*opts.Weights).Fuse(denseResults, lexicalResults)

	results, err := e.enrichResults(ctx, fused)
	if err != nil {
		return nil, err
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	e.recordMetrics(query, telemetry.QueryTypeHybrid, len(results), time.Since(start))

	return &Response{
		Results:  results,
		Mode:     ModeHybrid,
		Degraded: degraded,
	}, nil
}

// baselineSearch runs dense retrieval alone.
func (e *HybridEngine) baselineSearch(ctx context.Context, query string, opts Options, start time.Time) (*Response, error) {
	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	denseResults, err := e.dense.Search(ctx, embedding, e.config.PerSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	fused := NewWeightedFusionWith(Weights{Dense: 1.0}).Fuse(denseResults, nil)

	results, enrichErr := e.enrichResults(ctx, fused)
	if enrichErr != nil {
		return nil, enrichErr
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	e.recordMetrics(query, telemetry.QueryTypeDense, len(results), time.Since(start))

	return &Response{
		Results: results,
		Mode:    ModeBaseline,
	}, nil
}

// lexicalOnlySearch answers a hybrid query from the lexical index alone.
// Used when dense retrieval is unavailable (dimension mismatch).
func (e *HybridEngine) lexicalOnlySearch(ctx context.Context, query string, opts Options, start time.Time) (*Response, error) {
	lexicalResults, err := e.lexical.Search(ctx, query, e.config.PerSourceLimit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	fused := NewWeightedFusionWith(Weights{Lexical: 1.0}).Fuse(nil, lexicalResults)

	results, enrichErr := e.enrichResults(ctx, fused)
	if enrichErr != nil {
		return nil, enrichErr
	}

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	e.recordMetrics(query, telemetry.QueryTypeLexical, len(results), time.Since(start))

	return &Response{
		Results:  results,
		Mode:     ModeHybrid,
		Degraded: true,
	}, nil
}

// parallelSearch executes dense and lexical searches concurrently.
// Per-source errors are captured rather than failing the group so the
// caller can degrade to whichever source succeeded.
func (e *HybridEngine) parallelSearch(ctx context.Context, query string, limit int) (
	denseResults []*store.DenseResult,
	lexicalResults []*store.LexicalResult,
	denseErr error,
	lexicalErr error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, query)
		if err != nil {
			denseErr = fmt.Errorf("embed query: %w", err)
			return nil
		}
		denseResults, err = e.dense.Search(gctx, embedding, limit)
		if err != nil {
			denseErr = err
		}
		return nil
	})

	g.Go(func() error {
		var err error
		lexicalResults, err = e.lexical.Search(gctx, query, limit)
		if err != nil {
			lexicalErr = err
		}
		return nil
	})

	// Goroutines capture their errors instead of returning them, so Wait
	// never fails; it only blocks until both sources finish.
	_ = g.Wait()

	return denseResults, lexicalResults, denseErr, lexicalErr
}

// enrichResults fetches full chunk data using batch retrieval.
// A single GetChunks query replaces N individual lookups.
func (e *HybridEngine) enrichResults(ctx context.Context, fused []*FusedResult) ([]*Result, error) {
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}

	chunks, err := e.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	chunkByID := make(map[string]*store.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	// Preserve fusion order; skip IDs whose chunk records are gone.
	results := make([]*Result, 0, len(fused))
	for _, f := range fused {
		chunk, ok := chunkByID[f.ChunkID]
		if !ok {
			slog.Debug("skipping orphaned index entry",
				slog.String("chunk_id", f.ChunkID))
			continue
		}

		results = append(results, &Result{
			Chunk:        chunk,
			FusedScore:   f.FusedScore,
			DenseScore:   f.DenseScore,
			LexicalScore: f.LexicalScore,
			DenseRank:    f.DenseRank,
			LexicalRank:  f.LexicalRank,
			InBothLists:  f.InBothLists,
			MatchedTerms: f.MatchedTerms,
		})
	}

	return results, nil
}

// Index adds chunks to both indices and persists them in the chunk store.
func (e *HybridEngine) Index(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Persist first so the store assigns chunk IDs for the indices.
	if err := e.chunks.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	docs := make([]*store.Document, len(chunks))
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = &store.Document{
			ID:      c.ID,
			Content: c.Content,
		}
		texts[i] = c.Content
		ids[i] = c.ID
	}

	embeddings, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	if err := e.lexical.Index(ctx, docs); err != nil {
		return fmt.Errorf("index lexical: %w", err)
	}

	if err := e.dense.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}

	if err := e.storeIndexEmbeddingInfo(ctx); err != nil {
		slog.Warn("failed to store index embedding info",
			slog.String("error", err.Error()))
	}

	return nil
}

// storeIndexEmbeddingInfo saves the current embedder's dimension and model.
// Enables mismatch detection when the embedder changes between runs.
func (e *HybridEngine) storeIndexEmbeddingInfo(ctx context.Context) error {
	dim := fmt.Sprintf("%d", e.embedder.Dimensions())
	if err := e.chunks.SetState(ctx, store.StateKeyIndexDimension, dim); err != nil {
		return fmt.Errorf("store index dimension: %w", err)
	}
	if err := e.chunks.SetState(ctx, store.StateKeyIndexModel, e.embedder.ModelName()); err != nil {
		return fmt.Errorf("store index model: %w", err)
	}
	return nil
}

// validateDimensions checks that the embedder's dimension matches the
// dimension the index was built with. Returns nil when no dimension has
// been stored yet (fresh index).
func (e *HybridEngine) validateDimensions(ctx context.Context) error {
	storedDim, err := e.chunks.GetState(ctx, store.StateKeyIndexDimension)
	if err != nil || storedDim == "" {
		return nil
	}

	var indexDim int
	if _, err := fmt.Sscanf(storedDim, "%d", &indexDim); err != nil {
		slog.Warn("invalid stored index dimension", slog.String("value", storedDim))
		return nil
	}

	currentDim := e.embedder.Dimensions()
	if indexDim != currentDim {
		storedModel, _ := e.chunks.GetState(ctx, store.StateKeyIndexModel)
		return fmt.Errorf("index built with %s, current embedder is %s: %w",
			storedModel, e.embedder.ModelName(),
			store.ErrDimensionMismatch{Expected: indexDim, Got: currentDim})
	}

	return nil
}

// Delete removes chunks from both indices.
func (e *HybridEngine) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// The chunk store is the source of truth. Index orphans are harmless
	// since enrichment filters IDs with no chunk record.
	var hasOrphans bool

	if err := e.lexical.Delete(ctx, chunkIDs); err != nil {
		slog.Warn("lexical delete failed, orphans will remain",
			slog.String("error", err.Error()),
			slog.Int("count", len(chunkIDs)))
		hasOrphans = true
	}

	if err := e.dense.Delete(ctx, chunkIDs); err != nil {
		slog.Warn("dense delete failed, orphans will remain",
			slog.String("error", err.Error()),
			slog.Int("count", len(chunkIDs)))
		hasOrphans = true
	}

	if hasOrphans {
		slog.Debug("delete completed with orphan remnants",
			slog.Int("chunks", len(chunkIDs)))
	}

	return nil
}

// Stats returns index statistics.
func (e *HybridEngine) Stats() *EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return &EngineStats{
		LexicalStats: e.lexical.Stats(),
		VectorCount:  e.dense.Count(),
	}
}

// Close releases all resources.
func (e *HybridEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error

	if err := e.lexical.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.dense.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.chunks.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// applyDefaults fills in default values for search options.
func (e *HybridEngine) applyDefaults(opts Options) Options {
	if opts.TopK <= 0 {
		opts.TopK = e.config.DefaultTopK
	}
	if opts.TopK > e.config.MaxTopK {
		opts.TopK = e.config.MaxTopK
	}

	if opts.Mode == "" {
		opts.Mode = ModeHybrid
	}

	if opts.Weights == nil {
		w := e.config.DefaultWeights
		opts.Weights = &w
	}

	return opts
}

// recordMetrics records query telemetry if a collector is configured.
func (e *HybridEngine) recordMetrics(query string, queryType telemetry.QueryType, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   queryType,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}
