package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/embed"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// newTestEngine wires a full engine over temp-dir backed components.
func newTestEngine(t *testing.T) *HybridEngine {
	t.Helper()

	dir := t.TempDir()

	chunks, err := store.NewSQLiteStore(filepath.Join(dir, "chunks.db"))
	require.NoError(t, err)

	lexical, err := store.NewSQLiteLexicalIndex(filepath.Join(dir, "lexical.db"), store.DefaultLexicalConfig())
	require.NoError(t, err)

	dense, err := store.NewHNSWIndex(store.DefaultDenseIndexConfig(embed.HashDimensions))
	require.NoError(t, err)

	embedder := embed.NewHashEmbedder()

	engine, err := NewEngine(lexical, dense, embedder, chunks, DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = engine.Close()
		_ = embedder.Close()
	})

	return engine
}

// seedCorpus saves a source and indexes safety-manual chunks through the engine.
func seedCorpus(t *testing.T, e *HybridEngine, contents []string) []*store.Chunk {
	t.Helper()

	ctx := context.Background()
	src := &store.Source{
		ID:    "src-manual",
		Title: "Plant Safety Manual",
		Path:  "docs/safety-manual.pdf",
		Pages: 12,
	}
	require.NoError(t, e.chunks.SaveSource(ctx, src))

	chunks := make([]*store.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &store.Chunk{
			SourceID:  src.ID,
			Title:     src.Title,
			Content:   content,
			Ordinal:   i,
			PageStart: i + 1,
			PageEnd:   i + 1,
			WordCount: len(content) / 5,
		}
	}
	require.NoError(t, e.Index(ctx, chunks))
	return chunks
}

var safetyCorpus = []string{
	"Machine guarding must enclose all rotating parts. Fixed guards are preferred over adjustable guards because they provide a permanent barrier.",
	"Lockout tagout procedures require isolating hazardous energy before servicing equipment. Each authorized worker attaches a personal lock.",
	"Hearing protection is mandatory in areas where noise exposure exceeds 85 decibels averaged over an eight hour shift.",
	"Forklift operators must complete certification training and daily pre-use inspections before operating powered industrial trucks.",
	"Chemical storage areas require ventilation, secondary containment, and clearly labeled containers with safety data sheets on file.",
}

func TestNewEngine_NilDependencies(t *testing.T) {
	dir := t.TempDir()

	chunks, err := store.NewSQLiteStore(filepath.Join(dir, "chunks.db"))
	require.NoError(t, err)
	defer func() { _ = chunks.Close() }()

	lexical, err := store.NewSQLiteLexicalIndex(filepath.Join(dir, "lexical.db"), store.DefaultLexicalConfig())
	require.NoError(t, err)
	defer func() { _ = lexical.Close() }()

	dense, err := store.NewHNSWIndex(store.DefaultDenseIndexConfig(embed.HashDimensions))
	require.NoError(t, err)

	embedder := embed.NewHashEmbedder()
	defer func() { _ = embedder.Close() }()

	tests := []struct {
		name string
		fn   func() (*HybridEngine, error)
	}{
		{"nil lexical", func() (*HybridEngine, error) {
			return NewEngine(nil, dense, embedder, chunks, DefaultConfig())
		}},
		{"nil dense", func() (*HybridEngine, error) {
			return NewEngine(lexical, nil, embedder, chunks, DefaultConfig())
		}},
		{"nil embedder", func() (*HybridEngine, error) {
			return NewEngine(lexical, dense, nil, chunks, DefaultConfig())
		}},
		{"nil chunk store", func() (*HybridEngine, error) {
			return NewEngine(lexical, dense, embedder, nil, DefaultConfig())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNilDependency)
		})
	}
}

func TestHybridEngine_Search_Hybrid(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)

	resp, err := e.Search(context.Background(), "what are the lockout tagout requirements", Options{Mode: ModeHybrid})
	require.NoError(t, err)

	assert.Equal(t, ModeHybrid, resp.Mode)
	assert.False(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	require.NotNil(t, top.Chunk)
	assert.Contains(t, top.Chunk.Content, "Lockout tagout")
	assert.True(t, top.InBothLists)
	assert.Greater(t, top.FusedScore, 0.0)
}

func TestHybridEngine_Search_Baseline(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)

	resp, err := e.Search(context.Background(), "noise exposure hearing protection decibels", Options{Mode: ModeBaseline})
	require.NoError(t, err)

	assert.Equal(t, ModeBaseline, resp.Mode)
	assert.False(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)

	// Baseline never consults the lexical index
	for _, r := range resp.Results {
		assert.Zero(t, r.LexicalRank)
		assert.Zero(t, r.LexicalScore)
		assert.False(t, r.InBothLists)
	}

	assert.Contains(t, resp.Results[0].Chunk.Content, "Hearing protection")
}

func TestHybridEngine_Search_DefaultsApplied(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)

	// Zero options: hybrid mode, top-k 4
	resp, err := e.Search(context.Background(), "safety requirements for equipment", Options{})
	require.NoError(t, err)

	assert.Equal(t, ModeHybrid, resp.Mode)
	assert.LessOrEqual(t, len(resp.Results), 4)
}

func TestHybridEngine_Search_TopKCappedAtMax(t *testing.T) {
	e := newTestEngine(t)
	contents := make([]string, 25)
	for i := range contents {
		contents[i] = fmt.Sprintf("Safety rule %d covers general housekeeping duties in work area %d.", i, i)
	}
	seedCorpus(t, e, contents)

	resp, err := e.Search(context.Background(), "safety rule housekeeping work area", Options{TopK: 100})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(resp.Results), DefaultConfig().MaxTopK)
}

func TestHybridEngine_Search_TopKTruncates(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)

	resp, err := e.Search(context.Background(), "safety procedures for workers", Options{TopK: 2})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(resp.Results), 2)
}

func TestHybridEngine_Search_DimensionMismatch(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)
	ctx := context.Background()

	// Pretend the index was built by an embedder of a different width.
	staleDim := embed.HashDimensions * 2
	require.NoError(t, e.chunks.SetState(ctx, store.StateKeyIndexDimension, fmt.Sprintf("%d", staleDim)))

	// Baseline has no fallback and must surface the mismatch.
	_, err := e.Search(ctx, "machine guarding rotating parts", Options{Mode: ModeBaseline})
	require.Error(t, err)

	var dimErr store.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, staleDim, dimErr.Expected)
	assert.Equal(t, embed.HashDimensions, dimErr.Got)

	// Hybrid degrades to lexical retrieval instead of failing.
	resp, err := e.Search(ctx, "machine guarding rotating parts", Options{Mode: ModeHybrid})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Chunk.Content, "Machine guarding")
}

func TestHybridEngine_Search_EmptyIndex(t *testing.T) {
	e := newTestEngine(t)

	resp, err := e.Search(context.Background(), "anything at all", Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

// failingLexicalIndex simulates a broken full-text backend.
type failingLexicalIndex struct{}

func (f *failingLexicalIndex) Index(_ context.Context, _ []*store.Document) error { return nil }

func (f *failingLexicalIndex) Search(_ context.Context, _ string, _ int) ([]*store.LexicalResult, error) {
	return nil, errors.New("fts index corrupt")
}

func (f *failingLexicalIndex) Delete(_ context.Context, _ []string) error { return nil }
func (f *failingLexicalIndex) AllIDs() ([]string, error)                  { return nil, nil }
func (f *failingLexicalIndex) Stats() *store.IndexStats                   { return &store.IndexStats{} }
func (f *failingLexicalIndex) Save(_ string) error                        { return nil }
func (f *failingLexicalIndex) Load(_ string) error                        { return nil }
func (f *failingLexicalIndex) Close() error                               { return nil }

func TestHybridEngine_Search_LexicalFailure_DegradesToDenseOnly(t *testing.T) {
	dir := t.TempDir()

	chunks, err := store.NewSQLiteStore(filepath.Join(dir, "chunks.db"))
	require.NoError(t, err)

	dense, err := store.NewHNSWIndex(store.DefaultDenseIndexConfig(embed.HashDimensions))
	require.NoError(t, err)

	embedder := embed.NewHashEmbedder()

	e, err := NewEngine(&failingLexicalIndex{}, dense, embedder, chunks, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = e.Close()
		_ = embedder.Close()
	})

	seedCorpus(t, e, safetyCorpus)

	resp, err := e.Search(context.Background(), "lockout tagout energy isolation", Options{Mode: ModeHybrid})
	require.NoError(t, err, "lexical failure should degrade, not error")

	assert.True(t, resp.Degraded)
	assert.Equal(t, ModeHybrid, resp.Mode)
	require.NotEmpty(t, resp.Results)

	// All scores come from the dense side
	for _, r := range resp.Results {
		assert.Zero(t, r.LexicalRank)
	}
}

func TestHybridEngine_Delete_RemovesFromResults(t *testing.T) {
	e := newTestEngine(t)
	chunks := seedCorpus(t, e, safetyCorpus)

	ctx := context.Background()

	var lockoutID string
	for _, c := range chunks {
		if c.Ordinal == 1 {
			lockoutID = c.ID
		}
	}
	require.NotEmpty(t, lockoutID)

	require.NoError(t, e.Delete(ctx, []string{lockoutID}))

	resp, err := e.Search(ctx, "lockout tagout hazardous energy", Options{Mode: ModeHybrid})
	require.NoError(t, err)

	for _, r := range resp.Results {
		assert.NotEqual(t, lockoutID, r.Chunk.ID)
	}
}

func TestHybridEngine_Stats(t *testing.T) {
	e := newTestEngine(t)
	seedCorpus(t, e, safetyCorpus)

	stats := e.Stats()
	require.NotNil(t, stats)
	assert.Equal(t, len(safetyCorpus), stats.VectorCount)
	require.NotNil(t, stats.LexicalStats)
	assert.Equal(t, len(safetyCorpus), stats.LexicalStats.DocumentCount)
}

func TestHybridEngine_Index_Empty(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Index(context.Background(), nil))
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(ModeBaseline))
	assert.True(t, ValidMode(ModeHybrid))
	assert.False(t, ValidMode("rerank"))
	assert.False(t, ValidMode(""))
}
