package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSource(id, path string) *Source {
	return &Source{
		ID:         id,
		Title:      filepath.Base(path),
		Path:       path,
		Pages:      3,
		IngestedAt: time.Now().UTC(),
	}
}

func TestSQLiteStore_SaveAndGetSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := testSource("src-1", "docs/machine-guarding.pdf")
	require.NoError(t, s.SaveSource(ctx, src))

	got, err := s.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, src.ID, got.ID)
	assert.Equal(t, src.Title, got.Title)
	assert.Equal(t, src.Path, got.Path)
	assert.Equal(t, 3, got.Pages)
	assert.WithinDuration(t, src.IngestedAt, got.IngestedAt, time.Second)
}

func TestSQLiteStore_GetSource_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSource(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSQLiteStore_ListSources_OrderedByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, testSource("b", "docs/b.pdf")))
	require.NoError(t, s.SaveSource(ctx, testSource("a", "docs/a.pdf")))

	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "docs/a.pdf", sources[0].Path)
	assert.Equal(t, "docs/b.pdf", sources[1].Path)
}

func TestSQLiteStore_SaveChunks_AssignsRowIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))

	chunks := []*Chunk{
		{SourceID: "src-1", Title: "a", Content: "first chunk text", Ordinal: 0},
		{SourceID: "src-1", Title: "a", Content: "second chunk text", Ordinal: 1},
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	// IDs follow the rowid sequence
	assert.Equal(t, "chunk-1", chunks[0].ID)
	assert.Equal(t, "chunk-2", chunks[1].ID)

	got, err := s.GetChunk(ctx, "chunk-2")
	require.NoError(t, err)
	assert.Equal(t, "second chunk text", got.Content)
	assert.Equal(t, 1, got.Ordinal)
}

func TestSQLiteStore_GetChunks_Batch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))

	var chunks []*Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, &Chunk{
			SourceID: "src-1",
			Title:    "a",
			Content:  fmt.Sprintf("chunk %d", i),
			Ordinal:  i,
		})
	}
	require.NoError(t, s.SaveChunks(ctx, chunks))

	got, err := s.GetChunks(ctx, []string{"chunk-1", "chunk-4", "chunk-99"})
	require.NoError(t, err)

	// Missing IDs are skipped, not errors
	assert.Len(t, got, 2)
}

func TestSQLiteStore_GetChunksBySource_OrderedByOrdinal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{SourceID: "src-1", Title: "a", Content: "third", Ordinal: 2},
		{SourceID: "src-1", Title: "a", Content: "first", Ordinal: 0},
		{SourceID: "src-1", Title: "a", Content: "second", Ordinal: 1},
	}))

	got, err := s.GetChunksBySource(ctx, "src-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	assert.Equal(t, "third", got[2].Content)
}

func TestSQLiteStore_DeleteSource_CascadesToChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{SourceID: "src-1", Title: "a", Content: "text", Ordinal: 0},
	}))

	require.NoError(t, s.DeleteSource(ctx, "src-1"))

	count, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLiteStore_CountChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, err := s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))
	require.NoError(t, s.SaveChunks(ctx, []*Chunk{
		{SourceID: "src-1", Title: "a", Content: "one", Ordinal: 0},
		{SourceID: "src-1", Title: "a", Content: "two", Ordinal: 1},
	}))

	count, err = s.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteStore_State_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Unset key returns empty string, not an error
	val, err := s.GetState(ctx, StateKeyIndexModel)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.SetState(ctx, StateKeyIndexModel, "static-hash"))
	require.NoError(t, s.SetState(ctx, StateKeyIndexDimension, "256"))

	val, err = s.GetState(ctx, StateKeyIndexModel)
	require.NoError(t, err)
	assert.Equal(t, "static-hash", val)

	// Overwrite
	require.NoError(t, s.SetState(ctx, StateKeyIndexModel, "other"))
	val, err = s.GetState(ctx, StateKeyIndexModel)
	require.NoError(t, err)
	assert.Equal(t, "other", val)
}

func TestSQLiteStore_Persistence_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "chunks.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SaveSource(ctx, testSource("src-1", "docs/a.pdf")))
	require.NoError(t, s1.SaveChunks(ctx, []*Chunk{
		{SourceID: "src-1", Title: "a", Content: "durable text", Ordinal: 0},
	}))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	got, err := s2.GetChunk(ctx, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "durable text", got.Content)
}

func TestSQLiteStore_Close_Idempotent(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.CountChunks(context.Background())
	assert.Error(t, err)
}
