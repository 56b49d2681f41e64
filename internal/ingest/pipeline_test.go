package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/embed"
	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// testStack is the full ingest-to-search wiring over temp directories.
type testStack struct {
	ingestor *Ingestor
	engine   search.Engine
	chunks   store.ChunkStore
	rawDir   string
	dataDir  string
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	dataDir := t.TempDir()
	rawDir := t.TempDir()

	chunks, err := store.NewSQLiteStore(filepath.Join(dataDir, "chunks.db"))
	require.NoError(t, err)

	lexical, err := store.NewSQLiteLexicalIndex(filepath.Join(dataDir, "lexical.db"), store.DefaultLexicalConfig())
	require.NoError(t, err)

	dense, err := store.NewHNSWIndex(store.DefaultDenseIndexConfig(embed.HashDimensions))
	require.NoError(t, err)

	embedder := embed.NewHashEmbedder()

	engine, err := search.NewEngine(lexical, dense, embedder, chunks, search.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = engine.Close()
		_ = embedder.Close()
	})

	ingestor, err := NewIngestor(engine, chunks, Config{
		RawDir:       rawDir,
		ManifestPath: filepath.Join(rawDir, "sources.json"),
		LockDir:      dataDir,
		Workers:      2,
	})
	require.NoError(t, err)

	return &testStack{
		ingestor: ingestor,
		engine:   engine,
		chunks:   chunks,
		rawDir:   rawDir,
		dataDir:  dataDir,
	}
}

func (s *testStack) writeDoc(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.rawDir, name), []byte(content), 0o644))
}

func (s *testStack) writeManifest(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.rawDir, "sources.json"), []byte(content), 0o644))
}

func TestNewIngestor_Validation(t *testing.T) {
	stack := newTestStack(t)

	_, err := NewIngestor(nil, stack.chunks, Config{})
	assert.Error(t, err)

	_, err = NewIngestor(stack.engine, nil, Config{})
	assert.Error(t, err)
}

func TestIngestor_Run_EndToEnd(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	stack.writeDoc(t, "lockout.txt",
		"Lockout tagout procedures require every energy source to be isolated "+
			"and locked before maintenance work begins on industrial machinery.")
	stack.writeDoc(t, "guarding.txt",
		"Machine guarding keeps hands and clothing away from rotating parts. "+
			"Fixed guards must stay in place whenever the equipment is running.")
	stack.writeManifest(t, `[
		{"file_name": "lockout.txt", "title": "Lockout/Tagout Guide"},
		{"file_name": "guarding.txt", "title": "Machine Guarding Basics"}
	]`)

	report, err := stack.ingestor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 2, report.Chunks)
	assert.Empty(t, report.Skipped)
	assert.Positive(t, report.Duration)

	// Sources are persisted with their manifest titles.
	src, err := stack.chunks.GetSource(ctx, "src-lockout")
	require.NoError(t, err)
	assert.Equal(t, "Lockout/Tagout Guide", src.Title)
	assert.Equal(t, 1, src.ChunkCount)

	// Ingested text is searchable.
	resp, err := stack.engine.Search(ctx, "lockout energy isolation", search.Options{TopK: 2})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "src-lockout", resp.Results[0].Chunk.SourceID)
	assert.Contains(t, resp.Results[0].Chunk.Content, "Lockout tagout")

	// Ingest timestamp is recorded.
	ts, err := stack.chunks.GetState(ctx, store.StateKeyIngestedAt)
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
}

func TestIngestor_Run_ReplacesExistingSource(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	stack.writeDoc(t, "ppe.txt",
		"Hard hats are required in all areas where overhead work takes place.")
	stack.writeManifest(t, `[{"file_name": "ppe.txt", "title": "PPE Policy"}]`)

	_, err := stack.ingestor.Run(ctx)
	require.NoError(t, err)

	first, err := stack.chunks.GetChunksBySource(ctx, "src-ppe")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Re-ingest with updated content.
	stack.writeDoc(t, "ppe.txt",
		"Safety glasses with side shields are mandatory in the grinding area at all times.")
	report, err := stack.ingestor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sources)

	second, err := stack.chunks.GetChunksBySource(ctx, "src-ppe")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Contains(t, second[0].Content, "Safety glasses")
	assert.NotContains(t, second[0].Content, "Hard hats")

	// The stale chunk is gone from the search indices too.
	resp, err := stack.engine.Search(ctx, "hard hats overhead", search.Options{TopK: 4})
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.NotEqual(t, first[0].ID, r.Chunk.ID)
	}
}

func TestIngestor_Run_SkipsMissingFiles(t *testing.T) {
	stack := newTestStack(t)
	ctx := context.Background()

	stack.writeDoc(t, "present.txt",
		"Emergency stop buttons must be tested weekly and logged in the maintenance record.")
	stack.writeManifest(t, `[
		{"file_name": "present.txt", "title": "E-Stop Testing"},
		{"file_name": "absent.txt", "title": "Never Written"}
	]`)

	report, err := stack.ingestor.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sources)
	assert.Equal(t, []string{"absent.txt"}, report.Skipped)
}

func TestIngestor_Run_LockedDataDir(t *testing.T) {
	stack := newTestStack(t)

	stack.writeManifest(t, `[]`)

	// Hold the lock the way a concurrent ingest would.
	lock := flock.New(filepath.Join(stack.dataDir, ".ingest.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = lock.Unlock() }()

	_, err = stack.ingestor.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeIngestLocked, ragerr.GetCode(err))
}

func TestIngestor_Run_MissingManifest(t *testing.T) {
	stack := newTestStack(t)

	_, err := stack.ingestor.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeFileNotFound, ragerr.GetCode(err))
}

func TestSourceIDFor(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"osha_lockout.pdf", "src-osha-lockout"},
		{"Machine Guarding (Rev 2).pdf", "src-machine-guarding-rev-2"},
		{"notes.txt", "src-notes"},
		{"UPPER.MD", "src-upper"},
	}

	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, SourceIDFor(tt.fileName))
		})
	}
}
