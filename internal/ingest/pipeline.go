package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/panjf2000/ants/v2"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// Config configures an ingestion run.
type Config struct {
	// RawDir holds the source documents named by the manifest.
	RawDir string

	// ManifestPath is the sources manifest (JSON array of entries).
	ManifestPath string

	// LockDir is where the ingest lock file lives, normally the data
	// directory shared with the indices.
	LockDir string

	// Workers bounds concurrent document extraction. Defaults to half
	// the CPUs, minimum 1.
	Workers int

	// Chunker bounds chunk construction.
	Chunker ChunkerConfig
}

// Report summarizes an ingestion run.
type Report struct {
	Sources  int
	Chunks   int
	Skipped  []string
	Duration time.Duration
}

// Ingestor extracts, chunks, and indexes source documents.
type Ingestor struct {
	engine search.Engine
	chunks store.ChunkStore
	config Config
}

// NewIngestor creates an ingestion pipeline.
func NewIngestor(engine search.Engine, chunks store.ChunkStore, config Config) (*Ingestor, error) {
	if engine == nil {
		return nil, fmt.Errorf("search engine is required")
	}
	if chunks == nil {
		return nil, fmt.Errorf("chunk store is required")
	}
	if config.Workers < 1 {
		config.Workers = runtime.NumCPU() / 2
		if config.Workers < 1 {
			config.Workers = 1
		}
	}
	if config.Chunker.TargetChars <= 0 {
		config.Chunker = DefaultChunkerConfig()
	}
	return &Ingestor{engine: engine, chunks: chunks, config: config}, nil
}

// extraction is the per-document result of the worker pool phase.
type extraction struct {
	entry  ManifestEntry
	path   string
	pages  []Page
	chunks []PageChunk
	err    error
}

// Run ingests every manifest document: extract and chunk concurrently,
// then index sequentially. A document already ingested is replaced.
// Returns ErrCodeIngestLocked when another ingest holds the data
// directory.
func (in *Ingestor) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	if err := os.MkdirAll(in.config.LockDir, 0o755); err != nil {
		return nil, ragerr.IOError("failed to create data directory", err)
	}
	lock := flock.New(filepath.Join(in.config.LockDir, ".ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, ragerr.IOError("failed to acquire ingest lock", err)
	}
	if !locked {
		return nil, ragerr.New(ragerr.ErrCodeIngestLocked,
			"another ingest is already running against this data directory", nil)
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := LoadManifest(in.config.ManifestPath)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	// Phase 1: extract and chunk over the worker pool.
	results := make([]extraction, len(entries))
	pool, err := ants.NewPool(in.config.Workers)
	if err != nil {
		return nil, ragerr.InternalError("failed to create worker pool", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, entry := range entries {
		path := filepath.Join(in.config.RawDir, entry.FileName)
		if _, statErr := os.Stat(path); statErr != nil {
			slog.Warn("manifest document missing, skipping",
				slog.String("file", entry.FileName))
			report.Skipped = append(report.Skipped, entry.FileName)
			results[i].err = statErr
			continue
		}

		wg.Add(1)
		res := &results[i]
		res.entry = entry
		res.path = path
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res.pages, res.err = ExtractFile(res.path)
			if res.err == nil {
				res.chunks = ChunkPages(res.pages, in.config.Chunker)
			}
		})
		if submitErr != nil {
			wg.Done()
			res.err = submitErr
		}
	}
	wg.Wait()

	// Phase 2: index sequentially; the store serializes writes anyway.
	for _, res := range results {
		if res.err != nil {
			if res.path != "" {
				slog.Warn("document extraction failed, skipping",
					slog.String("file", res.entry.FileName),
					slog.String("error", res.err.Error()))
				report.Skipped = append(report.Skipped, res.entry.FileName)
			}
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		n, indexErr := in.indexDocument(ctx, res)
		if indexErr != nil {
			return nil, indexErr
		}
		report.Sources++
		report.Chunks += n
	}

	if report.Sources > 0 {
		if stateErr := in.chunks.SetState(ctx, store.StateKeyIngestedAt,
			time.Now().UTC().Format(time.RFC3339)); stateErr != nil {
			slog.Warn("failed to record ingest timestamp",
				slog.String("error", stateErr.Error()))
		}
	}

	report.Duration = time.Since(start)
	slog.Info("ingest complete",
		slog.Int("sources", report.Sources),
		slog.Int("chunks", report.Chunks),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// indexDocument replaces any previous version of the document and indexes
// its chunks. Returns the number of chunks written.
func (in *Ingestor) indexDocument(ctx context.Context, res extraction) (int, error) {
	sourceID := SourceIDFor(res.entry.FileName)

	// Replace semantics: drop the previous ingest of this document.
	old, err := in.chunks.GetChunksBySource(ctx, sourceID)
	if err == nil && len(old) > 0 {
		oldIDs := make([]string, len(old))
		for i, c := range old {
			oldIDs[i] = c.ID
		}
		if delErr := in.engine.Delete(ctx, oldIDs); delErr != nil {
			return 0, fmt.Errorf("remove stale index entries for %s: %w", sourceID, delErr)
		}
		if delErr := in.chunks.DeleteSource(ctx, sourceID); delErr != nil {
			return 0, fmt.Errorf("remove stale source %s: %w", sourceID, delErr)
		}
	}

	title := res.entry.Title
	if title == "" {
		title = res.entry.FileName
	}

	src := &store.Source{
		ID:         sourceID,
		Title:      title,
		Path:       res.path,
		Pages:      len(res.pages),
		ChunkCount: len(res.chunks),
		IngestedAt: time.Now().UTC(),
	}
	if err := in.chunks.SaveSource(ctx, src); err != nil {
		return 0, fmt.Errorf("save source %s: %w", sourceID, err)
	}

	chunks := make([]*store.Chunk, len(res.chunks))
	for i, pc := range res.chunks {
		chunks[i] = &store.Chunk{
			SourceID:  sourceID,
			Title:     title,
			Content:   pc.Text,
			Ordinal:   i,
			PageStart: pc.PageStart,
			PageEnd:   pc.PageEnd,
			WordCount: len(strings.Fields(pc.Text)),
		}
	}

	if err := in.engine.Index(ctx, chunks); err != nil {
		return 0, fmt.Errorf("index document %s: %w", sourceID, err)
	}

	slog.Info("document ingested",
		slog.String("source", sourceID),
		slog.Int("pages", len(res.pages)),
		slog.Int("chunks", len(chunks)))

	return len(chunks), nil
}

var sourceIDRe = regexp.MustCompile(`[^a-z0-9]+`)

// SourceIDFor derives a stable source identifier from a manifest file
// name: lowercase, extension stripped, non-alphanumerics collapsed.
func SourceIDFor(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	slug := sourceIDRe.ReplaceAllString(strings.ToLower(base), "-")
	return "src-" + strings.Trim(slug, "-")
}
