package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/answer"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/config"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/embed"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// appStack wires the storage, embedding, and search components from
// configuration. Commands share it so the wiring lives in one place.
type appStack struct {
	chunks   store.ChunkStore
	lexical  store.LexicalIndex
	dense    *store.HNSWIndex
	embedder embed.Embedder
	engine   *search.HybridEngine

	densePath string
}

// openStack builds the full component stack. A persisted dense index is
// loaded when present.
func openStack(cfg *config.Config, opts ...search.EngineOption) (*appStack, error) {
	dataDir := cfg.Paths.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	chunks, err := store.NewSQLiteStore(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	lexical, err := store.NewLexicalIndexWithBackend(
		filepath.Join(dataDir, "lexical"), store.DefaultLexicalConfig(), cfg.Search.LexicalBackend)
	if err != nil {
		_ = chunks.Close()
		return nil, fmt.Errorf("failed to open lexical index: %w", err)
	}

	embedder, err := embed.NewEmbedderWith(embed.ProviderType(cfg.Embed.Provider), cfg.Embed.Cache)
	if err != nil {
		_ = lexical.Close()
		_ = chunks.Close()
		return nil, err
	}

	dense, err := store.NewHNSWIndex(store.DefaultDenseIndexConfig(embedder.Dimensions()))
	if err != nil {
		_ = lexical.Close()
		_ = chunks.Close()
		return nil, fmt.Errorf("failed to create dense index: %w", err)
	}

	densePath := filepath.Join(dataDir, "vectors.hnsw")
	if _, statErr := os.Stat(densePath); statErr == nil {
		if err := dense.Load(densePath); err != nil {
			_ = lexical.Close()
			_ = chunks.Close()
			return nil, fmt.Errorf("failed to load dense index: %w", err)
		}
	}

	engineCfg := search.Config{
		DefaultTopK:    cfg.Search.DefaultTopK,
		MaxTopK:        cfg.Search.MaxTopK,
		PerSourceLimit: cfg.Search.PerSourceTopK,
		DefaultWeights: search.Weights{
			Dense:   cfg.Search.DenseWeight,
			Lexical: cfg.Search.LexicalWeight,
		},
		SearchTimeout: time.Duration(cfg.Search.TimeoutMS) * time.Millisecond,
	}

	engine, err := search.NewEngine(lexical, dense, embedder, chunks, engineCfg, opts...)
	if err != nil {
		_ = lexical.Close()
		_ = chunks.Close()
		return nil, err
	}

	return &appStack{
		chunks:    chunks,
		lexical:   lexical,
		dense:     dense,
		embedder:  embedder,
		engine:    engine,
		densePath: densePath,
	}, nil
}

// answerConfig maps configuration to the extractive answerer bounds.
func answerConfig(cfg *config.Config) answer.Config {
	return answer.Config{
		MaxWords:         cfg.Answer.MaxWords,
		MaxPassages:      cfg.Answer.MaxPassages,
		AbstainThreshold: cfg.Answer.AbstainThreshold,
	}
}

// saveDense persists the dense index. The lexical index and chunk store
// persist themselves.
func (s *appStack) saveDense() error {
	return s.dense.Save(s.densePath)
}

// Close releases every component.
func (s *appStack) Close() {
	_ = s.engine.Close()
	_ = s.embedder.Close()
}
