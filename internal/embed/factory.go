package embed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderHash uses deterministic hash-based embeddings (default).
	// Fully offline, no model download, stable across runs.
	ProviderHash ProviderType = "hash"
)

// NewEmbedder creates an embedder for the given provider, wrapped in an
// LRU query cache. The MINIRAG_EMBEDDER environment variable overrides
// the provider; MINIRAG_EMBED_CACHE=false disables caching.
func NewEmbedder(provider ProviderType) (Embedder, error) {
	if envProvider := os.Getenv("MINIRAG_EMBEDDER"); envProvider != "" {
		provider = ProviderType(strings.ToLower(envProvider))
	}

	return NewEmbedderWith(provider, os.Getenv("MINIRAG_EMBED_CACHE") != "false")
}

// NewEmbedderWith creates an embedder with explicit cache control, for
// callers that resolved the configuration themselves.
func NewEmbedderWith(provider ProviderType, cache bool) (Embedder, error) {
	var embedder Embedder
	switch provider {
	case ProviderHash, "":
		embedder = NewHashEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: hash)", provider)
	}

	if !cache {
		slog.Debug("embedding cache disabled",
			slog.String("provider", string(provider)))
		return embedder, nil
	}

	slog.Debug("embedder created",
		slog.String("provider", string(provider)),
		slog.Int("dimensions", embedder.Dimensions()))
	return NewCachedEmbedderWithDefaults(embedder), nil
}
