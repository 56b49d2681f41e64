package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// HashEmbedder generates embeddings using a hash-based approach.
// Works without external dependencies (no network, no model download).
// Provides deterministic, fast embeddings with reduced semantic quality.
type HashEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// proseStopWords contains common English function words that are filtered
// before hashing so the vector weight concentrates on content terms.
var proseStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "for": true,
	"with": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "this": true, "that": true, "it": true, "as": true,
	"at": true, "by": true, "from": true,
}

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric sequences
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewHashEmbedder creates a new hash embedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// Embed generates embedding for a single text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	// Handle empty/whitespace input
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, HashDimensions), nil
	}

	// Generate vector
	vector := e.generateVector(trimmed)

	// Normalize
	return normalizeVector(vector), nil
}

// generateVector creates a hash-based vector from text.
// Word tokens carry most of the weight; character trigrams add partial
// overlap between related word forms ("guard", "guarding").
func (e *HashEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, HashDimensions)

	tokens := tokenize(text)
	tokens = filterStopWords(tokens)

	for _, token := range tokens {
		index := hashToIndex(token, HashDimensions)
		vector[index] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	ngrams := extractNgrams(normalized, ngramSize)
	for _, ngram := range ngrams {
		index := hashToIndex(ngram, HashDimensions)
		vector[index] += ngramWeight
	}

	return vector
}

// tokenize splits text into lowercase word tokens.
func tokenize(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		lower := strings.ToLower(word)
		if lower != "" {
			tokens = append(tokens, lower)
		}
	}

	return tokens
}

// filterStopWords removes prose stop words.
func filterStopWords(tokens []string) []string {
	var filtered []string
	for _, t := range tokens {
		if !proseStopWords[t] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// normalizeForNgrams prepares text for n-gram extraction.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}

	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to an index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}

	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return HashDimensions
}

// ModelName returns the model identifier.
func (e *HashEmbedder) ModelName() string {
	return "hash"
}

// Available checks if the embedder is ready (always true for hash).
func (e *HashEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *HashEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
