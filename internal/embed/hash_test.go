package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_ImplementsEmbedderInterface(t *testing.T) {
	var _ Embedder = NewHashEmbedder()
}

func TestHashEmbedder_Embed_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	text := "machine guarding prevents contact with rotating parts"

	v1, err := e.Embed(ctx, text)
	require.NoError(t, err)
	v2, err := e.Embed(ctx, text)
	require.NoError(t, err)

	assert.Equal(t, v1, v2, "same text should produce identical vectors")
}

func TestHashEmbedder_Embed_UnitLength(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	v, err := e.Embed(context.Background(), "lockout tagout procedures for conveyor maintenance")
	require.NoError(t, err)
	require.Len(t, v, HashDimensions)

	assert.InDelta(t, 1.0, vectorMagnitude(v), 1e-5, "vector should be normalized")
}

func TestHashEmbedder_Embed_EmptyInput_ZeroVector(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   \t\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Embed(context.Background(), tt.text)
			require.NoError(t, err)
			require.Len(t, v, HashDimensions)
			assert.Zero(t, vectorMagnitude(v), "empty input should produce zero vector")
		})
	}
}

func TestHashEmbedder_Embed_RelatedTextsMoreSimilar(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	guard1, err := e.Embed(ctx, "machine guarding protects operators from moving parts")
	require.NoError(t, err)
	guard2, err := e.Embed(ctx, "fixed guards enclose moving parts of the machine")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "chemical storage cabinets require ventilation labels")
	require.NoError(t, err)

	simRelated := cosineSimilarity(guard1, guard2)
	simUnrelated := cosineSimilarity(guard1, unrelated)

	assert.Greater(t, simRelated, simUnrelated,
		"overlapping vocabulary should score higher than unrelated text")
}

func TestHashEmbedder_Embed_WordFormOverlap(t *testing.T) {
	// Character trigrams give partial credit across inflected forms.
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	a, err := e.Embed(ctx, "guarding")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "guard")
	require.NoError(t, err)

	assert.Greater(t, cosineSimilarity(a, b), 0.1,
		"inflected forms should share trigram mass")
}

func TestHashEmbedder_EmbedBatch(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	texts := []string{
		"hearing protection is required above 85 decibels",
		"respirators must be fit tested annually",
	}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	// Batch results match individual embeds
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestHashEmbedder_EmbedBatch_Empty(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	batch, err := e.EmbedBatch(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestHashEmbedder_Closed_ReturnsError(t *testing.T) {
	e := NewHashEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "anything")
	assert.Error(t, err)

	_, err = e.EmbedBatch(context.Background(), []string{"anything"})
	assert.Error(t, err)

	assert.False(t, e.Available(context.Background()))
}

func TestHashEmbedder_Metadata(t *testing.T) {
	e := NewHashEmbedder()
	defer func() { _ = e.Close() }()

	assert.Equal(t, HashDimensions, e.Dimensions())
	assert.Equal(t, "hash", e.ModelName())
	assert.True(t, e.Available(context.Background()))
}

func TestTokenize_LowercasesAndSplits(t *testing.T) {
	tokens := tokenize("Lockout-Tagout applies to Conveyor 3")
	assert.Equal(t, []string{"lockout", "tagout", "applies", "to", "conveyor", "3"}, tokens)
}

func TestFilterStopWords_DropsFunctionWords(t *testing.T) {
	tokens := filterStopWords([]string{"the", "guard", "on", "a", "press"})
	assert.Equal(t, []string{"guard", "press"}, tokens)
}

func TestExtractNgrams(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want []string
	}{
		{"basic", "guard", 3, []string{"gua", "uar", "ard"}},
		{"shorter than n", "at", 3, []string{}},
		{"exact length", "ppe", 3, []string{"ppe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractNgrams(tt.text, tt.n))
		})
	}
}

func TestHashToIndex_InRange(t *testing.T) {
	for _, s := range []string{"guard", "hazard", "ppe", ""} {
		idx := hashToIndex(s, HashDimensions)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, HashDimensions)
	}
}
