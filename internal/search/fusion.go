package search

import (
	"sort"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/store"
)

// FusedResult represents a single result after weighted fusion.
type FusedResult struct {
	ChunkID      string   // Chunk identifier
	FusedScore   float64  // Weighted sum of normalized source scores
	DenseScore   float64  // Normalized vector similarity (0 if absent)
	LexicalScore float64  // Normalized full-text score (0 if absent)
	DenseRank    int      // Position in dense list (1-indexed, 0 if absent)
	LexicalRank  int      // Position in lexical list (1-indexed, 0 if absent)
	InBothLists  bool     // Chunk appeared in both result lists
	MatchedTerms []string // Lexical matched terms (for highlighting)
}

// WeightedFusion combines dense and lexical results using a weighted sum
// over min-max normalized scores.
//
// Algorithm: fused(d) = w_dense * norm_dense(d) + w_lexical * norm_lexical(d)
//
// A chunk absent from one list contributes 0 for that source. Scores are
// normalized within each list before weighting, so raw cosine distances and
// BM25 values never mix directly.
type WeightedFusion struct {
	Weights Weights
}

// NewWeightedFusion creates a fusion instance with the default 0.6/0.4 blend.
func NewWeightedFusion() *WeightedFusion {
	return &WeightedFusion{Weights: DefaultWeights()}
}

// NewWeightedFusionWith creates a fusion instance with a custom blend.
// Non-positive weight pairs fall back to the default.
func NewWeightedFusionWith(w Weights) *WeightedFusion {
	if w.Dense <= 0 && w.Lexical <= 0 {
		w = DefaultWeights()
	}
	return &WeightedFusion{Weights: w}
}

// Fuse combines dense and lexical results into a single ranked list using
// the receiver's weights.
//
// Results are sorted by: FusedScore (desc) → InBothLists (true first) →
// ChunkID (asc). Ties resolve identically on every run.
func (f *WeightedFusion) Fuse(
	dense []*store.DenseResult,
	lexical []*store.LexicalResult,
) []*FusedResult {
	// Return empty slice, not nil, for consistent API behavior
	if len(dense) == 0 && len(lexical) == 0 {
		return []*FusedResult{}
	}

	capacity := len(dense) + len(lexical)
	scores := make(map[string]*FusedResult, capacity)

	// Normalize each source list independently before weighting.
	denseNorm := minMaxNormalize(denseScores(dense))
	lexicalNorm := minMaxNormalize(lexicalScores(lexical))

	for rank, r := range dense {
		result := f.getOrCreate(scores, r.ID)
		result.DenseScore = denseNorm[rank]
		result.DenseRank = rank + 1
		result.FusedScore += f.Weights.Dense * denseNorm[rank]
	}

	for rank, r := range lexical {
		result := f.getOrCreate(scores, r.ChunkID)
		result.LexicalScore = lexicalNorm[rank]
		result.LexicalRank = rank + 1
		result.MatchedTerms = r.MatchedTerms
		result.FusedScore += f.Weights.Lexical * lexicalNorm[rank]

		if result.DenseRank > 0 {
			result.InBothLists = true
		}
	}

	return f.toSortedSlice(scores)
}

// denseScores extracts raw similarity scores in list order.
func denseScores(results []*store.DenseResult) []float64 {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = float64(r.Score)
	}
	return scores
}

// lexicalScores extracts raw full-text scores in list order.
func lexicalScores(results []*store.LexicalResult) []float64 {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	return scores
}

// getOrCreate returns existing result or creates new one.
func (f *WeightedFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}

// toSortedSlice converts map to slice and sorts by fused score with tie-breaking.
func (f *WeightedFusion) toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.compare(results[i], results[j])
	})

	return results
}

// compare implements deterministic comparison for sorting.
// Returns true if a should rank before b.
//
// Priority:
//  1. Higher fused score
//  2. In both lists (true before false)
//  3. Lexicographically smaller ChunkID (deterministic)
func (f *WeightedFusion) compare(a, b *FusedResult) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}

	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}

	return a.ChunkID < b.ChunkID
}
