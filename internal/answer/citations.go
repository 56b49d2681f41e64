package answer

import (
	"math"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
)

// Citation records the provenance of one surfaced passage. Scores carry
// four decimal places; per-source scores are nil when that source did not
// return the chunk.
type Citation struct {
	DocumentID   string   `json:"document_id"`
	ChunkID      string   `json:"chunk_id"`
	ChunkIndex   int      `json:"chunk_index"`
	Rank         int      `json:"rank"`
	FusedScore   float64  `json:"fused_score"`
	DenseScore   *float64 `json:"dense_score"`
	LexicalScore *float64 `json:"lexical_score"`
	Text         string   `json:"text"`
	SourceTitle  string   `json:"source_title"`
	PageStart    int      `json:"page_start"`
	PageEnd      int      `json:"page_end"`
}

// BuildCitations assembles provenance records for every surfaced result,
// in rank order.
func BuildCitations(results []*search.Result) []Citation {
	citations := make([]Citation, 0, len(results))
	for i, r := range results {
		c := Citation{
			DocumentID:  r.Chunk.SourceID,
			ChunkID:     r.Chunk.ID,
			ChunkIndex:  r.Chunk.Ordinal,
			Rank:        i + 1,
			FusedScore:  round4(r.FusedScore),
			Text:        r.Chunk.Content,
			SourceTitle: r.Chunk.Title,
			PageStart:   r.Chunk.PageStart,
			PageEnd:     r.Chunk.PageEnd,
		}
		if r.DenseRank > 0 {
			s := round4(r.DenseScore)
			c.DenseScore = &s
		}
		if r.LexicalRank > 0 {
			s := round4(r.LexicalScore)
			c.LexicalScore = &s
		}
		citations = append(citations, c)
	}
	return citations
}

// round4 rounds to four decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
