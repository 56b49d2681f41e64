package answer

import (
	"fmt"
	"strings"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/search"
)

// Config bounds answer extraction.
type Config struct {
	// MaxWords caps each extracted snippet (default: 30).
	MaxWords int

	// MaxPassages is how many top-ranked chunks contribute snippets
	// (default: 2).
	MaxPassages int

	// AbstainThreshold is the minimum fused score of the top result.
	// Below it the answerer abstains rather than quote weak evidence
	// (default: 0.28).
	AbstainThreshold float64
}

// DefaultConfig returns the standard extraction bounds.
func DefaultConfig() Config {
	return Config{
		MaxWords:         30,
		MaxPassages:      2,
		AbstainThreshold: 0.28,
	}
}

// Answer is the extractive result for one question.
type Answer struct {
	// Text is the trimmed excerpt with inline source markers. Empty
	// when Abstained.
	Text string

	// Abstained is true when no result cleared the evidence threshold.
	// Citations still carry whatever was retrieved.
	Abstained bool

	// Citations holds provenance for every surfaced result, answer
	// material or not.
	Citations []Citation
}

// Build extracts an answer from ranked results. Results below the abstain
// threshold, or an empty result list, yield an abstention with the
// retrieved citations attached. Never errors: every input resolves to a
// well-formed Answer.
func Build(question string, results []*search.Result, cfg Config) *Answer {
	citations := BuildCitations(results)

	if len(results) == 0 {
		return &Answer{Abstained: true, Citations: citations}
	}

	if results[0].FusedScore < cfg.AbstainThreshold {
		return &Answer{Abstained: true, Citations: citations}
	}

	terms := QuestionTerms(question)

	var snippets []string
	var markers []string
	seen := make(map[string]bool)

	limit := cfg.MaxPassages
	if limit > len(results) {
		limit = len(results)
	}
	for _, r := range results[:limit] {
		snippet := BestSnippet(r.Chunk.Content, terms, cfg.MaxWords)
		if snippet == "" {
			continue
		}
		snippets = append(snippets, snippet)

		marker := fmt.Sprintf("[%s, chunk %d]", r.Chunk.Title, r.Chunk.Ordinal)
		if !seen[marker] {
			seen[marker] = true
			markers = append(markers, marker)
		}
	}

	if len(snippets) == 0 {
		return &Answer{Abstained: true, Citations: citations}
	}

	text := strings.Join(snippets, " ")
	if len(markers) > 0 {
		text = text + " " + strings.Join(markers, " ")
	}

	return &Answer{
		Text:      strings.TrimSpace(text),
		Citations: citations,
	}
}
