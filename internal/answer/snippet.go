// Package answer builds short extractive answers from ranked retrieval
// results. Answers are verbatim excerpts of chunk text trimmed to a word
// budget; nothing is ever generated.
package answer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// questionTermRe matches content-bearing question words. Short function
// words fall below the three character floor.
var questionTermRe = regexp.MustCompile(`[A-Za-z0-9]{3,}`)

// Snippet window sizes in bytes around the earliest question term hit.
const (
	snippetBefore = 80
	snippetAfter  = 220
)

// boundaryChars end a sentence or clause. A trimmed answer prefers to
// stop at one of these instead of mid-clause.
const boundaryChars = ".!?;:"

// QuestionTerms extracts lowercase content words from a question.
func QuestionTerms(question string) []string {
	matches := questionTermRe.FindAllString(question, -1)
	terms := make([]string, 0, len(matches))
	for _, m := range matches {
		terms = append(terms, strings.ToLower(m))
	}
	return terms
}

// BestSnippet selects a window of text around the earliest question term
// occurrence and trims it to maxWords. When no term occurs in the text the
// window starts at the beginning. Whitespace runs collapse to single
// spaces.
func BestSnippet(text string, terms []string, maxWords int) string {
	lowered := strings.ToLower(text)

	bestIdx := -1
	for _, term := range terms {
		if idx := strings.Index(lowered, term); idx != -1 {
			if bestIdx == -1 || idx < bestIdx {
				bestIdx = idx
			}
		}
	}

	snippet := text
	if bestIdx != -1 {
		start := bestIdx - snippetBefore
		if start < 0 {
			start = 0
		}
		end := bestIdx + snippetAfter
		if end > len(text) {
			end = len(text)
		}

		// ToLower can shift byte offsets for a handful of characters,
		// and the window edges may land inside a rune either way. Snap
		// both edges to rune starts.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}
		snippet = text[start:end]
	}

	snippet = strings.Join(strings.Fields(snippet), " ")
	return TrimToWordCap(snippet, maxWords)
}

// TrimToWordCap bounds text to at most maxWords words. The cut lands on
// the sentence or clause boundary nearest below the cap when one exists;
// otherwise the text is hard-truncated at the cap with an ellipsis marker.
// Operating on whole words means a multi-byte character is never split.
func TrimToWordCap(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}

	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}

	capped := words[:maxWords]
	for i := maxWords - 1; i >= 0; i-- {
		if endsAtBoundary(capped[i]) {
			return strings.Join(capped[:i+1], " ")
		}
	}

	return strings.Join(capped, " ") + "..."
}

// endsAtBoundary reports whether a word closes a sentence or clause.
// Trailing quotes and brackets after the punctuation still count.
func endsAtBoundary(word string) bool {
	trimmed := strings.TrimRight(word, `"')]`)
	if trimmed == "" {
		return false
	}
	return strings.ContainsAny(trimmed[len(trimmed)-1:], boundaryChars)
}
