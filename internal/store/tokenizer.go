package store

import (
	"regexp"
	"strings"
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// TokenizeText splits prose into lowercase word tokens.
// Hyphenated and slash-joined terms ("lockout-tagout", "on/off") split
// into their parts. Tokens shorter than 2 characters are dropped.
func TokenizeText(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		lower := strings.ToLower(word)
		if len(lower) >= 2 {
			tokens = append(tokens, lower)
		}
	}

	return tokens
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, isStop := stopWords[lower]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
