package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple sentence",
			input:    "Guard the point of operation",
			expected: []string{"guard", "the", "point", "of", "operation"},
		},
		{
			name:     "hyphenated terms split",
			input:    "lockout-tagout procedure",
			expected: []string{"lockout", "tagout", "procedure"},
		},
		{
			name:     "punctuation stripped",
			input:    "Stop! (immediately); then report.",
			expected: []string{"stop", "immediately", "then", "report"},
		},
		{
			name:     "single characters dropped",
			input:    "a b guard",
			expected: []string{"guard"},
		},
		{
			name:     "numbers kept",
			input:    "OSHA 1910 subpart O",
			expected: []string{"osha", "1910", "subpart"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenizeText(tt.input))
		})
	}
}

func TestFilterStopWords(t *testing.T) {
	stop := BuildStopWordMap([]string{"the", "of"})

	got := FilterStopWords([]string{"guard", "the", "point", "of", "operation"}, stop)
	assert.Equal(t, []string{"guard", "point", "operation"}, got)
}

func TestFilterStopWords_CaseInsensitive(t *testing.T) {
	stop := BuildStopWordMap([]string{"THE"})

	got := FilterStopWords([]string{"The", "guard"}, stop)
	assert.Equal(t, []string{"guard"}, got)
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "OF"})

	_, hasThe := m["the"]
	_, hasOf := m["of"]
	assert.True(t, hasThe)
	assert.True(t, hasOf)
	assert.Len(t, m, 2)
}
