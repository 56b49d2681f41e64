package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses runs", "lockout   tagout\t\tprocedure", "lockout tagout procedure"},
		{"trims edges", "  guard rail  ", "guard rail"},
		{"newlines become spaces", "line one\nline two", "line one line two"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "blank line separates",
			input: "First paragraph.\n\nSecond paragraph.",
			want:  []string{"First paragraph.", "Second paragraph."},
		},
		{
			name:  "whitespace-only separator",
			input: "First.\n   \nSecond.",
			want:  []string{"First.", "Second."},
		},
		{
			name:  "single newline does not split",
			input: "One line\nsame paragraph.",
			want:  []string{"One line same paragraph."},
		},
		{
			name:  "empty segments dropped",
			input: "\n\nOnly one.\n\n\n\n",
			want:  []string{"Only one."},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParagraphs(tt.input))
		})
	}
}

// para builds a paragraph of exactly n characters.
func para(word string, n int) string {
	s := strings.Repeat(word+" ", n/(len(word)+1)+1)
	return strings.TrimSpace(s[:n])
}

func TestChunkPages_SingleShortPage(t *testing.T) {
	pages := []Page{{Number: 1, Text: "Wear eye protection near the grinder."}}

	chunks := ChunkPages(pages, DefaultChunkerConfig())

	require.Len(t, chunks, 1)
	assert.Equal(t, "Wear eye protection near the grinder.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 1, chunks[0].PageEnd)
}

func TestChunkPages_EmptyPages(t *testing.T) {
	assert.Empty(t, ChunkPages(nil, DefaultChunkerConfig()))
	assert.Empty(t, ChunkPages([]Page{{Number: 1, Text: "  \n\n  "}}, DefaultChunkerConfig()))
}

func TestChunkPages_FlushAtTargetWithOverlap(t *testing.T) {
	cfg := ChunkerConfig{TargetChars: 50, MinChars: 40, OverlapParas: 1}
	p1 := para("alpha", 30)
	p2 := para("bravo", 30)
	p3 := para("delta", 30)
	pages := []Page{{Number: 1, Text: p1 + "\n\n" + p2 + "\n\n" + p3}}

	chunks := ChunkPages(pages, cfg)

	require.Len(t, chunks, 2)
	assert.Equal(t, p1+" "+p2, chunks[0].Text)
	// The second chunk repeats the last paragraph of the first.
	assert.Equal(t, p2+" "+p3, chunks[1].Text)
}

func TestChunkPages_ShortTailMergesWithoutDuplicatingOverlap(t *testing.T) {
	cfg := ChunkerConfig{TargetChars: 50, MinChars: 45, OverlapParas: 1}
	p1 := para("alpha", 30)
	p2 := para("bravo", 30)
	tail := "tiny end"
	pages := []Page{{Number: 1, Text: p1 + "\n\n" + p2 + "\n\n" + tail}}

	chunks := ChunkPages(pages, cfg)

	// Tail buffer is [p2 (overlap), tiny end], below the minimum. Only the
	// fresh text joins the previous chunk; p2 must not appear twice.
	require.Len(t, chunks, 1)
	assert.Equal(t, p1+" "+p2+" "+tail, chunks[0].Text)
	assert.Equal(t, 1, strings.Count(chunks[0].Text, p2))
}

func TestChunkPages_PageRangeSpansPages(t *testing.T) {
	cfg := ChunkerConfig{TargetChars: 100, MinChars: 20, OverlapParas: 1}
	pages := []Page{
		{Number: 3, Text: para("first", 40)},
		{Number: 4, Text: para("second", 70)},
	}

	chunks := ChunkPages(pages, cfg)

	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].PageStart)
	assert.Equal(t, 4, chunks[0].PageEnd)
}

func TestChunkPages_OversizeParagraphDoesNotDuplicate(t *testing.T) {
	cfg := ChunkerConfig{TargetChars: 50, MinChars: 20, OverlapParas: 1}
	giant := para("conveyor", 120)
	pages := []Page{{Number: 1, Text: giant}}

	chunks := ChunkPages(pages, cfg)

	require.Len(t, chunks, 1)
	assert.Equal(t, giant, chunks[0].Text)
}

func TestChunkPages_OverlapDisabled(t *testing.T) {
	cfg := ChunkerConfig{TargetChars: 50, MinChars: 20, OverlapParas: 0}
	p1 := para("alpha", 30)
	p2 := para("bravo", 30)
	p3 := para("delta", 30)
	pages := []Page{{Number: 1, Text: p1 + "\n\n" + p2 + "\n\n" + p3}}

	chunks := ChunkPages(pages, cfg)

	require.Len(t, chunks, 2)
	assert.Equal(t, p1+" "+p2, chunks[0].Text)
	assert.Equal(t, p3, chunks[1].Text)
}

func TestChunkPages_ZeroConfigUsesDefaults(t *testing.T) {
	pages := []Page{{Number: 1, Text: para("safety", 250)}}

	chunks := ChunkPages(pages, ChunkerConfig{})

	require.Len(t, chunks, 1)
	assert.Equal(t, para("safety", 250), chunks[0].Text)
}
