// Package ingest turns source documents into indexed chunks. Extraction,
// chunking, and indexing run per document over a bounded worker pool; a
// file lock keeps concurrent ingests off the same data directory.
package ingest

import (
	"regexp"
	"strings"
)

// ChunkerConfig bounds chunk construction.
type ChunkerConfig struct {
	// TargetChars is the preferred chunk length (default: 900).
	TargetChars int

	// MinChars is the smallest standalone chunk; a shorter tail merges
	// into the previous chunk (default: 200).
	MinChars int

	// OverlapParas is how many trailing paragraphs carry over into the
	// next chunk for continuity (default: 1).
	OverlapParas int
}

// DefaultChunkerConfig returns the standard chunking bounds.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetChars:  900,
		MinChars:     200,
		OverlapParas: 1,
	}
}

// Page is one unit of extracted document text. Plain text files are a
// single page.
type Page struct {
	Number int
	Text   string
}

// PageChunk is a chunk of document text with its page range.
type PageChunk struct {
	Text      string
	PageStart int
	PageEnd   int
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanText collapses whitespace runs and trims the result.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SplitParagraphs splits a block of text on blank lines into cleaned,
// non-empty paragraphs.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	for _, raw := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		if cleaned := CleanText(raw); cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}
	return paragraphs
}

// ChunkPages assembles page text into chunks near the target length,
// tracking the page range each chunk spans. Paragraph buffers carry the
// last paragraph forward so adjacent chunks overlap by one paragraph.
func ChunkPages(pages []Page, cfg ChunkerConfig) []PageChunk {
	if cfg.TargetChars <= 0 {
		cfg = DefaultChunkerConfig()
	}

	var chunks []PageChunk
	var buffer []string
	bufferStartPage := 0
	lastPageSeen := 0
	carried := 0 // leading buffer paragraphs already emitted in the previous chunk

	flush := func(endPage int) {
		text := strings.Join(buffer, " ")
		chunks = append(chunks, PageChunk{
			Text:      text,
			PageStart: bufferStartPage,
			PageEnd:   endPage,
		})
	}

	for _, page := range pages {
		lastPageSeen = page.Number
		paragraphs := SplitParagraphs(page.Text)
		if len(paragraphs) == 0 {
			continue
		}

		for _, para := range paragraphs {
			if len(buffer) == 0 {
				bufferStartPage = page.Number
			}
			buffer = append(buffer, para)

			if len(strings.Join(buffer, " ")) >= cfg.TargetChars {
				flush(page.Number)
				overlap := cfg.OverlapParas
				if overlap > len(buffer) {
					overlap = len(buffer)
				}
				buffer = append([]string(nil), buffer[len(buffer)-overlap:]...)
				carried = overlap
				bufferStartPage = page.Number
			}
		}

		// An oversized buffer at a page boundary flushes without overlap
		// so a single giant paragraph cannot snowball. A buffer holding
		// only carried overlap has nothing new to emit.
		if carried < len(buffer) && len(strings.Join(buffer, " ")) > cfg.TargetChars*3/2 {
			flush(page.Number)
			buffer = nil
			carried = 0
			bufferStartPage = 0
		}
	}

	if len(buffer) > carried {
		tail := strings.Join(buffer, " ")
		if len(tail) < cfg.MinChars && len(chunks) > 0 {
			// Too small to stand alone; extend the previous chunk with the
			// paragraphs it does not already contain.
			if carried > len(buffer) {
				carried = len(buffer)
			}
			fresh := strings.Join(buffer[carried:], " ")
			last := &chunks[len(chunks)-1]
			if fresh != "" {
				last.Text = last.Text + " " + fresh
			}
			if lastPageSeen > last.PageEnd {
				last.PageEnd = lastPageSeen
			}
		} else {
			flush(lastPageSeen)
		}
	}

	return chunks
}
