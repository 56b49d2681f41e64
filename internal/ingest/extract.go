package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
)

// ExtractFile reads a source document into pages of plain text.
// PDFs yield one Page per document page; text and markdown files yield a
// single page.
func ExtractFile(path string) ([]Page, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".txt", ".md":
		return extractText(path)
	default:
		return nil, ragerr.New(ragerr.ErrCodeExtractFailed,
			fmt.Sprintf("unsupported file type: %s", filepath.Ext(path)), nil).
			WithDetail("path", path)
	}
}

// extractPDF pulls plain text from each PDF page. Pages that fail text
// extraction are skipped with a warning; an unreadable document is an
// error.
func extractPDF(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeExtractFailed, "failed to open pdf", err).
			WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	total := reader.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			slog.Warn("pdf page extraction failed, skipping page",
				slog.String("path", path),
				slog.Int("page", i),
				slog.String("error", err.Error()))
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}

// extractText reads a whole text file as a single page.
func extractText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrCodeFileNotFound, "failed to read file", err).
			WithDetail("path", path)
	}
	return []Page{{Number: 1, Text: string(data)}}, nil
}
