package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
)

func TestExtractFile_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guarding.txt")
	content := "Machine guards protect operators.\n\nNever bypass an interlock."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pages, err := ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, content, pages[0].Text)
}

func TestExtractFile_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Heading\n\nBody text."), 0o644))

	pages, err := ExtractFile(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0].Text, "Body text.")
}

func TestExtractFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slides.pptx")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	_, err := ExtractFile(path)
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeExtractFailed, ragerr.GetCode(err))
}

func TestExtractFile_MissingText(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeFileNotFound, ragerr.GetCode(err))
}

func TestExtractFile_CorruptPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, err := ExtractFile(path)
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeExtractFailed, ragerr.GetCode(err))
}
