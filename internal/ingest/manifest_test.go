package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	t.Run("valid manifest", func(t *testing.T) {
		path := writeManifest(t, `[
			{"file_name": "osha_lockout.pdf", "title": "OSHA Lockout/Tagout", "url": "https://example.com/loto"},
			{"file_name": "machine_guarding.txt", "title": "Machine Guarding Basics"}
		]`)

		entries, err := LoadManifest(path)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "osha_lockout.pdf", entries[0].FileName)
		assert.Equal(t, "OSHA Lockout/Tagout", entries[0].Title)
		assert.Equal(t, "https://example.com/loto", entries[0].URL)
		assert.Empty(t, entries[1].URL)
	})

	t.Run("empty array", func(t *testing.T) {
		path := writeManifest(t, `[]`)

		entries, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.Equal(t, ragerr.ErrCodeFileNotFound, ragerr.GetCode(err))
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeManifest(t, `{"not": "an array"`)

		_, err := LoadManifest(path)
		require.Error(t, err)
		assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.GetCode(err))
	})

	t.Run("entry without file_name", func(t *testing.T) {
		path := writeManifest(t, `[{"title": "No File Here"}]`)

		_, err := LoadManifest(path)
		require.Error(t, err)
		assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.GetCode(err))
	})
}
