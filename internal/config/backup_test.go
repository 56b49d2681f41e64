package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup(t *testing.T) {
	t.Run("copies the file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "minirag.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

		backupPath, err := Backup(path)
		require.NoError(t, err)
		require.NotEmpty(t, backupPath)

		data, err := os.ReadFile(backupPath)
		require.NoError(t, err)
		assert.Equal(t, "version: 1\n", string(data))
	})

	t.Run("missing source is a no-op", func(t *testing.T) {
		backupPath, err := Backup(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, backupPath)
	})

	t.Run("prunes beyond the cap", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "minirag.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

		// Simulate older backups with distinct timestamps.
		for i := 0; i < MaxBackups+2; i++ {
			old := fmt.Sprintf("%s%s.2024010%d-000000", path, BackupSuffix, i+1)
			require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
		}

		_, err := Backup(path)
		require.NoError(t, err)

		backups, err := ListBackups(path)
		require.NoError(t, err)
		assert.Len(t, backups, MaxBackups)
	})
}

func TestListBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minirag.yaml")

	t.Run("empty when none exist", func(t *testing.T) {
		backups, err := ListBackups(path)
		require.NoError(t, err)
		assert.Empty(t, backups)
	})

	t.Run("newest first", func(t *testing.T) {
		older := path + BackupSuffix + ".20240101-000000"
		newer := path + BackupSuffix + ".20250101-000000"
		require.NoError(t, os.WriteFile(older, []byte("a"), 0o644))
		require.NoError(t, os.WriteFile(newer, []byte("b"), 0o644))

		backups, err := ListBackups(path)
		require.NoError(t, err)
		require.Len(t, backups, 2)
		assert.Equal(t, newer, backups[0])
		assert.Equal(t, older, backups[1])
	})
}
