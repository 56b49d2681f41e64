package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Registered(t *testing.T) {
	// Given: the root command
	rootCmd := NewRootCmd()

	// When: looking up the serve subcommand
	serveCmd, _, err := rootCmd.Find([]string{"serve"})

	// Then: it exists with its flags
	require.NoError(t, err)
	assert.Equal(t, "serve", serveCmd.Name())
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, serveCmd.Flags().Lookup("no-telemetry"))
}

func TestOpenMetrics_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")

	// When: opening the telemetry store
	metrics, db, err := openMetrics(dataDir)
	require.NoError(t, err)
	defer func() {
		_ = metrics.Close()
		_ = db.Close()
	}()

	// Then: the database file exists with the telemetry schema
	_, statErr := os.Stat(filepath.Join(dataDir, "metrics.db"))
	assert.NoError(t, statErr)

	var name string
	err = db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='query_terms'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "query_terms", name)
}
