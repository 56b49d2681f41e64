package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.minirag/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".minirag", "logs")
	}
	return filepath.Join(home, ".minirag", "logs")
}

// DefaultLogPath returns the default service log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "minirag.log")
}

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.minirag/logs/minirag.log (global)
//
// Returns an error if no log file is found.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Service may not have run yet.\nExpected at: %s", globalPath)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}
