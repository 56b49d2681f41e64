package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of config backups to keep.
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files.
	BackupSuffix = ".bak"
)

// Backup creates a timestamped copy of the config file at path and
// prunes old backups beyond MaxBackups. Returns the backup path.
// A missing source file returns empty string and nil error.
func Backup(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, timestamp)
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Pruning is best-effort; the backup itself succeeded.
	_ = pruneBackups(path)

	return backupPath, nil
}

// ListBackups returns all backups of the config file at path, newest
// first.
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + BackupSuffix + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	// The timestamp suffix sorts lexically; reverse for newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// pruneBackups removes backups beyond MaxBackups, oldest first.
func pruneBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	for _, old := range backups[min(len(backups), MaxBackups):] {
		if err := os.Remove(old); err != nil {
			return err
		}
	}
	return nil
}
