package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how much the process logs.
type Config struct {
	// Level is the minimum level to record (debug, info, warn, error).
	Level string
	// FilePath is where the JSON log lines go. Empty means the default
	// path under the user's home directory.
	FilePath string
	// MaxSizeMB is the rotation threshold (default: 10).
	MaxSizeMB int
	// MaxFiles is how many rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr mirrors every record to stderr as well.
	WriteToStderr bool
}

// DefaultConfig returns file logging at info level, mirrored to stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig at debug level.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// normalize fills zero values with defaults.
func (c Config) normalize() Config {
	if c.FilePath == "" {
		c.FilePath = DefaultLogPath()
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = 5
	}
	return c
}

// Setup opens the rotating log file and returns a JSON slog logger over
// it, plus a cleanup that flushes and closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	cfg = cfg.normalize()

	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var sink io.Writer = writer
	if cfg.WriteToStderr {
		sink = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(sink, &slog.HandlerOptions{
		Level: LevelFromString(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return slog.New(handler), cleanup, nil
}

// LevelFromString maps a config level name to a slog.Level. Unknown
// names fall back to info.
func LevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
