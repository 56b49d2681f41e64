// Package config loads minirag settings from defaults, an optional YAML
// file, and MINIRAG_* environment variables, in that precedence order.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	ragerr "github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/errors"
)

// ConfigFileName is the project config file looked up in the working
// directory when no explicit path is given.
const ConfigFileName = "minirag.yaml"

// Config is the complete minirag configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Answer  AnswerConfig  `yaml:"answer" json:"answer"`
	Chunker ChunkerConfig `yaml:"chunker" json:"chunker"`
	Embed   EmbedConfig   `yaml:"embeddings" json:"embeddings"`
	Ingest  IngestConfig  `yaml:"ingest" json:"ingest"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PathsConfig locates the corpus and the derived data.
type PathsConfig struct {
	// DataDir holds the indices, chunk store, and ingest lock.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// RawDir holds the source documents.
	RawDir string `yaml:"raw_dir" json:"raw_dir"`

	// ManifestPath is the sources manifest.
	ManifestPath string `yaml:"manifest" json:"manifest"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	// DenseWeight and LexicalWeight blend the normalized source scores.
	// They must sum to 1.
	DenseWeight   float64 `yaml:"dense_weight" json:"dense_weight"`
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`

	// LexicalBackend selects "sqlite" (FTS5) or "bleve".
	LexicalBackend string `yaml:"lexical_backend" json:"lexical_backend"`

	// PerSourceTopK is how many candidates each source contributes
	// before fusion.
	PerSourceTopK int `yaml:"per_source_top_k" json:"per_source_top_k"`

	// DefaultTopK and MaxTopK bound the answer context count.
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k" json:"max_top_k"`

	// TimeoutMS caps a single retrieval pass.
	TimeoutMS int `yaml:"timeout_ms" json:"timeout_ms"`
}

// AnswerConfig tunes extractive answer construction.
type AnswerConfig struct {
	// AbstainThreshold is the fused-score floor below which no answer
	// is produced.
	AbstainThreshold float64 `yaml:"abstain_threshold" json:"abstain_threshold"`

	// MaxWords caps each extracted snippet.
	MaxWords int `yaml:"max_words" json:"max_words"`

	// MaxPassages is how many top chunks contribute snippets.
	MaxPassages int `yaml:"max_passages" json:"max_passages"`
}

// ChunkerConfig tunes document chunking.
type ChunkerConfig struct {
	TargetChars  int `yaml:"target_chars" json:"target_chars"`
	MinChars     int `yaml:"min_chars" json:"min_chars"`
	OverlapParas int `yaml:"overlap_paras" json:"overlap_paras"`
}

// EmbedConfig selects the embedding provider.
type EmbedConfig struct {
	// Provider is "hash" or empty for the default.
	Provider string `yaml:"provider" json:"provider"`

	// Cache enables the LRU embedding cache.
	Cache bool `yaml:"cache" json:"cache"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// Workers bounds concurrent document extraction. 0 means auto.
	Workers int `yaml:"workers" json:"workers"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" json:"level"`

	// File is an optional log file path; empty logs to stderr only.
	File string `yaml:"file" json:"file"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:      "data",
			RawDir:       filepath.Join("data", "raw"),
			ManifestPath: filepath.Join("data", "sources.json"),
		},
		Search: SearchConfig{
			DenseWeight:    0.6,
			LexicalWeight:  0.4,
			LexicalBackend: "sqlite",
			PerSourceTopK:  30,
			DefaultTopK:    4,
			MaxTopK:        20,
			TimeoutMS:      5000,
		},
		Answer: AnswerConfig{
			AbstainThreshold: 0.28,
			MaxWords:         30,
			MaxPassages:      2,
		},
		Chunker: ChunkerConfig{
			TargetChars:  900,
			MinChars:     200,
			OverlapParas: 1,
		},
		Embed: EmbedConfig{
			Provider: "hash",
			Cache:    true,
		},
		Ingest: IngestConfig{
			Workers: 0,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (or minirag.yaml in the working directory when path is empty,
// missing files are fine), then a .env file if present, then MINIRAG_*
// environment variables.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if path == "" {
		path = ConfigFileName
	}
	if err := cfg.loadYAML(path, explicit); err != nil {
		return nil, err
	}

	// .env is developer convenience; a missing file is not an error.
	_ = godotenv.Load()

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges the file at path into c. A missing file is only an
// error when the path was given explicitly.
func (c *Config) loadYAML(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return ragerr.New(ragerr.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return ragerr.New(ragerr.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Booleans that
// default to true cannot be distinguished from unset, so Embed.Cache is
// only controllable via its env var.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Paths.RawDir != "" {
		c.Paths.RawDir = other.Paths.RawDir
	}
	if other.Paths.ManifestPath != "" {
		c.Paths.ManifestPath = other.Paths.ManifestPath
	}

	if other.Search.DenseWeight != 0 {
		c.Search.DenseWeight = other.Search.DenseWeight
	}
	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.LexicalBackend != "" {
		c.Search.LexicalBackend = other.Search.LexicalBackend
	}
	if other.Search.PerSourceTopK != 0 {
		c.Search.PerSourceTopK = other.Search.PerSourceTopK
	}
	if other.Search.DefaultTopK != 0 {
		c.Search.DefaultTopK = other.Search.DefaultTopK
	}
	if other.Search.MaxTopK != 0 {
		c.Search.MaxTopK = other.Search.MaxTopK
	}
	if other.Search.TimeoutMS != 0 {
		c.Search.TimeoutMS = other.Search.TimeoutMS
	}

	if other.Answer.AbstainThreshold != 0 {
		c.Answer.AbstainThreshold = other.Answer.AbstainThreshold
	}
	if other.Answer.MaxWords != 0 {
		c.Answer.MaxWords = other.Answer.MaxWords
	}
	if other.Answer.MaxPassages != 0 {
		c.Answer.MaxPassages = other.Answer.MaxPassages
	}

	if other.Chunker.TargetChars != 0 {
		c.Chunker.TargetChars = other.Chunker.TargetChars
	}
	if other.Chunker.MinChars != 0 {
		c.Chunker.MinChars = other.Chunker.MinChars
	}
	if other.Chunker.OverlapParas != 0 {
		c.Chunker.OverlapParas = other.Chunker.OverlapParas
	}

	if other.Embed.Provider != "" {
		c.Embed.Provider = other.Embed.Provider
	}

	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies MINIRAG_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MINIRAG_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("MINIRAG_RAW_DIR"); v != "" {
		c.Paths.RawDir = v
	}
	if v := os.Getenv("MINIRAG_MANIFEST"); v != "" {
		c.Paths.ManifestPath = v
	}

	if v := os.Getenv("MINIRAG_DENSE_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.DenseWeight = w
		}
	}
	if v := os.Getenv("MINIRAG_LEXICAL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("MINIRAG_LEXICAL_BACKEND"); v != "" {
		c.Search.LexicalBackend = v
	}
	if v := os.Getenv("MINIRAG_ABSTAIN_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t >= 0 && t <= 1 {
			c.Answer.AbstainThreshold = t
		}
	}

	if v := os.Getenv("MINIRAG_EMBEDDER"); v != "" {
		c.Embed.Provider = v
	}
	if v := os.Getenv("MINIRAG_EMBED_CACHE"); v != "" {
		c.Embed.Cache = strings.ToLower(v) == "true" || v == "1"
	}

	if v := os.Getenv("MINIRAG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MINIRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MINIRAG_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c.Search.DenseWeight < 0 || c.Search.DenseWeight > 1 {
		return ragerr.ConfigError(
			fmt.Sprintf("dense_weight must be between 0 and 1, got %f", c.Search.DenseWeight), nil)
	}
	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return ragerr.ConfigError(
			fmt.Sprintf("lexical_weight must be between 0 and 1, got %f", c.Search.LexicalWeight), nil)
	}
	sum := c.Search.DenseWeight + c.Search.LexicalWeight
	if math.Abs(sum-1.0) > 0.01 {
		return ragerr.ConfigError(
			fmt.Sprintf("dense_weight + lexical_weight must equal 1.0, got %.2f", sum), nil)
	}

	if c.Search.DefaultTopK < 1 || c.Search.DefaultTopK > c.Search.MaxTopK {
		return ragerr.ConfigError(
			fmt.Sprintf("default_top_k must be between 1 and max_top_k (%d), got %d",
				c.Search.MaxTopK, c.Search.DefaultTopK), nil)
	}
	if c.Search.PerSourceTopK < 1 {
		return ragerr.ConfigError(
			fmt.Sprintf("per_source_top_k must be positive, got %d", c.Search.PerSourceTopK), nil)
	}

	if c.Answer.AbstainThreshold < 0 || c.Answer.AbstainThreshold > 1 {
		return ragerr.ConfigError(
			fmt.Sprintf("abstain_threshold must be between 0 and 1, got %f", c.Answer.AbstainThreshold), nil)
	}

	if c.Chunker.MinChars > c.Chunker.TargetChars {
		return ragerr.ConfigError(
			fmt.Sprintf("chunker min_chars (%d) cannot exceed target_chars (%d)",
				c.Chunker.MinChars, c.Chunker.TargetChars), nil)
	}

	switch strings.ToLower(c.Search.LexicalBackend) {
	case "sqlite", "bleve":
	default:
		return ragerr.ConfigError(
			fmt.Sprintf("lexical_backend must be 'sqlite' or 'bleve', got %s", c.Search.LexicalBackend), nil)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ragerr.ConfigError(
			fmt.Sprintf("logging level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// WriteYAML writes the configuration to path, backing up any existing
// file first.
func (c *Config) WriteYAML(path string) error {
	if fileExists(path) {
		if _, err := Backup(path); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ragerr.IOError("failed to write config file", err).WithDetail("path", path)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
