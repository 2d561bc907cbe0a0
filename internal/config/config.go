// Package config provides configuration loading and structs for the Tanya server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" json:"debug"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Ingest    IngestConfig    `yaml:"ingest" json:"ingest"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	LLM       LLMConfig       `yaml:"llm" json:"llm"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" json:"max_upload_bytes"`
}

// StorageConfig holds the chunk store location. ":memory:" keeps nothing on disk.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// InMemory reports whether the chunk store lives only in process memory.
func (s StorageConfig) InMemory() bool {
	return s.DatabasePath == MemoryDatabase
}

// IngestConfig holds extraction and chunking settings.
type IngestConfig struct {
	ChunkSize    int  `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap *int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// DocumentSeparator is inserted between documents. Empty joins them directly.
	DocumentSeparator string `yaml:"document_separator" json:"document_separator"`
	SkipInvalid       bool   `yaml:"skip_invalid" json:"skip_invalid"`
}

// Overlap returns the configured overlap, falling back to the default when unset.
func (c IngestConfig) Overlap() int {
	if c.ChunkOverlap != nil {
		return *c.ChunkOverlap
	}
	return DefaultChunkOverlap
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "hash", "openai" or "onnx".
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env" json:"api_key_env"`
	Dimensions  int           `yaml:"dimensions" json:"dimensions"`
	BatchSize   int           `yaml:"batch_size" json:"batch_size"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	CacheSize   int           `yaml:"cache_size" json:"cache_size"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	ModelPath   string        `yaml:"model_path" json:"model_path"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
}

// RetrievalConfig holds nearest-neighbour search settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" json:"top_k"`
	// Metric is "cosine" or "l2".
	Metric         string  `yaml:"metric" json:"metric"`
	Hybrid         bool    `yaml:"hybrid" json:"hybrid"`
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
}

// LLMConfig selects the language model used for answers.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible chat completions endpoint).
	Provider    string        `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKeyEnv   string        `yaml:"api_key_env" json:"api_key_env"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// WatchConfig holds settings for re-processing inputs when they change on disk.
type WatchConfig struct {
	Extensions []string      `yaml:"extensions" json:"extensions"`
	Debounce   time.Duration `yaml:"debounce" json:"debounce"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
// Returns an error if the file cannot be read or parsed, or a ConfigurationError when invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	configDir := filepath.Dir(path)
	if !cfg.Storage.InMemory() {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	return cfg, nil
}

// Parse decodes YAML config bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated config with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
