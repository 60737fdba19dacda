package repolens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/repolens/repolens/chunker"
	"github.com/repolens/repolens/source"
)

// Config holds all configuration for the RepoLens engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.repolens/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "repolens". The file will be <DBName>.db inside the
	// storage directory (~/.repolens/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.repolens/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"` // optional: clear Provider to disable embeddings

	// Source collection
	Include     []string `json:"include" yaml:"include"`             // doublestar patterns; defaults when empty
	Exclude     []string `json:"exclude" yaml:"exclude"`             // doublestar patterns; defaults when empty
	MaxFileSize int64    `json:"max_file_size" yaml:"max_file_size"` // per-file byte cutoff

	// Context and chunking budgets
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"` // cap on assembled LLM context
	MaxChunkChars   int `json:"max_chunk_chars" yaml:"max_chunk_chars"`     // cap on stored report chunks

	// Report output
	OutputDir string `json:"output_dir" yaml:"output_dir"` // where Analyze writes report files

	// Chat response caching
	CacheSize int `json:"cache_size" yaml:"cache_size"` // LRU entries; 0 disables the cache

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.repolens/repolens.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "repolens",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		MaxFileSize:     source.DefaultMaxFileSize,
		MaxContextChars: source.DefaultContextChars,
		MaxChunkChars:   chunker.DefaultMaxChars,
		OutputDir:       "output",
		CacheSize:       128,
		EmbeddingDim:    768,
	}
}

// LoadConfig reads a JSON or YAML config file on top of the defaults,
// so a partial file only overrides the fields it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}
	return cfg, nil
}

// ConfigFromEnv returns the defaults with REPOLENS_* environment
// overrides applied. Unset variables leave the default in place.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	return cfg.ApplyEnv()
}

// ApplyEnv returns a copy with REPOLENS_* environment overrides
// applied on top of the receiver. Unset variables change nothing.
func (c Config) ApplyEnv() Config {
	envString("REPOLENS_DB_PATH", &c.DBPath)
	envString("REPOLENS_DB_NAME", &c.DBName)
	envString("REPOLENS_STORAGE_DIR", &c.StorageDir)
	envString("REPOLENS_OUTPUT_DIR", &c.OutputDir)

	envString("REPOLENS_CHAT_PROVIDER", &c.Chat.Provider)
	envString("REPOLENS_CHAT_MODEL", &c.Chat.Model)
	envString("REPOLENS_CHAT_BASE_URL", &c.Chat.BaseURL)
	envString("REPOLENS_CHAT_API_KEY", &c.Chat.APIKey)

	envString("REPOLENS_EMBED_PROVIDER", &c.Embedding.Provider)
	envString("REPOLENS_EMBED_MODEL", &c.Embedding.Model)
	envString("REPOLENS_EMBED_BASE_URL", &c.Embedding.BaseURL)
	envString("REPOLENS_EMBED_API_KEY", &c.Embedding.APIKey)

	envInt("REPOLENS_MAX_CONTEXT_CHARS", &c.MaxContextChars)
	envInt("REPOLENS_MAX_CHUNK_CHARS", &c.MaxChunkChars)
	envInt("REPOLENS_CACHE_SIZE", &c.CacheSize)
	envInt("REPOLENS_EMBEDDING_DIM", &c.EmbeddingDim)

	if v := os.Getenv("REPOLENS_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxFileSize = n
		}
	}
	return c
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "repolens"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".repolens")
		return filepath.Join(dir, name+".db")
	}
}
