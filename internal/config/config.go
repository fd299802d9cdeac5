// Package config provides configuration loading and structs for voxkb.
// A Config is built once at startup and passed by pointer to constructors;
// nothing re-reads the file while the process runs.
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
	Debug         bool                `yaml:"debug"`
	LogLevel      string              `yaml:"log_level"`
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	LLM           LLMConfig           `yaml:"llm"`
	Voice         VoiceConfig         `yaml:"voice"`
	Watch         WatchConfig         `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadMB    int64         `yaml:"max_upload_mb"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	IndexFile    string `yaml:"index_file"`
	LedgerFile   string `yaml:"ledger_file"`
	UploadsDir   string `yaml:"uploads_dir"`
	DatabasePath string `yaml:"database_path"`
}

// IndexPath is the vector index file inside DataDir.
func (s StorageConfig) IndexPath() string { return filepath.Join(s.DataDir, s.IndexFile) }

// LedgerPath is the metadata ledger file inside DataDir.
func (s StorageConfig) LedgerPath() string { return filepath.Join(s.DataDir, s.LedgerFile) }

// LockPath is the cross-process lock file inside DataDir.
func (s StorageConfig) LockPath() string { return filepath.Join(s.DataDir, ".voxkb.lock") }

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // hash, onnx, http
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`

	// onnx
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
	OutputName string `yaml:"output_name"`

	// http
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	MaxRetries  int           `yaml:"max_retries"`
}

// APIKey reads the key from the configured environment variable.
func (e EmbeddingConfig) APIKey() string { return lookupEnv(e.APIKeyEnv) }

// KnowledgeBaseConfig holds chunking and retrieval parameters.
type KnowledgeBaseConfig struct {
	IndexType       string   `yaml:"index_type"` // memory, faiss
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	ScoreThreshold  float64  `yaml:"score_threshold"`
	MMRLambda       float64  `yaml:"mmr_lambda"`
	FetchMultiplier int      `yaml:"fetch_multiplier"`
	DefaultTopK     int      `yaml:"default_top_k"`
	AgentTopK       int      `yaml:"agent_top_k"`
	Extensions      []string `yaml:"extensions"`
}

// LLMConfig configures answer generation for agent queries.
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // gemini, none
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	APIKeyEnv    string        `yaml:"api_key_env"`
	Timeout      time.Duration `yaml:"timeout"`
	SystemPrompt string        `yaml:"system_prompt"`
	HistoryTurns int           `yaml:"history_turns"`
}

// APIKey reads the key from the configured environment variable.
func (l LLMConfig) APIKey() string { return lookupEnv(l.APIKeyEnv) }

// VoiceConfig selects speech adapters.
type VoiceConfig struct {
	STT SpeechConfig `yaml:"stt"`
	TTS SpeechConfig `yaml:"tts"`
}

// SpeechConfig configures one speech adapter.
type SpeechConfig struct {
	Provider  string        `yaml:"provider"` // stt: deepgram, none; tts: google, none
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Language  string        `yaml:"language"`
	Voice     string        `yaml:"voice"`
	Timeout   time.Duration `yaml:"timeout"`
}

// APIKey reads the key from the configured environment variable.
func (s SpeechConfig) APIKey() string { return lookupEnv(s.APIKeyEnv) }

// WatchConfig configures the optional inbox directory.
type WatchConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Directory string        `yaml:"directory"`
	Debounce  time.Duration `yaml:"debounce"`
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Load reads and parses the config file at path, expands paths, and
// validates the result. The file is decoded onto the defaults, so keys it
// sets (zero values included) win and absent keys keep their default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	ApplyDefaults(&cfg)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.expandPaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration with relative paths resolved
// against the working directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.expandPaths(".")
	return &cfg
}

// Save writes the config to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Storage.DataDir = expandPath(c.Storage.DataDir, configDir)
	c.Storage.UploadsDir = expandPath(c.Storage.UploadsDir, configDir)
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	if c.Embedding.ModelPath != "" {
		c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	}
	if c.Watch.Directory != "" {
		c.Watch.Directory = expandPath(c.Watch.Directory, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" or "../"
// are relative to configDir; "~/" and other relative paths are relative to
// the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if path == "." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		abs, err := filepath.Abs(filepath.Join(configDir, path))
		if err != nil {
			return filepath.Join(configDir, path)
		}
		return abs
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
