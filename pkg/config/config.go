// Package config loads the AgroVoice configuration from YAML with
// environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Session store configuration
	Session SessionConfig `yaml:"session"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Knowledge base configuration
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Media collaborator endpoints
	Media MediaConfig `yaml:"media"`

	// Lifecycle (cleanup) configuration
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// ServerConfig holds gRPC and metrics listener settings.
type ServerConfig struct {
	// ListenAddr is the gRPC listen address.
	ListenAddr string `yaml:"listen_addr"`
	// MetricsAddr is the Prometheus metrics listen address ("" disables).
	MetricsAddr string `yaml:"metrics_addr"`
	// RequestsPerSecond limits completion-service calls across all requests.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Burst is the rate limiter burst size.
	Burst int `yaml:"burst"`
}

// SessionConfig holds session storage settings.
type SessionConfig struct {
	// Store specifies the storage backend type.
	// Options: "file", "redis"
	Store string `yaml:"store"`
	// BaseDir is the base directory for file-based storage.
	BaseDir string `yaml:"base_dir"`
	// RedisAddr is the Redis server address (host:port).
	RedisAddr string `yaml:"redis_addr"`
	// RedisPassword is the Redis password (optional).
	RedisPassword string `yaml:"redis_password"`
	// RedisDB is the Redis database number.
	RedisDB int `yaml:"redis_db"`
	// ExportDir is where session exports are written.
	ExportDir string `yaml:"export_dir"`
}

// LLMConfig holds completion and embedding provider settings.
type LLMConfig struct {
	// Provider selects the completion provider: "ollama" or "openai".
	Provider string `yaml:"provider"`
	// Model is the completion model name.
	Model string `yaml:"model"`
	// EmbeddingModel is the embedding model name.
	EmbeddingModel string `yaml:"embedding_model"`
	// OllamaURL is the Ollama server base URL.
	OllamaURL string `yaml:"ollama_url"`
	// OpenAIKey is the OpenAI API key (env OPENAI_API_KEY overrides).
	OpenAIKey string `yaml:"openai_key"`
	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature"`
	// MaxTokens caps generated tokens per completion.
	MaxTokens int `yaml:"max_tokens"`
}

// KnowledgeConfig holds the similarity index corpus settings.
type KnowledgeConfig struct {
	// CorpusPath points to a JSON file of knowledge documents.
	CorpusPath string `yaml:"corpus_path"`
	// EmbeddingDimensions is the fixed vector dimension of the corpus.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
	// TopK is the number of documents retrieved per query.
	TopK int `yaml:"top_k"`
}

// MediaConfig holds transcription and image description endpoints.
type MediaConfig struct {
	// WhisperURL is the transcription server base URL.
	WhisperURL string `yaml:"whisper_url"`
	// VisionModel is the multimodal model used for image description.
	VisionModel string `yaml:"vision_model"`
}

// LifecycleConfig holds session cleanup settings.
type LifecycleConfig struct {
	// MaxAgeDays evicts sessions idle longer than this many days.
	MaxAgeDays int `yaml:"max_age_days"`
	// MaxSessions caps the total session count; oldest are evicted first.
	MaxSessions int `yaml:"max_sessions"`
	// SweepIntervalHours is how often the cleanup sweep runs.
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
}

// Load reads configuration from a YAML file and applies defaults.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, nil
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()

	// Load API keys from environment if not in config
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if addr := os.Getenv("AGROVOICE_REDIS_ADDR"); addr != "" {
		cfg.Session.RedisAddr = addr
	}

	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":50051"
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = ":9090"
	}
	if c.Server.RequestsPerSecond == 0 {
		c.Server.RequestsPerSecond = 10
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 20
	}
	if c.Session.Store == "" {
		c.Session.Store = "file"
	}
	if c.Session.ExportDir == "" {
		c.Session.ExportDir = "downloads"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama3"
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = "nomic-embed-text"
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = "http://localhost:11434"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Knowledge.EmbeddingDimensions == 0 {
		c.Knowledge.EmbeddingDimensions = 768
	}
	if c.Knowledge.TopK == 0 {
		c.Knowledge.TopK = 3
	}
	if c.Media.WhisperURL == "" {
		c.Media.WhisperURL = "http://localhost:8090"
	}
	if c.Media.VisionModel == "" {
		c.Media.VisionModel = "llava"
	}
	if c.Lifecycle.MaxAgeDays == 0 {
		c.Lifecycle.MaxAgeDays = 30
	}
	if c.Lifecycle.MaxSessions == 0 {
		c.Lifecycle.MaxSessions = 100
	}
	if c.Lifecycle.SweepIntervalHours == 0 {
		c.Lifecycle.SweepIntervalHours = 24
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case "file":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", c.Session.Store)
	}

	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("llm.openai_key (or OPENAI_API_KEY) is required for the openai provider")
		}
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}

	return nil
}
