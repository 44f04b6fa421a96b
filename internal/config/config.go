// Package config provides configuration loading for eirened.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the daemon.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	LLM         LLMConfig         `koanf:"llm"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Registry    RegistryConfig    `koanf:"registry"`
	Memory      MemoryConfig      `koanf:"memory"`
	Knowledge   KnowledgeConfig   `koanf:"knowledge"`
	Stages      StagesConfig      `koanf:"stages"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LLMConfig holds language model client settings.
// The client speaks the OpenAI chat completions protocol, so any
// OpenAI-compatible endpoint works.
type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	// SummaryModel is a cheaper model used for short-term memory
	// summarization and routing classification. Falls back to Model.
	SummaryModel string `koanf:"summary_model"`
}

// EmbeddingsConfig holds embedding provider settings.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig configures the external Qdrant store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
	UseTLS     bool   `koanf:"use_tls"`
	APIKey     Secret `koanf:"api_key"`
}

// RegistryConfig configures the persisted per-user stage registry.
type RegistryConfig struct {
	Path string `koanf:"path"`
}

// MemoryConfig tunes the conversation memory tiers.
type MemoryConfig struct {
	// BufferLimit is the short-term message count that triggers
	// background summarization.
	BufferLimit int `koanf:"buffer_limit"`
	// ReservedMessages are always kept verbatim when pruning.
	ReservedMessages int `koanf:"reserved_messages"`
	// SearchLimit is the default long-term retrieval depth per turn.
	SearchLimit int `koanf:"search_limit"`
}

// KnowledgeConfig points at the specialist reference corpora. Empty
// paths disable retrieval for that specialist; it still consults, just
// without reference material.
type KnowledgeConfig struct {
	MedicalPath string `koanf:"medical_path"`
	LegacyPath  string `koanf:"legacy_path"`
}

// StagesConfig tunes the counseling stage progression.
type StagesConfig struct {
	// ReadinessLow and ReadinessHigh bound the half-open aggregate band
	// [low, high) that admits the acceptance-to-reminiscence promotion.
	ReadinessLow  int `koanf:"readiness_low"`
	ReadinessHigh int `koanf:"readiness_high"`
	// ReadinessClues is how many long-term records feed the readiness
	// battery on session end.
	ReadinessClues int `koanf:"readiness_clues"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a config with production-ready defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Embeddings: EmbeddingsConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		VectorStore: VectorStoreConfig{
			Provider: "chromem",
			Chromem: ChromemConfig{
				Path: "~/.local/share/eirene/vectorstore",
			},
			Qdrant: QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "eirene_ltm",
				VectorSize: 1536,
			},
		},
		Registry: RegistryConfig{
			Path: "~/.local/share/eirene/stages.db",
		},
		Memory: MemoryConfig{
			BufferLimit:      20,
			ReservedMessages: 4,
			SearchLimit:      3,
		},
		Stages: StagesConfig{
			ReadinessLow:   7,
			ReadinessHigh:  18,
			ReadinessClues: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model required")
	}
	switch c.VectorStore.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("unsupported vectorstore provider: %s (supported: chromem, qdrant)", c.VectorStore.Provider)
	}
	if c.Memory.BufferLimit <= 0 {
		return fmt.Errorf("memory buffer_limit must be positive, got %d", c.Memory.BufferLimit)
	}
	if c.Memory.ReservedMessages < 0 {
		return fmt.Errorf("memory reserved_messages cannot be negative, got %d", c.Memory.ReservedMessages)
	}
	if c.Memory.ReservedMessages >= c.Memory.BufferLimit {
		return fmt.Errorf("memory reserved_messages (%d) must be below buffer_limit (%d)",
			c.Memory.ReservedMessages, c.Memory.BufferLimit)
	}
	if c.Stages.ReadinessLow >= c.Stages.ReadinessHigh {
		return fmt.Errorf("stages readiness_low (%d) must be below readiness_high (%d)",
			c.Stages.ReadinessLow, c.Stages.ReadinessHigh)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	return nil
}
