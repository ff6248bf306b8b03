// Package config provides configuration loading for mathd.
//
// Configuration is loaded from an optional YAML file, then overridden by
// environment variables. Defaults are applied in code.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete mathd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Generation GenerationConfig `koanf:"generation"`
	WebSearch  WebSearchConfig  `koanf:"websearch"`
	Memory     MemoryConfig     `koanf:"memory"`
	Feedback   FeedbackConfig   `koanf:"feedback"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// GenerationConfig holds generation backend configuration.
type GenerationConfig struct {
	BaseURL       string        `koanf:"base_url"`
	Model         string        `koanf:"model"`
	Timeout       time.Duration `koanf:"timeout"`
	HealthTimeout time.Duration `koanf:"health_timeout"`
	MaxRetries    int           `koanf:"max_retries"`
}

// WebSearchConfig holds web-search tool configuration.
type WebSearchConfig struct {
	BaseURL          string        `koanf:"base_url"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	InvokeTimeout    time.Duration `koanf:"invoke_timeout"`
	ResultLimit      int           `koanf:"result_limit"`
	Engines          []string      `koanf:"engines"`
}

// MemoryConfig holds semantic store configuration.
type MemoryConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path string `koanf:"path"`

	// Collection is the vector collection name.
	Collection string `koanf:"collection"`

	// EmbedModel is the embedding model served by the generation backend.
	EmbedModel string `koanf:"embed_model"`

	// StrongThreshold is the similarity above which a match is trusted as
	// generation context.
	StrongThreshold float64 `koanf:"strong_threshold"`

	// ExactThreshold is the similarity above which a stored solution is
	// returned verbatim.
	ExactThreshold float64 `koanf:"exact_threshold"`
}

// FeedbackConfig holds feedback archive configuration.
type FeedbackConfig struct {
	DataDir     string `koanf:"data_dir"`
	MinRating   int    `koanf:"min_rating"`
	MaxExamples int    `koanf:"max_examples"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Generation: GenerationConfig{
			BaseURL:       "http://localhost:11434",
			Model:         "llama3:latest",
			Timeout:       120 * time.Second,
			HealthTimeout: 10 * time.Second,
			MaxRetries:    2,
		},
		WebSearch: WebSearchConfig{
			BaseURL:          "http://localhost:3000",
			HandshakeTimeout: 10 * time.Second,
			InvokeTimeout:    30 * time.Second,
			ResultLimit:      5,
			Engines:          []string{"exa"},
		},
		Memory: MemoryConfig{
			Path:            "~/.local/share/mathd/memory",
			Collection:      "math_questions",
			EmbedModel:      "nomic-embed-text",
			StrongThreshold: 0.90,
			ExactThreshold:  0.95,
		},
		Feedback: FeedbackConfig{
			DataDir:     "~/.local/share/mathd/feedback",
			MinRating:   4,
			MaxExamples: 2,
		},
	}
}

// Validate checks ranges and relationships between settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format: %q", c.Logging.Format)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("generation max_retries cannot be negative: %d", c.Generation.MaxRetries)
	}
	if c.Memory.StrongThreshold <= 0 || c.Memory.StrongThreshold >= 1 {
		return fmt.Errorf("memory strong_threshold must be in (0,1): %v", c.Memory.StrongThreshold)
	}
	if c.Memory.ExactThreshold <= c.Memory.StrongThreshold || c.Memory.ExactThreshold >= 1 {
		return fmt.Errorf("memory exact_threshold must be in (strong_threshold,1): %v", c.Memory.ExactThreshold)
	}
	if c.Feedback.MinRating < 1 || c.Feedback.MinRating > 5 {
		return fmt.Errorf("feedback min_rating must be in [1,5]: %d", c.Feedback.MinRating)
	}
	return nil
}
