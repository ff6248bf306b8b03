package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "llama3:latest", cfg.Generation.Model)
	assert.Equal(t, 0.90, cfg.Memory.StrongThreshold)
	assert.Equal(t, 0.95, cfg.Memory.ExactThreshold)
	assert.Equal(t, []string{"exa"}, cfg.WebSearch.Engines)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
generation:
  model: mistral:latest
  timeout: 60s
memory:
  strong_threshold: 0.85
  exact_threshold: 0.93
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mistral:latest", cfg.Generation.Model)
	assert.Equal(t, 60*time.Second, cfg.Generation.Timeout)
	assert.Equal(t, 0.85, cfg.Memory.StrongThreshold)
	assert.Equal(t, 0.93, cfg.Memory.ExactThreshold)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 5, cfg.WebSearch.ResultLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("MATHD_SERVER_PORT", "9999")
	t.Setenv("MATHD_GENERATION_BASE_URL", "http://ollama:11434")
	t.Setenv("MATHD_MEMORY_EXACT_THRESHOLD", "0.97")
	t.Setenv("MATHD_SERVER_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://ollama:11434", cfg.Generation.BaseURL)
	assert.Equal(t, 0.97, cfg.Memory.ExactThreshold)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	t.Setenv("MATHD_SERVER_PORT", "-1")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port out of range")
}

func TestEnvKeyTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MATHD_SERVER_PORT", "server.port"},
		{"MATHD_GENERATION_BASE_URL", "generation.base_url"},
		{"MATHD_MEMORY_EXACT_THRESHOLD", "memory.exact_threshold"},
		{"MATHD_WEBSEARCH_RESULT_LIMIT", "websearch.result_limit"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, envKeyTransform(tt.in), tt.in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "port out of range",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "unknown logging format",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Generation.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name:    "strong threshold out of range",
			mutate:  func(c *Config) { c.Memory.StrongThreshold = 1.2 },
			wantErr: "strong_threshold",
		},
		{
			name: "exact threshold below strong",
			mutate: func(c *Config) {
				c.Memory.StrongThreshold = 0.9
				c.Memory.ExactThreshold = 0.8
			},
			wantErr: "exact_threshold",
		},
		{
			name:    "min rating out of range",
			mutate:  func(c *Config) { c.Feedback.MinRating = 6 },
			wantErr: "min_rating",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
