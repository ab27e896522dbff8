// Package config loads and validates testsmith configuration from
// .testsmith/config.yaml, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all testsmith configuration.
type Config struct {
	// LLM provider settings
	Provider string `yaml:"provider"` // openai, anthropic, gemini
	Model    string `yaml:"model"`    // provider default when empty
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// Suggestion cache
	Cache CacheConfig `yaml:"cache"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal output
	Output OutputConfig `yaml:"output"`
}

// CacheConfig configures the SQLite suggestion cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// OutputConfig configures terminal rendering.
type OutputConfig struct {
	RenderMarkdown bool `yaml:"render_markdown"`
}

// Providers recognized by Validate and the client factory.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// envKeyVars maps a provider to its API key environment variable.
var envKeyVars = map[string]string{
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderGemini:    "GEMINI_API_KEY",
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderOpenAI,
		Timeout:  "120s",
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(".testsmith", "cache.db"),
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		Output: OutputConfig{
			RenderMarkdown: true,
		},
	}
}

// DefaultPath returns the config path inside the given workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".testsmith", "config.yaml")
}

// Load reads configuration from path, applies defaults for missing fields,
// then applies environment overrides. A missing file is not an error: the
// defaults (plus env) are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv layers environment variables over file values.
// TESTSMITH_* vars override file settings; provider key env vars fill in a
// missing api_key.
func (c *Config) applyEnv() {
	if v := os.Getenv("TESTSMITH_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("TESTSMITH_MODEL"); v != "" {
		c.Model = v
	}
	if c.APIKey == "" {
		if envVar, ok := envKeyVars[c.Provider]; ok {
			c.APIKey = os.Getenv(envVar)
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider: %q (valid: openai, anthropic, gemini)", c.Provider)
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
		}
	}

	return nil
}

// TimeoutDuration returns the parsed timeout, or the default when unset.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 120 * time.Second
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// KeyEnvVar returns the environment variable consulted for the configured
// provider's API key.
func (c *Config) KeyEnvVar() string {
	return envKeyVars[c.Provider]
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Redacted returns a copy with the API key masked for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = "********"
	}
	return &out
}
