package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/meshstate/logging"
)

// Config is the complete workspace configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
	Events    EventsConfig    `yaml:"events"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Model     ModelConfig     `yaml:"model"`
	Units     []UnitConfig    `yaml:"units"`
}

// WorkspaceConfig holds the shared state settings.
type WorkspaceConfig struct {
	// ID becomes the conversation log id (random when empty).
	ID    string `yaml:"id"`
	Actor string `yaml:"actor"`
	// MaxConcurrentCalls bounds concurrent unit calls; 0 means unlimited.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`
	// Seed is deep-copied into the shared context at startup.
	Seed map[string]any `yaml:"seed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Backend string `yaml:"backend"`
}

// EventsConfig controls the observability event pipeline.
type EventsConfig struct {
	Async      bool `yaml:"async"`
	BufferSize int  `yaml:"buffer_size"`
	Log        bool `yaml:"log"`
}

// MetricsConfig controls Prometheus counters.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// ModelConfig selects the model shared by configured units.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
	APIKey      string  `yaml:"api_key"`

	// Timeout bounds a single unit call; 0 disables it.
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// UnitConfig declares one collaboration unit.
type UnitConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Prompt       string `yaml:"prompt"`
	Scope        string `yaml:"scope"`
	ContextScope string `yaml:"context_scope"`
}

// Supported model providers.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Actor: "workspace"},
		Logging:   LoggingConfig{Level: "info", Format: "json", Backend: "slog"},
		Events:    EventsConfig{Async: true, BufferSize: 256, Log: true},
		Metrics:   MetricsConfig{Enabled: false, Namespace: "meshstate"},
		Model:     ModelConfig{Provider: ProviderMock, Name: "mock", Temperature: 0.7, MaxTokens: 4096},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default, then parses durations and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	if cfg.Model.TimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(cfg.Model.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing model.timeout %q: %w", cfg.Model.TimeoutRaw, err)
	}
	cfg.Model.Timeout = d
	return nil
}

// Validate checks that all configuration values are usable.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	switch c.Logging.Backend {
	case "slog", "zap":
	default:
		return fmt.Errorf("logging.backend must be slog or zap, got %q", c.Logging.Backend)
	}

	if c.Workspace.MaxConcurrentCalls < 0 {
		return fmt.Errorf("workspace.max_concurrent_calls must not be negative")
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("events.buffer_size must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}

	switch c.Model.Provider {
	case ProviderMock, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("model.provider must be one of mock, openai, anthropic, got %q", c.Model.Provider)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout must not be negative")
	}

	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			return fmt.Errorf("units[%d].name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("units[%d]: duplicate unit name %q", i, name)
		}
		seen[name] = true
	}

	return nil
}

// LogLevel returns the parsed logging level. Validate guarantees it parses.
func (c *Config) LogLevel() logging.LogLevel {
	lvl, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.LogLevelInfo
	}
	return lvl
}
