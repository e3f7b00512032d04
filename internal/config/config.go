// Package config holds the explicit configuration passed into the pipeline.
// The environment is read only here, at the boundary that constructs the
// config; nothing downstream consults env vars or mutable globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for widgetforge.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the generation capability.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// PipelineConfig bounds the retry behavior of every phase.
type PipelineConfig struct {
	// MaxRetries is the number of corrective re-attempts after the first
	// call; 2 retries means 3 total attempts per phase.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the fixed pause between attempts, e.g. "500ms".
	RetryDelay string `yaml:"retry_delay"`
}

// DatasetConfig locates the canned-dataset store.
type DatasetConfig struct {
	// Path of the sqlite database file; empty selects an in-memory store.
	Path string `yaml:"path"`

	// SeedDir holds YAML seed files loaded at startup and watched for
	// changes.
	SeedDir string `yaml:"seed_dir"`
}

// FetchConfig bounds the live-fetch data source.
type FetchConfig struct {
	MaxPages int    `yaml:"max_pages"`
	Timeout  string `yaml:"timeout"`
}

// LoggingConfig mirrors the logging package's file-based configuration.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-3-flash-preview",
			Timeout:  "120s",
		},
		Pipeline: PipelineConfig{
			MaxRetries: 2,
			RetryDelay: "500ms",
		},
		Fetch: FetchConfig{
			MaxPages: 3,
			Timeout:  "15s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config location under the workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".widgetforge", "config.yaml")
}

// Load reads the config file at path, falling back to defaults when the file
// is absent, then applies environment overrides. This is the single place the
// environment is consulted.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides fills unset credentials from the environment. An explicit
// provider keeps its own key slot; otherwise the first key found wins.
func applyEnvOverrides(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				cfg.LLM.Provider = "gemini"
				cfg.LLM.APIKey = key
			} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
				cfg.LLM.Provider = "openai"
				cfg.LLM.APIKey = key
			}
		}
	}
	if model := os.Getenv("WIDGETFORGE_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
}

// RetryDelayDuration parses the configured inter-attempt delay.
func (p PipelineConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(p.RetryDelay)
	if err != nil || d < 0 {
		return 500 * time.Millisecond
	}
	return d
}

// TimeoutDuration parses the configured LLM call timeout.
func (l LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// TimeoutDuration parses the configured fetch timeout.
func (f FetchConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
