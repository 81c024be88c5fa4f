package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sessiond/pkg/types"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// Model is loaded into an initial session at startup (id or path).
	Model string `json:"model" yaml:"model" toml:"model"`
	// Backend selects the engine: "mock" or "llama".
	Backend     string `json:"backend" yaml:"backend" toml:"backend"`
	LogLevel    string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat   string `json:"log_format" yaml:"log_format" toml:"log_format"`
	MaxSessions int    `json:"max_sessions" yaml:"max_sessions" toml:"max_sessions"`
	// HTTP
	MaxBodyBytes           int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	GenerateTimeoutSeconds int64      `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`
	CORS                   CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
	// Generation overrides the built-in generation defaults field by field.
	Generation types.GenerationConfig `json:"generation" yaml:"generation" toml:"generation"`
}

// CORSConfig configures the optional CORS middleware.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values that are set but unusable.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "mock", "llama":
	default:
		return fmt.Errorf("unknown backend %q (want mock or llama)", c.Backend)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	if c.MaxBodyBytes < 0 || c.GenerateTimeoutSeconds < 0 || c.MaxSessions < 0 {
		return fmt.Errorf("max_body_bytes, generate_timeout_seconds and max_sessions must not be negative")
	}
	return nil
}
