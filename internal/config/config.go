package config

import (
	"fmt"
	"os"

	"copyloop/internal/params"

	"gopkg.in/yaml.v3"
)

// #region config-error

// ConfigError reports a missing or invalid configuration value. Fatal at
// startup; values are never silently defaulted.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// #endregion config-error

// #region config

// ServiceConfig holds one external collaborator endpoint.
type ServiceConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// Config is the full runtime configuration loaded from YAML.
type Config struct {
	Generator  ServiceConfig `yaml:"generator"`
	Classifier ServiceConfig `yaml:"classifier"`
	Evaluator  ServiceConfig `yaml:"evaluator"` // optional secondary signal

	DBPath    string `yaml:"db_path"`
	OutputDir string `yaml:"output_dir"`

	Controls params.Controls `yaml:"controls"`

	// ExplorationRate is the probability of one bounded random parameter
	// perturbation per attempt. Zero disables exploration.
	ExplorationRate float64 `yaml:"exploration_rate"`
}

// #endregion config

// #region load

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every required field. The evaluator endpoint is the only
// optional collaborator.
func (c Config) Validate() error {
	if c.Generator.URL == "" {
		return &ConfigError{Field: "generator.url", Reason: "required"}
	}
	if c.Classifier.URL == "" {
		return &ConfigError{Field: "classifier.url", Reason: "required"}
	}
	if c.DBPath == "" {
		return &ConfigError{Field: "db_path", Reason: "required"}
	}
	if c.OutputDir == "" {
		return &ConfigError{Field: "output_dir", Reason: "required"}
	}
	if !c.Controls.Valid() {
		return &ConfigError{Field: "controls", Reason: "every slider must be within [0, 10]"}
	}
	if c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		return &ConfigError{Field: "exploration_rate", Reason: "must be within [0, 1]"}
	}
	return nil
}

// #endregion load

// #region env

// EnvOr returns the value of key or fallback when unset.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env
