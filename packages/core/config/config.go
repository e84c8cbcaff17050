package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the testrig configuration
type Config struct {
	// Database is the path or connection string of the results database.
	Database string `yaml:"database,omitempty"`

	// Owner and Environment are recorded on every run this process starts.
	Owner       string `yaml:"owner,omitempty"`
	Environment string `yaml:"environment,omitempty"`
	Branch      string `yaml:"branch,omitempty"`

	Retry *RetryConfig `yaml:"retry,omitempty"`
	Log   *LogConfig   `yaml:"log,omitempty"`
}

// RetryConfig sets the default budget for retry loops.
type RetryConfig struct {
	TimeoutMS  int `yaml:"timeoutMs,omitempty"`
	IntervalMS int `yaml:"intervalMs,omitempty"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level   string `yaml:"level,omitempty"`
	NoColor *bool  `yaml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	if c.Log == nil {
		return false
	}
	return getBool(c.Log.NoColor, false)
}

// GetLogLevel returns the configured log level name, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.Log == nil || c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".testrig.yaml",
	".testrig.yml",
	"testrig.yaml",
	"testrig.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Database != "" {
		result.Database = other.Database
	}
	if other.Owner != "" {
		result.Owner = other.Owner
	}
	if other.Environment != "" {
		result.Environment = other.Environment
	}
	if other.Branch != "" {
		result.Branch = other.Branch
	}

	if other.Retry != nil {
		merged := RetryConfig{}
		if result.Retry != nil {
			merged = *result.Retry
		}
		if other.Retry.TimeoutMS > 0 {
			merged.TimeoutMS = other.Retry.TimeoutMS
		}
		if other.Retry.IntervalMS > 0 {
			merged.IntervalMS = other.Retry.IntervalMS
		}
		result.Retry = &merged
	}

	if other.Log != nil {
		merged := LogConfig{}
		if result.Log != nil {
			merged = *result.Log
		}
		if other.Log.Level != "" {
			merged.Level = other.Log.Level
		}
		if other.Log.NoColor != nil {
			merged.NoColor = other.Log.NoColor
		}
		result.Log = &merged
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
