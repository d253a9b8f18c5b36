// Package config loads the service configuration from an optional YAML
// file, with flags layered on top by the CLI.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// LogLevel is one of zerolog's level strings.
	LogLevel string `yaml:"log_level"`

	Database Database `yaml:"database"`
	Capture  Capture  `yaml:"capture"`
}

// Database selects and locates the persistence backend.
type Database struct {
	// Path to the SQLite file. Empty means the platform default under
	// the user config directory.
	Path string `yaml:"path"`

	// InMemory switches persistence to the in-memory store.
	InMemory bool `yaml:"in_memory"`
}

// Capture holds the metadata recorded for capture sessions.
type Capture struct {
	AudioQuality string `yaml:"audio_quality"`
	BufferSize   int    `yaml:"buffer_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Capture: Capture{
			AudioQuality: "balanced",
			BufferSize:   256,
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
