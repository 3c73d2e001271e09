// Package config loads the quiver configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HooksConfig holds the optional JavaScript hook sources run around
// every send.
type HooksConfig struct {
	PreRequest   string `yaml:"pre_request,omitempty"`
	PostResponse string `yaml:"post_response,omitempty"`
}

// Config is the application configuration.
type Config struct {
	DataDir             string      `yaml:"data_dir"`
	TimeoutSeconds      int         `yaml:"timeout_seconds"`
	PollIntervalSeconds int         `yaml:"poll_interval_seconds"`
	FollowRedirects     bool        `yaml:"follow_redirects"`
	ArchivePath         string      `yaml:"archive_path,omitempty"`
	LogLevel            string      `yaml:"log_level"`
	Hooks               HooksConfig `yaml:"hooks,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:             filepath.Join(home, ".quiver"),
		TimeoutSeconds:      30,
		PollIntervalSeconds: 2,
		FollowRedirects:     true,
		LogLevel:            "warn",
	}
}

// Load reads the configuration file at path, filling unset fields with
// defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = 2
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quiver", "config.yaml")
}

// Timeout returns the send timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the store polling interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
