// Package config loads and saves the shell's persistent YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user-tunable shell settings. Loading never blocks startup:
// a missing file silently yields Default(); a malformed one yields
// Default() together with an error for the caller to report.
type Config struct {
	Aliases     map[string]string `yaml:"aliases,omitempty"`
	PromptTheme string            `yaml:"prompt_theme"`
	HistorySize int               `yaml:"history_size"`
	HistoryFile string            `yaml:"history_file,omitempty"`
	NoRC        bool              `yaml:"-"` // set from --norc, never persisted
}

func Default() *Config {
	return &Config{
		PromptTheme: "auto",
		HistorySize: 1000,
		Aliases:     make(map[string]string),
	}
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".jsh"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// Load reads ~/.jsh/config.yaml, falling back to defaults if it does not
// exist. A malformed file is reported but does not abort startup.
func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("jsh: reading config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return Default(), fmt.Errorf("jsh: parsing config: %w", err)
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 1000
	}
	if cfg.Aliases == nil {
		cfg.Aliases = make(map[string]string)
	}
	return cfg, nil
}

// Save writes cfg to ~/.jsh/config.yaml, creating the directory if needed.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path, err := Path()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
