// Package config holds the settings shared by every command and the YAML
// loading they have in common.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDataDirectory = "data"
	defaultDatabase      = "sessions.sqlite"
)

// Validator is implemented by every command configuration.
type Validator interface {
	Validate() error
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level. An empty level is info.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("config.Settings: invalid log level: %s", s.LogLevel)
	}
	return level, nil
}

func (s *Settings) Validate() error {
	_, err := s.Level()
	return err
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Database      string `yaml:"database"`
}

func (c *StorageConfig) Validate() error {
	if strings.ContainsRune(c.Database, os.PathSeparator) {
		return fmt.Errorf("config.StorageConfig: database must be a file name: %s", c.Database)
	}
	return nil
}

// DBPath resolves the database file. Relative data directories are taken from
// the working directory, which must already contain them.
func (c *StorageConfig) DBPath() (string, error) {
	dir := c.DataDirectory
	if dir == "" {
		dir = defaultDataDirectory
	}
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return "", fmt.Errorf("storage directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	name := c.Database
	if name == "" {
		name = defaultDatabase
	}
	return filepath.Join(dir, name), nil
}

// Load decodes the YAML file at path into cfg and validates it. Unknown keys
// are rejected.
func Load(path string, cfg Validator) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err = dec.Decode(cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	return cfg.Validate()
}
