package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/YusufHosny/r-d/internal/config"
)

// Config represents the ingest configuration
type Config struct {
	Settings config.Settings      `yaml:"settings"`
	Storage  config.StorageConfig `yaml:"storage"`
	Ingest   IngestConfig         `yaml:"ingest"`
}

// IngestConfig selects the recordings to import. Every subdirectory of
// Directory is one session unless Sessions names a subset.
type IngestConfig struct {
	Dataset   string   `yaml:"dataset"`
	Directory string   `yaml:"directory"`
	Sessions  []string `yaml:"sessions"`
	Device    string   `yaml:"device"`
	Overwrite bool     `yaml:"overwrite"`
}

func (c *IngestConfig) Validate() error {
	if strings.TrimSpace(c.Dataset) == "" {
		return errors.New("app.IngestConfig: dataset is required")
	}
	if c.Directory == "" {
		return errors.New("app.IngestConfig: directory is required")
	}
	seen := make(map[string]struct{}, len(c.Sessions))
	for _, name := range c.Sessions {
		if _, ok := seen[name]; ok {
			return fmt.Errorf("app.IngestConfig: duplicate session: %s", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (c *Config) Validate() error {
	return errors.Join(c.Settings.Validate(), c.Storage.Validate(), c.Ingest.Validate())
}

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
