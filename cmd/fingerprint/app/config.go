package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/YusufHosny/r-d/internal/config"
	"github.com/YusufHosny/r-d/internal/dataset"
	"github.com/YusufHosny/r-d/internal/fingerprint"
	"github.com/YusufHosny/r-d/internal/knn"
	"github.com/YusufHosny/r-d/internal/trajectory"
)

// Config represents the fingerprint evaluation configuration
type Config struct {
	Settings config.Settings      `yaml:"settings"`
	Storage  config.StorageConfig `yaml:"storage"`
	Dataset  DatasetConfig        `yaml:"dataset"`
	Model    ModelConfig          `yaml:"model"`
}

// DatasetConfig describes how a stored dataset becomes train, test and unseen
// sets.
type DatasetConfig struct {
	Name              string  `yaml:"name"`
	TestFraction      float64 `yaml:"testFraction"`
	Seed              uint64  `yaml:"seed"`
	DefaultStrength   float64 `yaml:"defaultStrength"`
	OutOfRange        string  `yaml:"outOfRange"`
	Concurrency       int     `yaml:"concurrency"`
	RebuildDictionary bool    `yaml:"rebuildDictionary"`
}

// ModelConfig configures the k-nearest-neighbour regressor
type ModelConfig struct {
	Neighbours int `yaml:"neighbours"`
}

func (c *DatasetConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("app.DatasetConfig: name is required")
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("app.DatasetConfig: test fraction must be in (0, 1): %v", c.TestFraction)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("app.DatasetConfig: concurrency must not be negative: %d", c.Concurrency)
	}
	if _, err := trajectory.ParsePolicy(c.OutOfRange); err != nil {
		return fmt.Errorf("app.DatasetConfig: %w", err)
	}
	return nil
}

func (c *ModelConfig) Validate() error {
	if c.Neighbours <= 0 {
		return fmt.Errorf("app.ModelConfig: neighbours must be positive: %d", c.Neighbours)
	}
	return nil
}

func (c *Config) Validate() error {
	return errors.Join(c.Settings.Validate(), c.Storage.Validate(), c.Dataset.Validate(), c.Model.Validate())
}

// DefaultConfig returns a configuration with every optional value set.
func DefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			TestFraction:    dataset.DefaultTestFraction,
			DefaultStrength: fingerprint.DefaultStrength,
		},
		Model: ModelConfig{Neighbours: knn.DefaultK},
	}
}

// LoadConfig reads the configuration file at path over the defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := config.Load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
