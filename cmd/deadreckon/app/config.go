package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/YusufHosny/r-d/internal/config"
	"github.com/YusufHosny/r-d/internal/evaluation"
	"github.com/YusufHosny/r-d/internal/inertial"
	"github.com/YusufHosny/r-d/internal/trajectory"
)

// Config represents the dead reckoning evaluation configuration
type Config struct {
	Settings config.Settings      `yaml:"settings"`
	Storage  config.StorageConfig `yaml:"storage"`
	Dataset  DatasetConfig        `yaml:"dataset"`
	Inertial InertialConfig       `yaml:"inertial"`
}

// DatasetConfig selects the sessions to evaluate. All sessions of the dataset
// are evaluated when Sessions is empty.
type DatasetConfig struct {
	Name       string   `yaml:"name"`
	Sessions   []string `yaml:"sessions"`
	OutOfRange string   `yaml:"outOfRange"`
}

// InertialConfig configures integration and the trajectory error windows
type InertialConfig struct {
	Gravity     float64 `yaml:"gravity"`
	StrictTime  bool    `yaml:"strictTime"`
	WindowSize  int     `yaml:"windowSize"`
	Concurrency int     `yaml:"concurrency"`
}

func (c *DatasetConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("app.DatasetConfig: name is required")
	}
	if _, err := trajectory.ParsePolicy(c.OutOfRange); err != nil {
		return fmt.Errorf("app.DatasetConfig: %w", err)
	}
	return nil
}

func (c *InertialConfig) Validate() error {
	if c.Gravity < 0 {
		return fmt.Errorf("app.InertialConfig: gravity must not be negative: %v", c.Gravity)
	}
	if c.WindowSize < 2 {
		return fmt.Errorf("app.InertialConfig: window size must be at least 2: %d", c.WindowSize)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("app.InertialConfig: concurrency must not be negative: %d", c.Concurrency)
	}
	return nil
}

func (c *Config) Validate() error {
	return errors.Join(c.Settings.Validate(), c.Storage.Validate(), c.Dataset.Validate(), c.Inertial.Validate())
}

// DefaultConfig returns a configuration with every optional value set.
func DefaultConfig() *Config {
	return &Config{
		Inertial: InertialConfig{
			Gravity:    inertial.StandardGravity,
			WindowSize: evaluation.DefaultWindowSize,
		},
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
