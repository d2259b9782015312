// Package config provides configuration loading and management for
// framecal. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers specifies how many worker goroutines the passes use
		Workers int `yaml:"workers"`

		// WorkgroupWidth and WorkgroupHeight are the partition dimensions
		// used by the range reduction
		WorkgroupWidth  int `yaml:"workgroupWidth"`
		WorkgroupHeight int `yaml:"workgroupHeight"`

		// PixelDepth is the sensor pixel depth in bits
		PixelDepth int `yaml:"pixelDepth"`

		// OffsetBias is the non-negative bias added after dark subtraction
		OffsetBias int `yaml:"offsetBias"`
	} `yaml:"processing"`

	// Defect correction parameters
	Defect struct {
		// Strategy selects the interpolation strategy: "line" or "weighted"
		Strategy string `yaml:"strategy"`
	} `yaml:"defect"`

	// Convolution parameters
	Convolution struct {
		// Enabled turns the optional smoothing pass on
		Enabled bool `yaml:"enabled"`

		// Weights is the odd-length separable kernel
		Weights []float64 `yaml:"weights"`

		// Renormalize divides by the included-weight sum near borders
		// and defects instead of leaving those pixels attenuated
		Renormalize bool `yaml:"renormalize"`
	} `yaml:"convolution"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.WorkgroupWidth = 16
	cfg.Processing.WorkgroupHeight = 16
	cfg.Processing.PixelDepth = 14
	cfg.Processing.OffsetBias = 0

	// Set default defect parameters
	cfg.Defect.Strategy = "line"

	// Set default convolution parameters
	cfg.Convolution.Enabled = false
	cfg.Convolution.Weights = []float64{0.25, 0.5, 0.25}
	cfg.Convolution.Renormalize = false

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
