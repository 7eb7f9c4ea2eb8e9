package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jayyu23/starling-store/internal/progress"
)

// Config defines configuration for the starling-store CLI.
type Config struct {
	InputPath string       `yaml:"input_path"`
	OutputDir string       `yaml:"output_dir"`
	ChunkSize int64        `yaml:"chunk_size"`
	Workers   int          `yaml:"workers"`
	Bucket    string       `yaml:"bucket"`
	Prefix    string       `yaml:"prefix"`
	Progress  bool         `yaml:"progress"`
	Pinata    PinataConfig `yaml:"pinata"`
}

// PinataConfig holds Pinata pinning credentials.
type PinataConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		OutputDir: "output",
		ChunkSize: 256 * 1024 * 1024, // 256MB
		Workers:   8,
	}
}

// yamlConfig is used for YAML unmarshaling with string chunk size.
type yamlConfig struct {
	InputPath string       `yaml:"input_path"`
	OutputDir string       `yaml:"output_dir"`
	ChunkSize string       `yaml:"chunk_size"`
	Workers   int          `yaml:"workers"`
	Bucket    string       `yaml:"bucket"`
	Prefix    string       `yaml:"prefix"`
	Progress  bool         `yaml:"progress"`
	Pinata    PinataConfig `yaml:"pinata"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.InputPath != "" {
		cfg.InputPath = yc.InputPath
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		cfg.ChunkSize = size
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Bucket != "" {
		cfg.Bucket = yc.Bucket
	}
	if yc.Prefix != "" {
		cfg.Prefix = yc.Prefix
	}
	cfg.Progress = yc.Progress
	if yc.Pinata.APIKey != "" {
		cfg.Pinata.APIKey = yc.Pinata.APIKey
	}
	if yc.Pinata.APISecret != "" {
		cfg.Pinata.APISecret = yc.Pinata.APISecret
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the STARLING_ prefix, except the Pinata
// credentials which keep their conventional PINATA_ names.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STARLING_INPUT"); v != "" {
		c.InputPath = v
	}
	if v := os.Getenv("STARLING_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("STARLING_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse STARLING_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("STARLING_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse STARLING_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("STARLING_BUCKET"); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv("STARLING_PREFIX"); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv("STARLING_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("PINATA_API_KEY"); v != "" {
		c.Pinata.APIKey = v
	}
	if v := os.Getenv("PINATA_API_SECRET"); v != "" {
		c.Pinata.APISecret = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("config: output_dir is required")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.InputPath != "" {
		c.InputPath = override.InputPath
	}
	if override.OutputDir != "" {
		c.OutputDir = override.OutputDir
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Bucket != "" {
		c.Bucket = override.Bucket
	}
	if override.Prefix != "" {
		c.Prefix = override.Prefix
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Pinata.APIKey != "" {
		c.Pinata.APIKey = override.Pinata.APIKey
	}
	if override.Pinata.APISecret != "" {
		c.Pinata.APISecret = override.Pinata.APISecret
	}
	return c
}
