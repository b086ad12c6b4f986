// Package config loads runtime configuration from the environment with
// an optional YAML file overlay. Flags parsed by the CLI take
// precedence over both.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Dedupe   DedupeConfig   `yaml:"dedupe"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// DedupeConfig holds the deduplication parameters. Defaults mirror the
// common 16x16 difference hash with one band per signature row.
type DedupeConfig struct {
	InputDir    string  `yaml:"input_dir"`
	OutputDir   string  `yaml:"output_dir"`
	HashSize    int     `yaml:"hash_size"`
	Bands       int     `yaml:"bands"`
	Threshold   float64 `yaml:"threshold"`
	Concurrency int     `yaml:"concurrency"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// envInt reads an environment variable and parses it as a positive
// integer, falling back to the default when unset or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64, falling back to
// the default when unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envString reads an environment variable, falling back to the default
// when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load builds a Config from environment variables and defaults.
func Load() *Config {
	return &Config{
		Dedupe: DedupeConfig{
			InputDir:    envString("COUCKOO_INPUT_DIR", "data"),
			OutputDir:   envString("COUCKOO_OUTPUT_DIR", "results"),
			HashSize:    envInt("COUCKOO_HASH_SIZE", 16),
			Bands:       envInt("COUCKOO_BANDS", 16),
			Threshold:   envFloat("COUCKOO_THRESHOLD", 0.8),
			Concurrency: envInt("COUCKOO_CONCURRENCY", 4),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Server: ServerConfig{
			Host: envString("COUCKOO_HOST", "127.0.0.1"),
			Port: envInt("COUCKOO_PORT", 8080),
		},
	}
}

// LoadFile builds a Config from the environment and overlays the YAML
// file at path. Fields absent from the file keep their env/default
// values.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
