// Package config loads and validates the server configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Server holds the HTTP listener settings.
type Server struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Database holds the SQLite settings.
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Config represents the application configuration.
type Config struct {
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`

	// CORSOrigins lists allowed browser origins. Empty allows all,
	// which is only appropriate for local development.
	CORSOrigins []string `yaml:"corsOrigins,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:   Server{Addr: ":8080"},
		Database: Database{Path: "./data/atag.db"},
		LogLevel: "info",
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment win over the file, which is how the
// container deployments set things.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ATAG_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("ATAG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ATAG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate validates the configuration struct.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
