// Package config holds combatlens settings, layered from defaults, an
// optional YAML file and COMBATLENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Format selects report output: text or json.
	Format string `koanf:"format"`

	// DBPath is the SQLite history database.
	DBPath string `koanf:"db_path"`

	// DataFile optionally extends the embedded static data with a CUE file.
	DataFile string `koanf:"data_file"`

	// Workers bounds how many encounters are analysed concurrently.
	Workers int `koanf:"workers"`

	// Metrics prints engine counters after each analyze.
	Metrics bool `koanf:"metrics"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel: "warn",
		Format:   FormatText,
		DBPath:   "combatlens.db",
		Workers:  runtime.NumCPU(),
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be one of debug, info, warn, error (got %q)", ErrInvalidConfig, c.LogLevel)
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: format must be text or json (got %q)", ErrInvalidConfig, c.Format)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1 (got %d)", ErrInvalidConfig, c.Workers)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	return nil
}
