// Package cliconfig holds the gribls configuration: defaults, the TOML config
// file, and flag override precedence.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/justapithecus/grib/grib"
)

// Config is the resolved gribls configuration.
type Config struct {
	// CacheDir roots the sidecar cache. Empty selects the user cache dir.
	CacheDir string

	// Compression selects sidecar payload encoding: "none" or "zstd".
	Compression string

	// LogLevel is a zerolog level name: "debug", "info", "warn", "error".
	LogLevel string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Compression: "none",
		LogLevel:    "warn",
	}
}

// FileConfig mirrors Config for the TOML config file.
type FileConfig struct {
	CacheDir    string `toml:"cache_dir"`
	Compression string `toml:"compression"`
	LogLevel    string `toml:"log_level"`
}

// DefaultConfigPath returns the default configuration file path,
// ~/.grib/config.toml, or "" when the home directory is not accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".grib", "config.toml")
	}
	return ""
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig applies file values to cfg, skipping flags the user set
// explicitly (changed map, keyed by flag name).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) {
	if fc.CacheDir != "" && !changed["cache-dir"] {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.Compression != "" && !changed["compression"] {
		cfg.Compression = fc.Compression
	}
	if fc.LogLevel != "" && !changed["log-level"] {
		cfg.LogLevel = fc.LogLevel
	}
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// SidecarCompression maps the config value to the library option.
func (c Config) SidecarCompression() (grib.SidecarCompression, error) {
	switch c.Compression {
	case "", "none":
		return grib.SidecarCompressionNone, nil
	case "zstd":
		return grib.SidecarCompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (use none or zstd)", c.Compression)
	}
}

// Logger builds a console logger at the configured level. Unknown level
// names fall back to warn.
func (c Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
