// Package config loads glucotrack settings.
//
// Values resolve in three layers: built-in defaults, then the YAML file, then
// GLUCOTRACK_* environment variables.
//
// Config file locations (priority order):
//  1. explicit path (--config flag)
//  2. $GLUCOTRACK_CONFIG
//  3. ./glucotrack.yaml
//  4. $XDG_CONFIG_HOME/glucotrack/config.yaml
//  5. ~/.config/glucotrack/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path.
	EnvConfigPath = "GLUCOTRACK_CONFIG"
	// ConfigFileName is the default config file name in the working directory.
	ConfigFileName = "glucotrack.yaml"
	// ConfigDirName is the config directory name under XDG.
	ConfigDirName = "glucotrack"
)

// Storage drivers accepted in Storage.Driver.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Metrics exporters accepted in Config.Metrics.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the root configuration document.
type Config struct {
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	Metrics string  `yaml:"metrics"`
}

// Storage selects and parameterises the persistence medium.
type Storage struct {
	Driver           string         `yaml:"driver"`
	FallbackToMemory *bool          `yaml:"fallback_to_memory,omitempty"`
	FS               FSConfig       `yaml:"fs"`
	SQLite           SQLiteConfig   `yaml:"sqlite"`
	Postgres         PostgresConfig `yaml:"postgres"`
	S3               S3Config       `yaml:"s3"`
}

// FSConfig configures the filesystem driver.
type FSConfig struct {
	Root string `yaml:"root"`
}

// SQLiteConfig configures the sqlite driver.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig configures the postgres driver.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// S3Config configures the s3 driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Fallback reports whether an unavailable persistent medium should degrade
// to the in-memory driver. Unset means true.
func (s Storage) Fallback() bool {
	return s.FallbackToMemory == nil || *s.FallbackToMemory
}

// DefaultConfig returns the settings used when no file or env overrides exist.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.FallbackToMemory == nil {
		enabled := true
		c.Storage.FallbackToMemory = &enabled
	}
	if c.Storage.FS.Root == "" {
		c.Storage.FS.Root = "./glucodata"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "glucotrack.db"
	}
	if c.Storage.S3.Region == "" {
		c.Storage.S3.Region = "us-east-1"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Metrics == "" {
		c.Metrics = MetricsNone
	}
}

// Load resolves the config file (explicit path first, then FindConfigPath),
// applies defaults and environment overrides, and validates the result. The
// returned path is empty when no file was found.
func Load(explicit string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = FindConfigPath()
	}
	cfg := &Config{}
	if path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, path, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path without env overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects unknown drivers and exporters.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverFS, DriverSQLite, DriverPostgres, DriverS3:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("unknown metrics exporter %q", c.Metrics)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"GLUCOTRACK_STORAGE_DRIVER": &c.Storage.Driver,
		"GLUCOTRACK_FS_ROOT":        &c.Storage.FS.Root,
		"GLUCOTRACK_SQLITE_PATH":    &c.Storage.SQLite.Path,
		"GLUCOTRACK_POSTGRES_DSN":   &c.Storage.Postgres.DSN,
		"GLUCOTRACK_S3_BUCKET":      &c.Storage.S3.Bucket,
		"GLUCOTRACK_S3_REGION":      &c.Storage.S3.Region,
		"GLUCOTRACK_S3_ENDPOINT":    &c.Storage.S3.Endpoint,
		"GLUCOTRACK_LOG_LEVEL":      &c.Logging.Level,
		"GLUCOTRACK_METRICS":        &c.Metrics,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	bools := map[string]func(bool){
		"GLUCOTRACK_S3_PATH_STYLE":      func(v bool) { c.Storage.S3.PathStyle = v },
		"GLUCOTRACK_FALLBACK_TO_MEMORY": func(v bool) { c.Storage.FallbackToMemory = &v },
	}
	for name, set := range bools {
		raw, ok := lookup(name)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		set(v)
	}
	return nil
}

// FindConfigPath returns the first existing config file, or "".
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}
	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
