// Package config loads the shiftleft application configuration from an
// optional YAML file, SL_* environment variables and built-in defaults, in
// that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SL_STORE_BACKEND.
const EnvPrefix = "SL"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Config is the top-level application configuration.
// It is loaded from ~/.config/shiftleft/config.yaml by default and must
// never be committed with real secrets.
type Config struct {
	Log    LogConfig    `mapstructure:"log"    json:"log"`
	Server ServerConfig `mapstructure:"server" json:"server"`
	Store  StoreConfig  `mapstructure:"store"  json:"store"`
	Scan   ScanConfig   `mapstructure:"scan"   json:"scan"`

	// PolicyPath points at an optional policy YAML applied to every engine.
	PolicyPath string `mapstructure:"policy_path" json:"policy_path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `mapstructure:"level" json:"level"`

	// Format is "console" for humans or "json" for log shippers.
	Format string `mapstructure:"format" json:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             json:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
}

// StoreConfig selects and configures the analysis result store.
type StoreConfig struct {
	// Backend is one of memory, sqlite or s3.
	Backend string       `mapstructure:"backend" json:"backend"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"  json:"sqlite"`
	S3      S3Config     `mapstructure:"s3"      json:"s3"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" keeps it in process.
	Path string `mapstructure:"path" json:"path"`
}

// S3Config configures the S3 backend. Credentials come from the standard
// AWS chain; Profile selects a named profile from ~/.aws/config.
type S3Config struct {
	Bucket   string `mapstructure:"bucket"   json:"bucket"`
	Prefix   string `mapstructure:"prefix"   json:"prefix"`
	Region   string `mapstructure:"region"   json:"region"`
	Profile  string `mapstructure:"profile"  json:"profile"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
}

// ScanConfig holds defaults applied to requests that leave them unset.
type ScanConfig struct {
	Frameworks        []string `mapstructure:"frameworks"         json:"frameworks"`
	SeverityThreshold string   `mapstructure:"severity_threshold" json:"severity_threshold"`
}

// Loader is the interface for reading Config.
type Loader interface {
	// Load reads, parses, and validates the configuration.
	Load() (*Config, error)

	// ConfigPath returns the path of the configuration file in use, or ""
	// when running on defaults and environment only.
	ConfigPath() string
}

// FileLoader loads Config through viper.
type FileLoader struct {
	path     string
	explicit bool
}

// NewLoader returns a loader for path. An empty path searches the working
// directory and ~/.config/shiftleft for config.yaml and tolerates its absence.
func NewLoader(path string) *FileLoader {
	if path != "" {
		return &FileLoader{path: path, explicit: true}
	}
	return &FileLoader{path: DefaultPath()}
}

// DefaultPath is ~/.config/shiftleft/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "shiftleft", "config.yaml")
	}
	return filepath.Join(home, ".config", "shiftleft", "config.yaml")
}

// ConfigPath implements Loader.
func (l *FileLoader) ConfigPath() string {
	if l.explicit {
		return l.path
	}
	if _, err := os.Stat(l.path); err == nil {
		return l.path
	}
	return ""
}

// Load implements Loader.
func (l *FileLoader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := l.ConfigPath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader(path).Load().
func Load(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.sqlite.path", "shiftleft.db")
	v.SetDefault("store.s3.bucket", "")
	v.SetDefault("store.s3.prefix", "analyses/")
	v.SetDefault("store.s3.region", "")
	v.SetDefault("store.s3.profile", "")
	v.SetDefault("store.s3.endpoint", "")

	v.SetDefault("scan.frameworks", []string{})
	v.SetDefault("scan.severity_threshold", "")

	v.SetDefault("policy_path", "")
}

// Validate returns every configuration problem joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		errs = append(errs, fmt.Errorf("log.level: invalid level %q", c.Log.Level))
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: required"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout: must be positive, got %s", c.Server.ShutdownTimeout))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path: required for the sqlite backend"))
		}
	case BackendS3:
		if c.Store.S3.Bucket == "" {
			errs = append(errs, errors.New("store.s3.bucket: required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: must be memory, sqlite or s3, got %q", c.Store.Backend))
	}

	return errors.Join(errs...)
}
