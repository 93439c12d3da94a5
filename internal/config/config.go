package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the safespace server.
type Config struct {
	// ListenAddress is the address the HTTP API binds to.
	ListenAddress string `yaml:"listen_addr"`
	// DataDir is the directory holding the school catalog and the alert ledger.
	DataDir string `yaml:"data_dir"`
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// AppendTimeout bounds the ledger durability write. A timed-out append is
	// fatal to the request; it is never retried because retry risks duplicate
	// ledger entries.
	AppendTimeout time.Duration `yaml:"append_timeout"`
	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "safespace-settings.yaml"

	// DefaultListenAddress is used when no listen address is configured.
	DefaultListenAddress = ":8080"

	// DefaultDataDir is the default directory for persisted state.
	DefaultDataDir = "data"

	// CatalogFilename is the school catalog file inside DataDir.
	CatalogFilename = "schools.json"

	// LedgerFilename is the alert event log inside DataDir.
	LedgerFilename = "alert-events.jsonl"

	// DefaultAppendTimeout is the default bound on ledger writes.
	DefaultAppendTimeout = 5 * time.Second

	// DefaultShutdownTimeout is the default bound on graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultFilePermissions is the default file permission for data files.
	DefaultFilePermissions = 0o600
)

// errConfigIsNotSet is returned when a nil configuration is provided.
var errConfigIsNotSet = errors.New("configuration is not set")

// Load reads configuration from the provided path and validates essential
// fields. A missing file yields the defaults rather than an error so the
// server can start with zero setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := new(Config)
			if err = Validate(cfg); err != nil {
				return nil, err
			}

			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	if cfg.AppendTimeout <= 0 {
		cfg.AppendTimeout = DefaultAppendTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	return nil
}

// CatalogPath returns the location of the school catalog file.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, CatalogFilename)
}

// LedgerPath returns the location of the alert event log.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, LedgerFilename)
}
