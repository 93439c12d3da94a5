package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults, and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	err := Validate(nil)
	require.Error(t, err)

	// Empty config picks up defaults.
	cfg := new(Config)

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, DefaultDataDir, cfg.DataDir)
	require.Equal(t, DefaultAppendTimeout, cfg.AppendTimeout)
	require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)

	// Bad listen address.
	cfg = &Config{
		ListenAddress: "bad:address",
	}

	err = Validate(cfg)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		ListenAddress: "127.0.0.1:8090",
		DataDir:       filepath.Join(dir, "state"),
		LogLevel:      "debug",
		AppendTimeout: 2 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, loaded.ListenAddress)
	require.Equal(t, cfg.DataDir, loaded.DataDir)
	require.Equal(t, cfg.AppendTimeout, loaded.AppendTimeout)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingFileUsesDefaults verifies a missing settings file is not fatal.
func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, filepath.Join(DefaultDataDir, CatalogFilename), cfg.CatalogPath())
	require.Equal(t, filepath.Join(DefaultDataDir, LedgerFilename), cfg.LedgerPath())
}
