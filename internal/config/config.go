// Package config reads and writes the deployfin configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all deployfin configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Sync    SyncConfig    `toml:"sync"`
}

// GeneralConfig holds storage and logging preferences.
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	ReferenceDir string `toml:"reference_dir,omitempty"`
	LogLevel     string `toml:"log_level"`
}

// SyncConfig holds offline-queue sync settings.
type SyncConfig struct {
	Endpoint       string `toml:"endpoint,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(DataDir(), "state.db"),
			LogLevel:     "warn",
		},
		Sync: SyncConfig{
			TimeoutSeconds: 10,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "deployfin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "deployfin")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "deployfin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "deployfin")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path (ConfigPath when empty), returning
// defaults if it doesn't exist.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parsing config: unknown key %q", undecoded[0].String())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to path (ConfigPath when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path (ConfigPath when empty).
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks values the TOML decoder cannot.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.General.LogLevel); err != nil {
		return err
	}
	if c.Sync.TimeoutSeconds < 0 {
		return fmt.Errorf("sync.timeout_seconds must not be negative, got %d", c.Sync.TimeoutSeconds)
	}
	return nil
}

// SyncEndpoint returns the sync endpoint from env var or config, in that order.
func SyncEndpoint(cfg Config) string {
	if ep := os.Getenv("DEPLOYFIN_SYNC_ENDPOINT"); ep != "" {
		return ep
	}
	return cfg.Sync.Endpoint
}

// SyncTimeout returns the per-item sync timeout.
func (c Config) SyncTimeout() time.Duration {
	if c.Sync.TimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

// ParseLevel maps a log_level value to a slog level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log_level %q", s)
	}
}
