// Package config loads and saves curstat configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all curstat configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Billing    BillingConfig    `toml:"billing"`
	Polling    PollingConfig    `toml:"polling"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// APIConfig holds dashboard API settings. SessionToken and UserID override
// the editor's credential store when set.
type APIConfig struct {
	BaseURL      string `toml:"base_url,omitempty"`
	SessionToken string `toml:"session_token,omitempty"`
	UserID       string `toml:"user_id,omitempty"`
	StateDBPath  string `toml:"state_db_path,omitempty"`
}

// BillingConfig holds billing-cycle settings.
type BillingConfig struct {
	CycleDay int `toml:"cycle_day"`
}

// PollingConfig holds the poll timing and cooldown parameters.
type PollingConfig struct {
	IntervalSec      int `toml:"interval_sec"`
	FailureThreshold int `toml:"failure_threshold"`
	CooldownSec      int `toml:"cooldown_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Billing: BillingConfig{CycleDay: 3},
		Polling: PollingConfig{
			IntervalSec:      60,
			FailureThreshold: 3,
			CooldownSec:      600,
		},
		Appearance: AppearanceConfig{Theme: "flexoki-dark"},
	}
}

// Interval returns the poll interval as a duration.
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// Cooldown returns the cooldown window as a duration.
func (p PollingConfig) Cooldown() time.Duration {
	return time.Duration(p.CooldownSec) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "curstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "curstat")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory used for the snapshot
// history database and daemon runtime files.
func DataDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "curstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "curstat")
}

// HistoryPath returns the default snapshot history database path.
func HistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyBounds()
	return cfg, nil
}

// Save writes the config file, creating the directory as needed.
func Save(cfg Config) error {
	if err := os.MkdirAll(ConfigDir(), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// applyBounds clamps nonsensical values back to defaults.
func (c *Config) applyBounds() {
	if c.Billing.CycleDay < 1 || c.Billing.CycleDay > 28 {
		c.Billing.CycleDay = 3
	}
	if c.Polling.IntervalSec < 10 {
		c.Polling.IntervalSec = 60
	}
	if c.Polling.FailureThreshold < 1 {
		c.Polling.FailureThreshold = 3
	}
	if c.Polling.CooldownSec < c.Polling.IntervalSec {
		c.Polling.CooldownSec = 600
	}
}
