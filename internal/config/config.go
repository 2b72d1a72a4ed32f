package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ServerConfig holds the remote transport settings.
type ServerConfig struct {
	URL      string `json:"url"`
	Database string `json:"database"`
	// ShareBaseURL is the public base used for shareable comment links.
	// Empty means "same as URL".
	ShareBaseURL string `json:"share_base_url,omitempty"`
}

// SessionConfig holds the session-scoped storage settings.
type SessionConfig struct {
	// DBPath is the sqlite file backing session storage. Empty selects the
	// in-memory implementation.
	DBPath string `json:"db_path,omitempty"`
}

// DisplayConfig holds viewer-facing formatting settings.
type DisplayConfig struct {
	// TimezoneCookie names the cookie carrying the viewer's timezone.
	TimezoneCookie string `json:"timezone_cookie"`
	// Timezone overrides cookie detection when set (IANA name).
	Timezone string `json:"timezone,omitempty"`
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	// FetchLimit caps bulk message reads per refresh. 0 means no cap.
	FetchLimit int `json:"fetch_limit,omitempty"`
	// RenderSettleMs is the delay before scroll pinning after a toggle.
	RenderSettleMs int `json:"render_settle_ms"`
}

// Config holds all configuration for the comment synchronization engine.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Session SessionConfig `json:"session"`
	Display DisplayConfig `json:"display"`
	Sync    SyncConfig    `json:"sync"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "http://localhost:8069",
		},
		Display: DisplayConfig{
			TimezoneCookie: "tz",
		},
		Sync: SyncConfig{
			RenderSettleMs: 50,
		},
	}
}

// LoadConfig loads configuration from path, falling back to defaults for
// anything unset. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	return cfg, nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	if env := os.Getenv("COMMENTSYNC_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "commentsync", "config.json")
}

// DefaultSessionDBPath returns the default session database path.
func DefaultSessionDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "commentsync", "session.db")
}

// SaveConfig writes the configuration as indented JSON.
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
