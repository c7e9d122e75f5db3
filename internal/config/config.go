// Package config holds the per-user settings for sync: where the shared
// file lives, whether it is compressed, this replica's identity, and the
// auto-sync cadence. Stored at ~/.config/spn/config.json with env-var
// overrides for scripting and tests.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AutoSyncConfig holds auto-sync settings for the watch daemon.
type AutoSyncConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`  // nil = default true
	Debounce string `json:"debounce,omitempty"` // duration string, default "2s"
	Interval string `json:"interval,omitempty"` // duration string, default "5m"
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	File     string         `json:"file"`     // path to the shared sync file
	Compress bool           `json:"compress"` // gzip-frame the file (.gz)
	Auto     AutoSyncConfig `json:"auto"`
}

// Config is the global spn config stored at ~/.config/spn/config.json.
type Config struct {
	DeviceID string     `json:"device_id,omitempty"`
	Sync     SyncConfig `json:"sync"`
}

// Dir returns ~/.config/spn, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "spn")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from ~/.config/spn/config.json.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config using atomic write (temp file + rename).
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// BaseDir returns the data directory holding .spn/.
// Priority: SPN_DIR env > home directory.
func BaseDir() (string, error) {
	if v := os.Getenv("SPN_DIR"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return home, nil
}

// SyncFilePath returns the configured sync file path (without the .gz
// suffix; the file manager appends it when compression is on).
// Priority: SPN_SYNC_FILE env > config.json > "".
func SyncFilePath() string {
	if v := os.Getenv("SPN_SYNC_FILE"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.File != "" {
		return cfg.Sync.File
	}
	return ""
}

// SyncCompress returns whether the sync file is gzip-framed.
// Priority: SPN_SYNC_COMPRESS env > config.json > false.
func SyncCompress() bool {
	if v := parseBoolEnv("SPN_SYNC_COMPRESS"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil {
		return cfg.Sync.Compress
	}
	return false
}

// DeviceID returns this replica's stable identity, generating and
// persisting one on first use. The id is observability-only: sync
// semantics never depend on it.
func DeviceID() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}

	id, err := generateDeviceID()
	if err != nil {
		return "", err
	}
	cfg.DeviceID = id
	if err := Save(cfg); err != nil {
		return "", err
	}
	return id, nil
}

// generateDeviceID creates a new random device ID (16 bytes hex).
func generateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// AutoSyncEnabled returns whether the watch daemon syncs automatically.
// Priority: SPN_SYNC_AUTO env > config.json sync.auto.enabled > true.
func AutoSyncEnabled() bool {
	if v := parseBoolEnv("SPN_SYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Enabled != nil {
		return *cfg.Sync.Auto.Enabled
	}
	return true
}

// AutoSyncDebounce returns the debounce after a detected file change.
// Priority: SPN_SYNC_AUTO_DEBOUNCE env > config.json > 2s.
func AutoSyncDebounce() time.Duration {
	if v := os.Getenv("SPN_SYNC_AUTO_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Debounce != "" {
		if d, err := time.ParseDuration(cfg.Sync.Auto.Debounce); err == nil {
			return d
		}
	}
	return 2 * time.Second
}

// AutoSyncInterval returns the periodic sync interval.
// Priority: SPN_SYNC_AUTO_INTERVAL env > config.json > 5m.
func AutoSyncInterval() time.Duration {
	if v := os.Getenv("SPN_SYNC_AUTO_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto.Interval != "" {
		if d, err := time.ParseDuration(cfg.Sync.Auto.Interval); err == nil {
			return d
		}
	}
	return 5 * time.Minute
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
