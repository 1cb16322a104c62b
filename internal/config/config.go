// Package config loads the bot's settings from a TOML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/andrew11morozovtwo/bot-accounting/internal/autosign"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

// AdminPasswordEnv overrides admin_password, so the secret can stay out of
// the config file.
const AdminPasswordEnv = "BOT_ADMIN_PASSWORD"

// Config holds the daemon settings.
type Config struct {
	DBPath     string
	ListenAddr string
	LogPath    string
	LogLevel   slog.Level

	// AdminPassword elevates a user to system admin through the API. Empty
	// disables elevation.
	AdminPassword string

	AutosignInterval time.Duration
	AutosignWindow   time.Duration
	SessionTTL       time.Duration

	DefaultCategories []string

	// BootstrapAdminExternalID, if set, is created or promoted to system
	// admin on startup.
	BootstrapAdminExternalID int64
	BootstrapAdminName       string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DBPath:             "bot-accounting.sqlite3",
		ListenAddr:         ":8080",
		LogLevel:           slog.LevelInfo,
		AutosignInterval:   autosign.DefaultInterval,
		AutosignWindow:     autosign.DefaultWindow,
		SessionTTL:         time.Hour,
		BootstrapAdminName: "Administrator",
	}
}

type fileConfig struct {
	DBPath                   string   `toml:"db_path"`
	ListenAddr               string   `toml:"listen_addr"`
	LogPath                  string   `toml:"log_path"`
	LogLevel                 string   `toml:"log_level"`
	AdminPassword            string   `toml:"admin_password"`
	AutosignInterval         string   `toml:"autosign_interval"`
	AutosignWindow           string   `toml:"autosign_window"`
	SessionTTL               string   `toml:"session_ttl"`
	DefaultCategories        []string `toml:"default_categories"`
	BootstrapAdminExternalID int64    `toml:"bootstrap_admin_external_id"`
	BootstrapAdminName       string   `toml:"bootstrap_admin_name"`
}

// Load returns the defaults overridden by the keys set in the file at path.
// An empty path loads only the defaults. The admin password is finally
// taken from the environment when AdminPasswordEnv is set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("loading config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("loading config: unknown key %q", undecoded[0].String())
		}
		if err := apply(&cfg, raw, meta); err != nil {
			return Config{}, err
		}
	}

	if pw, ok := os.LookupEnv(AdminPasswordEnv); ok {
		cfg.AdminPassword = pw
	}
	return cfg, nil
}

func apply(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("db_path") {
		cfg.DBPath = strings.TrimSpace(raw.DBPath)
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("log_path") {
		cfg.LogPath = strings.TrimSpace(raw.LogPath)
	}
	if meta.IsDefined("log_level") {
		level, err := ParseLevel(raw.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if meta.IsDefined("admin_password") {
		cfg.AdminPassword = raw.AdminPassword
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"autosign_interval", raw.AutosignInterval, &cfg.AutosignInterval},
		{"autosign_window", raw.AutosignWindow, &cfg.AutosignWindow},
		{"session_ttl", raw.SessionTTL, &cfg.SessionTTL},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return fmt.Errorf("parse %s: must be positive", d.key)
		}
		*d.dst = v
	}

	if meta.IsDefined("default_categories") {
		cfg.DefaultCategories = normalizeNames(raw.DefaultCategories)
	}
	if meta.IsDefined("bootstrap_admin_external_id") {
		cfg.BootstrapAdminExternalID = raw.BootstrapAdminExternalID
	}
	if meta.IsDefined("bootstrap_admin_name") {
		if name := strings.TrimSpace(raw.BootstrapAdminName); name != "" {
			cfg.BootstrapAdminName = name
		}
	}
	return nil
}

// ParseLevel parses a log level name such as "info" or "DEBUG".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("parse log_level: %w", err)
	}
	return level, nil
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, name := range in {
		v := store.NormalizeName(name)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
