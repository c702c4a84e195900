// Package config loads recon settings from viper, the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/recon/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults for settings that are not configured anywhere.
const (
	DefaultBackendURL  = "https://financial-reconciliation-app.onrender.com"
	DefaultExportDir   = "."
	DefaultArchivePath = "~/.local/share/recon/reports.db"
)

// EnvPrefix prefixes every environment variable viper reads automatically.
const EnvPrefix = "RECON"

// LegacyBackendEnv is still honored for the backend URL.
const LegacyBackendEnv = "FLASK_BACKEND_URL"

// Config is the resolved application configuration.
type Config struct {
	BackendURL     string
	ExportDir      string
	ArchivePath    string
	Revalidate     bool
	ArchiveEnabled bool
}

// SetDefaults registers defaults and environment bindings on the global viper instance.
func SetDefaults() error {
	viper.SetDefault("backend.url", DefaultBackendURL)
	viper.SetDefault("health.revalidate", false)
	viper.SetDefault("export.dir", DefaultExportDir)
	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.path", DefaultArchivePath)

	if err := viper.BindEnv("backend.url", EnvPrefix+"_BACKEND_URL", LegacyBackendEnv); err != nil {
		return fmt.Errorf("failed to bind backend url: %w", err)
	}
	return nil
}

// LoadEnvFiles loads .env style files from dir. Values in .env.local win over .env and
// the process environment wins over both. Missing files are skipped.
func LoadEnvFiles(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load resolves the configuration from the global viper instance.
func Load() (*Config, error) {
	cfg := &Config{
		BackendURL:     strings.TrimRight(strings.TrimSpace(viper.GetString("backend.url")), "/"),
		ExportDir:      ExpandPath(viper.GetString("export.dir")),
		ArchivePath:    ExpandPath(viper.GetString("archive.path")),
		Revalidate:     viper.GetBool("health.revalidate"),
		ArchiveEnabled: viper.GetBool("archive.enabled"),
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = DefaultExportDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("%w: backend.url is empty", common.ErrMissingConfig)
	}

	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend.url %q must be an http or https URL", common.ErrInvalidConfig, c.BackendURL)
	}

	if c.ArchiveEnabled && c.ArchivePath == "" {
		return fmt.Errorf("%w: archive.path is required when the archive is enabled", common.ErrMissingConfig)
	}
	return nil
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
