package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the paths and endpoints used by a single update run.
type Config struct {
	// ModsDir is the directory containing installed mod archives.
	ModsDir string `yaml:"mods_dir"`
	// ServerSettingsFile is the Factorio server settings JSON holding portal credentials.
	ServerSettingsFile string `yaml:"server_settings"`
	// PortalURL is the base URL of the mod portal for both API calls and downloads.
	PortalURL string `yaml:"portal_url"`
	// Timeout limits every portal request. Zero disables the limit.
	Timeout time.Duration `yaml:"timeout"`
	// MarkerFile marks that an update run is in progress.
	MarkerFile string `yaml:"marker_file"`
	// ServerProcesses are executable names of a running Factorio server.
	ServerProcesses []string `yaml:"server_processes"`
}

const (
	// DefaultConfigFilename is the default filename for the updater's own settings.
	DefaultConfigFilename = "factorio-modupdate.yaml"

	// DefaultModsDir is the mods directory relative to the working directory.
	DefaultModsDir = "mods"

	// DefaultServerSettingsFile is the server settings file relative to the working directory.
	DefaultServerSettingsFile = "settings/server-settings.json"

	// DefaultPortalURL is the public Factorio mod portal.
	DefaultPortalURL = "https://mods.factorio.com"

	// DefaultMarkerFile is the run marker relative to the working directory.
	DefaultMarkerFile = "factorio-modupdate.lock"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPortalURLRequired is returned when the portal URL resolves to an empty string.
	errPortalURLRequired = errors.New("portal url must be provided")
	// errNegativeTimeout is returned for a timeout below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")
)

// DefaultServerProcesses returns executable names of a dedicated Factorio server.
func DefaultServerProcesses() []string {
	return []string{"factorio", "factorio.exe"}
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := new(Config)

	// Defaults are always valid.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// A missing file is not an error: defaults are returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
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

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills empty fields with defaults and checks the portal URL.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.ModsDir) == "" {
		cfg.ModsDir = DefaultModsDir
	}

	if strings.TrimSpace(cfg.ServerSettingsFile) == "" {
		cfg.ServerSettingsFile = DefaultServerSettingsFile
	}

	if strings.TrimSpace(cfg.MarkerFile) == "" {
		cfg.MarkerFile = DefaultMarkerFile
	}

	if cfg.ServerProcesses == nil {
		cfg.ServerProcesses = DefaultServerProcesses()
	}

	if cfg.Timeout < 0 {
		return errNegativeTimeout
	}

	if cfg.PortalURL == "" {
		cfg.PortalURL = DefaultPortalURL
	}

	// Download paths from the portal are absolute, so a trailing slash would double up.
	cfg.PortalURL = strings.TrimRight(cfg.PortalURL, "/")
	if cfg.PortalURL == "" {
		return errPortalURLRequired
	}

	if _, err := url.ParseRequestURI(cfg.PortalURL); err != nil {
		return fmt.Errorf("invalid portal url: %w", err)
	}

	return nil
}
