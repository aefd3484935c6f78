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

// Config holds the release source parameters used when the updater binary
// is fetched from the remote release repository instead of a local path.
type Config struct {
	// ReleaseRepo is the "owner/name" slug of the updater release repository.
	ReleaseRepo string `yaml:"release_repo"`
	// AssetName is the name of the updater asset attached to each release.
	AssetName string `yaml:"asset_name"`
	// APIBaseURL optionally overrides the release host API endpoint.
	// Empty means the public GitHub API.
	APIBaseURL string `yaml:"api_base_url,omitempty"`
	// Timeout bounds every remote call made during package assembly.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for packager settings.
	DefaultConfigFilename = "pure-packager.yaml"

	// DefaultReleaseRepo is the repository holding updater releases.
	DefaultReleaseRepo = "mudita/PureUpdater"

	// DefaultAssetName is the updater binary asset published with each release.
	DefaultAssetName = "PureUpdater_RT.bin"

	// DefaultTimeout is the default duration for remote operations.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the file permission used for the settings file.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBadReleaseRepo is returned when the repository slug is not "owner/name".
	errBadReleaseRepo = errors.New("release repository must be in owner/name form")
	// errAssetNameRequired is returned when no updater asset name is configured.
	errAssetNameRequired = errors.New("release asset name must be provided")
)

// Default returns settings pointing at the public updater release repository.
func Default() *Config {
	return &Config{
		ReleaseRepo: DefaultReleaseRepo,
		AssetName:   DefaultAssetName,
		Timeout:     DefaultTimeout,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// An empty path yields the defaults without touching the filesystem.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
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

	if cfg.ReleaseRepo == "" {
		cfg.ReleaseRepo = DefaultReleaseRepo
	}

	parts := strings.Split(cfg.ReleaseRepo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("%q: %w", cfg.ReleaseRepo, errBadReleaseRepo)
	}

	if cfg.AssetName == "" {
		return errAssetNameRequired
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.APIBaseURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}

	return nil
}
