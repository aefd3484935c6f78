package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and defaulting behavior.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	require.Error(t, Validate(nil))

	// Bad repository slug.
	cfg := &Config{
		ReleaseRepo: "not-a-slug",
		AssetName:   DefaultAssetName,
	}
	require.Error(t, Validate(cfg))

	// Missing asset name.
	cfg = &Config{
		ReleaseRepo: DefaultReleaseRepo,
	}
	require.Error(t, Validate(cfg))

	// Empty repo falls back to the default, timeout is filled in.
	cfg = &Config{
		AssetName: DefaultAssetName,
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultReleaseRepo, cfg.ReleaseRepo)
	require.Equal(t, DefaultTimeout, cfg.Timeout)

	// Bad API base URL.
	cfg = &Config{
		ReleaseRepo: DefaultReleaseRepo,
		AssetName:   DefaultAssetName,
		APIBaseURL:  "::not-a-url",
	}
	require.Error(t, Validate(cfg))
}

// TestLoadDefaults ensures an empty path yields the built-in defaults.
func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		ReleaseRepo: "mudita/PureUpdater",
		AssetName:   "PureUpdater_RT.bin",
		APIBaseURL:  "https://git.internal/api/v3/",
		Timeout:     10 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}
