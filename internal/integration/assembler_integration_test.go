package integration

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mudita-community/pure-packager/internal/config"
	"github.com/mudita-community/pure-packager/internal/manifest"
	"github.com/mudita-community/pure-packager/internal/service/assembler"
)

// startReleaseHost serves a minimal GitHub releases API for mudita/PureUpdater
// with a single release tagged 1.4.0 carrying the updater asset.
func startReleaseHost(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/mudita/PureUpdater/releases", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "tag_name": "1.4.0", "assets": [{"id": 11, "name": "PureUpdater_RT.bin"}]}]`)
	})
	mux.HandleFunc("/repos/mudita/PureUpdater/releases/tags/1.4.0", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 1, "tag_name": "1.4.0", "assets": [{"id": 11, "name": "PureUpdater_RT.bin"}]}`)
	})
	mux.HandleFunc("/repos/mudita/PureUpdater/releases/assets/11", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

// readArchive returns the file contents of a tar archive keyed by entry name.
func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)

	defer func() {
		_ = f.Close()
	}()

	files := make(map[string][]byte)
	tr := tar.NewReader(f)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		contents, err := io.ReadAll(tr)
		require.NoError(t, err)

		files[header.Name] = contents
	}

	return files
}

// TestAssembler_DefaultRemoteFlow runs the no-argument flow end to end: the
// release host is queried for the latest release, the updater asset is
// downloaded, and the published archive carries the manifest with the
// release tag as the updater version.
func TestAssembler_DefaultRemoteFlow(t *testing.T) {
	payload := []byte("updater release payload")
	server := startReleaseHost(t, payload)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "settings.yaml")

	require.NoError(t, config.Save(configPath, &config.Config{
		ReleaseRepo: "mudita/PureUpdater",
		AssetName:   "PureUpdater_RT.bin",
		APIBaseURL:  server.URL + "/",
		Timeout:     5 * time.Second,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archivePath, err := assembler.Run(ctx, &assembler.Options{
		ConfigPath: configPath,
		OutputDir:  dir,
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, assembler.DefaultOutputName), archivePath)

	files := readArchive(t, archivePath)
	require.Len(t, files, 2)
	require.Equal(t, payload, files[manifest.UpdaterFilename])

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(files[manifest.Filename], &m))
	require.NotNil(t, m.Updater)
	require.Equal(t, "1.4.0", m.Updater.Version)
	require.Nil(t, m.Boot)
	require.Nil(t, m.Bootloader)
}

// TestAssembler_LocalFlowWithDefaults runs a fully local assembly through
// the top-level entry point with the built-in default settings.
func TestAssembler_LocalFlowWithDefaults(t *testing.T) {
	dir := t.TempDir()

	updaterPath := filepath.Join(dir, "PureUpdater_RT.bin")
	require.NoError(t, os.WriteFile(updaterPath, []byte("local updater"), 0o755))

	bootPath := filepath.Join(dir, "boot.bin")
	require.NoError(t, os.WriteFile(bootPath, []byte("boot image"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archivePath, err := assembler.Run(ctx, &assembler.Options{
		UpdaterPath:    updaterPath,
		BootPath:       bootPath,
		UpdaterVersion: "0.0.3",
		OutputDir:      dir,
	})
	require.NoError(t, err)

	files := readArchive(t, archivePath)
	require.Len(t, files, 3)

	var m manifest.Manifest
	require.NoError(t, json.Unmarshal(files[manifest.Filename], &m))
	require.NotNil(t, m.Updater)
	require.Equal(t, "0.0.3", m.Updater.Version)
	require.NotNil(t, m.Boot)
	require.Equal(t, manifest.PlaceholderVersion, m.Boot.Version)
}
