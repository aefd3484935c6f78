package release

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestSource starts a fake release API for mudita/PureUpdater with two
// releases, the newest tagged 1.2.0 carrying a downloadable updater asset.
func newTestSource(t *testing.T) *GitHubSource {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/mudita/PureUpdater/releases", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"id": 2, "tag_name": "1.2.0", "assets": [{"id": 20, "name": "PureUpdater_RT.bin"}]},
			{"id": 1, "tag_name": "1.1.0", "assets": [{"id": 10, "name": "PureUpdater_RT.bin"}]}
		]`)
	})
	mux.HandleFunc("/repos/mudita/PureUpdater/releases/tags/1.2.0", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id": 2, "tag_name": "1.2.0", "assets": [{"id": 20, "name": "PureUpdater_RT.bin"}]}`)
	})
	mux.HandleFunc("/repos/mudita/PureUpdater/releases/assets/20", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("updater payload"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	repo, err := NewRepoID("mudita/PureUpdater")
	require.NoError(t, err)

	source, err := NewGitHubSource(repo, server.URL+"/")
	require.NoError(t, err)

	return source
}

// TestNewRepoID covers slug parsing.
func TestNewRepoID(t *testing.T) {
	t.Parallel()

	repo, err := NewRepoID("mudita/PureUpdater")
	require.NoError(t, err)
	require.Equal(t, "mudita", repo.Owner)
	require.Equal(t, "PureUpdater", repo.Name)
	require.Equal(t, "mudita/PureUpdater", repo.String())

	_, err = NewRepoID("not-a-slug")
	require.Error(t, err)

	_, err = NewRepoID("a/b/c")
	require.Error(t, err)
}

// TestListReleasesOrder ensures releases come back most recent first,
// with tags and asset names intact.
func TestListReleasesOrder(t *testing.T) {
	t.Parallel()

	source := newTestSource(t)

	releases, err := source.ListReleases(context.Background())
	require.NoError(t, err)
	require.Len(t, releases, 2)
	require.Equal(t, "1.2.0", releases[0].Tag)
	require.Equal(t, []string{"PureUpdater_RT.bin"}, releases[0].Assets)
	require.Equal(t, "1.1.0", releases[1].Tag)
}

// TestDownloadAsset fetches the updater asset into a local file.
func TestDownloadAsset(t *testing.T) {
	t.Parallel()

	source := newTestSource(t)
	dest := filepath.Join(t.TempDir(), "updater.bin")

	err := source.DownloadAsset(context.Background(), "1.2.0", "PureUpdater_RT.bin", dest)
	require.NoError(t, err)

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, "updater payload", string(contents))
}

// TestDownloadAssetUnknownTag fails with a remote fetch error.
func TestDownloadAssetUnknownTag(t *testing.T) {
	t.Parallel()

	source := newTestSource(t)
	dest := filepath.Join(t.TempDir(), "updater.bin")

	err := source.DownloadAsset(context.Background(), "9.9.9", "PureUpdater_RT.bin", dest)
	require.ErrorIs(t, err, ErrRemoteFetch)
}

// TestDownloadAssetUnknownName fails when the release carries no such asset.
func TestDownloadAssetUnknownName(t *testing.T) {
	t.Parallel()

	source := newTestSource(t)
	dest := filepath.Join(t.TempDir(), "updater.bin")

	err := source.DownloadAsset(context.Background(), "1.2.0", "missing.bin", dest)
	require.ErrorIs(t, err, ErrRemoteFetch)

	_, statErr := os.Stat(dest)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestListReleasesServerDown wraps transport failures in ErrRemoteFetch.
func TestListReleasesServerDown(t *testing.T) {
	t.Parallel()

	repo, err := NewRepoID("mudita/PureUpdater")
	require.NoError(t, err)

	// Point at a server that is already closed.
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	source, err := NewGitHubSource(repo, server.URL+"/")
	require.NoError(t, err)

	_, err = source.ListReleases(context.Background())
	require.ErrorIs(t, err, ErrRemoteFetch)
}
