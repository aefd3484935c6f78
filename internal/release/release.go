package release

import (
	"context"
	"errors"
)

// ErrRemoteFetch indicates that listing releases or downloading an asset
// from the release host failed.
var ErrRemoteFetch = errors.New("remote fetch failed")

// Release describes one published release of a project,
// most relevantly its tag and the names of its downloadable assets.
type Release struct {
	// Tag is the release tag, used as the version of the shipped binary.
	Tag string
	// Assets lists the names of the files attached to the release.
	Assets []string
}

// Source exposes the two operations the packager needs from a release host:
// listing releases (most recent first) and fetching a named asset of a
// given release to a local path.
type Source interface {
	ListReleases(ctx context.Context) ([]Release, error)
	DownloadAsset(ctx context.Context, tag, assetName, destPath string) error
}
