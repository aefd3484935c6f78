package release

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	gh "github.com/google/go-github/v39/github"
)

// RepoID identifies a project on the release host, including owner and name.
type RepoID struct {
	Owner string
	Name  string
}

// NewRepoID creates a RepoID from an "owner/name" slug.
func NewRepoID(slug string) (RepoID, error) {
	parts := strings.Split(slug, "/")
	if got, want := len(parts), 2; got != want {
		return RepoID{}, fmt.Errorf("can't split owner/name %q, found %d parts want %d", slug, got, want)
	}

	return RepoID{
		Owner: parts[0],
		Name:  parts[1],
	}, nil
}

// String returns "<owner>/<name>".
func (r RepoID) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// GitHubSource fetches releases of a single repository through the GitHub
// releases API. The zero value is not usable, construct it with NewGitHubSource.
type GitHubSource struct {
	repo       RepoID
	client     *gh.Client
	httpClient *http.Client
}

// Option customizes a GitHubSource.
type Option func(*GitHubSource)

// WithHTTPClient replaces the HTTP client used for API calls and asset
// downloads (redirect following included).
func WithHTTPClient(c *http.Client) Option {
	return func(s *GitHubSource) {
		s.httpClient = c
	}
}

// NewGitHubSource creates a Source for the given repository.
// baseURL overrides the API endpoint when non-empty, which is how tests
// point the source at a local server; it must carry a trailing slash or one
// is added.
func NewGitHubSource(repo RepoID, baseURL string, opts ...Option) (*GitHubSource, error) {
	s := &GitHubSource{
		repo:       repo,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.client = gh.NewClient(s.httpClient)

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}

		endpoint, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse API base URL: %w", err)
		}

		s.client.BaseURL = endpoint
	}

	return s, nil
}

// ListReleases returns the repository's releases, most recent first,
// as ordered by the release host.
func (s *GitHubSource) ListReleases(ctx context.Context) ([]Release, error) {
	published, _, err := s.client.Repositories.ListReleases(ctx, s.repo.Owner, s.repo.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("list releases for %s: %s: %w", s.repo, err, ErrRemoteFetch)
	}

	releases := make([]Release, 0, len(published))

	for _, r := range published {
		assets := make([]string, 0, len(r.Assets))
		for _, a := range r.Assets {
			assets = append(assets, a.GetName())
		}

		releases = append(releases, Release{
			Tag:    r.GetTagName(),
			Assets: assets,
		})
	}

	return releases, nil
}

// DownloadAsset fetches the named asset of the release tagged tag and
// writes it to destPath. It fails when the tag or the asset does not exist.
func (s *GitHubSource) DownloadAsset(ctx context.Context, tag, assetName, destPath string) error {
	published, _, err := s.client.Repositories.GetReleaseByTag(ctx, s.repo.Owner, s.repo.Name, tag)
	if err != nil {
		return fmt.Errorf("release %s of %s: %s: %w", tag, s.repo, err, ErrRemoteFetch)
	}

	var assetID int64 = -1

	for _, a := range published.Assets {
		if a.GetName() == assetName {
			assetID = a.GetID()
			break
		}
	}

	if assetID < 0 {
		return fmt.Errorf("release %s of %s has no asset %q: %w", tag, s.repo, assetName, ErrRemoteFetch)
	}

	body, _, err := s.client.Repositories.DownloadReleaseAsset(ctx, s.repo.Owner, s.repo.Name, assetID, s.httpClient)
	if err != nil {
		return fmt.Errorf("download asset %q of %s %s: %s: %w", assetName, s.repo, tag, err, ErrRemoteFetch)
	}

	defer func() {
		_ = body.Close()
	}()

	out, err := os.Create(filepath.Clean(destPath))
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	if _, err = io.Copy(out, body); err != nil {
		_ = out.Close()

		return fmt.Errorf("write asset to %s: %w", destPath, err)
	}

	return out.Close()
}
