package assembler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/mod/semver"

	"github.com/mudita-community/pure-packager/internal/config"
	"github.com/mudita-community/pure-packager/internal/logger"
	"github.com/mudita-community/pure-packager/internal/manifest"
	"github.com/mudita-community/pure-packager/internal/release"
)

// DefaultOutputName is the archive name used when the caller supplies none.
const DefaultOutputName = "update.tar"

// binaryFileMode is applied to binaries copied or downloaded into the package.
const binaryFileMode os.FileMode = 0o755

// ErrArchiveExists is returned when a file already occupies the path where
// the update archive would be created or published.
var ErrArchiveExists = errors.New("archive already exists")

// Options contains inputs for the package assembly entry point.
// All fields are optional; zero values select the default remote-fetch flow.
type Options struct {
	// ConfigPath is an optional path to release source settings.
	ConfigPath string
	// UpdaterPath is a local updater binary to package instead of
	// downloading the latest release.
	UpdaterPath string
	// BootPath is a local boot image to include; when empty the package
	// ships without boot.bin.
	BootPath string
	// UpdaterVersion overrides the updater version recorded in the manifest.
	UpdaterVersion string
	// BootVersion overrides the boot image version recorded in the manifest.
	BootVersion string
	// UpdaterChecksum overrides the updater checksum instead of computing it.
	UpdaterChecksum string
	// OutputName is the archive filename, update.tar by default.
	OutputName string
	// OutputDir is where the finished archive is published,
	// the current working directory by default.
	OutputDir string
}

// assembler holds the state of a single package assembly run.
// It is unexported, callers go through Run or RunWithSource.
type assembler struct {
	cfg    *config.Config
	source release.Source

	// Local input paths and the publish directory, resolved to absolute
	// before the run enters the staging directory.
	updaterPath string
	bootPath    string
	outputDir   string
	outputName  string

	opts      *Options
	versions  manifest.VersionSet
	checksums manifest.ChecksumSet
}

// Run assembles an update package according to opts and returns the absolute
// path of the published archive.
func Run(ctx context.Context, opts *Options) (string, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	repo, err := release.NewRepoID(cfg.ReleaseRepo)
	if err != nil {
		return "", err
	}

	source, err := release.NewGitHubSource(repo, cfg.APIBaseURL)
	if err != nil {
		return "", err
	}

	return RunWithSource(ctx, opts, cfg, source)
}

// RunWithSource assembles an update package using the provided release
// source. It exists separately from Run so callers can substitute the
// release host.
func RunWithSource(ctx context.Context, opts *Options, cfg *config.Config, source release.Source) (string, error) {
	ctx = logger.WithName(ctx, "assembler")

	a, err := newAssembler(opts, cfg, source)
	if err != nil {
		return "", err
	}

	archivePath, err := a.run(ctx)
	if err != nil {
		return "", fmt.Errorf("assemble package: %w", err)
	}

	logger.InfoKV(ctx, "Package assembled", "path", archivePath)

	return archivePath, nil
}

// newAssembler validates options and resolves every caller-relative path,
// since the run itself happens inside an ephemeral staging directory.
func newAssembler(opts *Options, cfg *config.Config, source release.Source) (*assembler, error) {
	a := &assembler{
		cfg:        cfg,
		source:     source,
		opts:       opts,
		outputName: opts.OutputName,
		versions:   manifest.DefaultVersions(),
	}

	if a.outputName == "" {
		a.outputName = DefaultOutputName
	}

	var err error

	if opts.UpdaterPath != "" {
		if a.updaterPath, err = filepath.Abs(opts.UpdaterPath); err != nil {
			return nil, fmt.Errorf("resolve updater path: %w", err)
		}
	}

	if opts.BootPath != "" {
		if a.bootPath, err = filepath.Abs(opts.BootPath); err != nil {
			return nil, fmt.Errorf("resolve boot path: %w", err)
		}
	}

	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	if a.outputDir, err = filepath.Abs(outputDir); err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}

	return a, nil
}

// run executes the assembly steps in order: stage inputs, resolve versions
// and checksums, build the manifest, archive, publish.
func (a *assembler) run(ctx context.Context) (string, error) {
	ws, err := newWorkspace()
	if err != nil {
		return "", err
	}

	defer ws.Close(ctx)

	if err = a.acquireUpdater(ctx); err != nil {
		return "", err
	}

	if err = a.acquireBoot(ctx); err != nil {
		return "", err
	}

	a.applyOverrides(ctx)

	logger.InfoKV(ctx, "Building manifest", "file", manifest.Filename)

	if _, err = manifest.Build(".", a.versions, a.checksums); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Writing archive", "name", a.outputName)

	if err = createArchive(".", a.outputName); err != nil {
		return "", err
	}

	return a.publish(ctx)
}

// acquireUpdater stages updater.bin: either a copy of the local binary or
// the asset of the most recent release, whose tag becomes the version.
func (a *assembler) acquireUpdater(ctx context.Context) error {
	if a.updaterPath != "" {
		logger.InfoKV(ctx, "Using local updater binary", "path", a.updaterPath)

		return copyFile(a.updaterPath, manifest.UpdaterFilename)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	releases, err := a.source.ListReleases(ctx)
	if err != nil {
		return err
	}

	if len(releases) == 0 {
		return fmt.Errorf("no releases published by %s: %w", a.cfg.ReleaseRepo, release.ErrRemoteFetch)
	}

	tag := releases[0].Tag
	a.versions[manifest.UpdaterFilename] = tag

	logger.InfoKV(ctx, "Downloading latest updater release",
		"repo", a.cfg.ReleaseRepo, "tag", tag, "asset", a.cfg.AssetName)

	return a.source.DownloadAsset(ctx, tag, a.cfg.AssetName, manifest.UpdaterFilename)
}

// acquireBoot stages boot.bin when a local boot image was supplied.
// Without one the package simply ships no boot image.
func (a *assembler) acquireBoot(ctx context.Context) error {
	if a.bootPath == "" {
		logger.Debug(ctx, "No boot image supplied, packaging without boot.bin")
		return nil
	}

	logger.InfoKV(ctx, "Using local boot image", "path", a.bootPath)

	return copyFile(a.bootPath, manifest.BootFilename)
}

// applyOverrides lays caller-supplied versions and checksums over the
// defaults established while staging. Later assignments win.
func (a *assembler) applyOverrides(ctx context.Context) {
	if v := a.opts.UpdaterVersion; v != "" {
		warnNonSemver(ctx, manifest.UpdaterFilename, v)
		a.versions[manifest.UpdaterFilename] = v
	}

	if v := a.opts.BootVersion; v != "" {
		warnNonSemver(ctx, manifest.BootFilename, v)
		a.versions[manifest.BootFilename] = v
	}

	if sum := a.opts.UpdaterChecksum; sum != "" {
		a.checksums = manifest.NewChecksumSet()
		a.checksums[manifest.UpdaterFilename] = sum
	}
}

// publish copies the finished archive from the staging directory to the
// output directory, refusing to overwrite an existing file.
func (a *assembler) publish(ctx context.Context) (string, error) {
	target := filepath.Join(a.outputDir, a.outputName)

	in, err := os.Open(a.outputName)
	if err != nil {
		return "", fmt.Errorf("open staged archive: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_EXCL, manifest.DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", target, ErrArchiveExists)
		}

		return "", fmt.Errorf("publish archive: %w", err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return "", fmt.Errorf("publish archive: %w", err)
	}

	if err = out.Close(); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Published archive", "path", target)

	return target, nil
}

// copyFile copies src into dst with binary permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, binaryFileMode)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	return out.Close()
}

// warnNonSemver flags version overrides that do not parse as semantic
// versions. They are still recorded verbatim.
func warnNonSemver(ctx context.Context, name, version string) {
	if !semver.IsValid("v" + version) {
		logger.WarnKV(ctx, "Version override is not a semantic version",
			"file", name, "version", version)
	}
}
