package manifest

import (
	"crypto/md5" //nolint:gosec // The update format mandates md5 content sums.
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Filename is the manifest file written next to the packaged binaries.
	Filename = "version.json"

	// PlaceholderVersion is assigned to every recognized file until the
	// caller or the release source provides a real one.
	PlaceholderVersion = "0.0.0"

	// BootFilename is the canonical name of the boot image.
	BootFilename = "boot.bin"
	// UpdaterFilename is the canonical name of the updater binary.
	UpdaterFilename = "updater.bin"
	// BootloaderFilename is the canonical name of the bootloader image.
	BootloaderFilename = "ecoboot.bin"

	// DefaultFileMode is used when writing the manifest file.
	DefaultFileMode os.FileMode = 0o644

	// jsonIndent matches the four-space indentation of the on-device parser.
	jsonIndent = "    "
)

// ErrMissingVersion is returned when a recognized file is present in the
// package directory but no version was supplied for it.
var ErrMissingVersion = errors.New("no version supplied for file")

// RecognizedFiles returns the canonical filenames this tool manages,
// in the order their entries appear in the manifest.
func RecognizedFiles() []string {
	return []string{BootFilename, UpdaterFilename, BootloaderFilename}
}

// Entry describes one packaged binary.
type Entry struct {
	// Filename is the canonical on-disk name of the binary.
	Filename string `json:"filename"`
	// Version is the semantic version recorded for the binary.
	Version string `json:"version"`
	// MD5Sum is the hex-encoded md5 sum of the binary contents.
	MD5Sum string `json:"md5sum"`
}

// Manifest maps binary roles to their entries. Field order fixes the JSON
// key order regardless of directory listing order.
type Manifest struct {
	Boot       *Entry `json:"boot,omitempty"`
	Updater    *Entry `json:"updater,omitempty"`
	Bootloader *Entry `json:"bootloader,omitempty"`
}

// VersionSet maps canonical filenames to version strings.
type VersionSet map[string]string

// DefaultVersions returns a VersionSet seeding the placeholder version
// for every recognized file.
func DefaultVersions() VersionSet {
	versions := make(VersionSet, len(RecognizedFiles()))
	for _, name := range RecognizedFiles() {
		versions[name] = PlaceholderVersion
	}

	return versions
}

// ChecksumSet maps canonical filenames to externally supplied checksums.
// An empty value means the checksum is computed from the file contents.
type ChecksumSet map[string]string

// NewChecksumSet returns a ChecksumSet with every recognized file unset.
func NewChecksumSet() ChecksumSet {
	checksums := make(ChecksumSet, len(RecognizedFiles()))
	for _, name := range RecognizedFiles() {
		checksums[name] = ""
	}

	return checksums
}

// Build scans dir for recognized files and produces the package manifest.
// Versions must cover every recognized file actually present; checksums may
// be nil to compute every sum from file contents. The manifest is also
// written to Filename inside dir, overwriting any previous one.
func Build(dir string, versions VersionSet, checksums ChecksumSet) (*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package directory: %w", err)
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		present[entry.Name()] = struct{}{}
	}

	m := new(Manifest)

	for _, name := range RecognizedFiles() {
		if _, found := present[name]; !found {
			continue
		}

		version, hasVersion := versions[name]
		if !hasVersion {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingVersion)
		}

		sum := checksums[name]
		if sum == "" {
			if sum, err = FileChecksum(filepath.Join(dir, name)); err != nil {
				return nil, err
			}
		}

		m.put(name, &Entry{
			Filename: name,
			Version:  version,
			MD5Sum:   sum,
		})
	}

	if err = m.save(dir); err != nil {
		return nil, err
	}

	return m, nil
}

// FileChecksum returns the hex-encoded md5 sum of the file contents.
func FileChecksum(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	sum := md5.Sum(contents) //nolint:gosec // See package doc, format requirement.

	return hex.EncodeToString(sum[:]), nil
}

// save serializes the manifest into dir as ASCII JSON with fixed indentation.
func (m *Manifest) save(dir string) error {
	contents, err := json.MarshalIndent(m, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	path := filepath.Join(dir, Filename)
	if err = os.WriteFile(path, contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// put stores an entry under the role matching the canonical filename.
func (m *Manifest) put(name string, entry *Entry) {
	switch name {
	case BootFilename:
		m.Boot = entry
	case UpdaterFilename:
		m.Updater = entry
	case BootloaderFilename:
		m.Bootloader = entry
	}
}
