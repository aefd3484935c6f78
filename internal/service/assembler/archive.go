package assembler

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mudita-community/pure-packager/internal/manifest"
)

// createArchive writes an uncompressed tar archive called name inside dir,
// containing every regular file currently in dir. Creation fails with
// ErrArchiveExists when a file of that name is already there. Entries are
// added in lexical order for deterministic output.
func createArchive(dir, name string) error {
	out, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, manifest.DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", name, ErrArchiveExists)
		}

		return fmt.Errorf("create archive: %w", err)
	}

	tw := tar.NewWriter(out)

	// os.ReadDir returns entries sorted by name.
	entries, err := os.ReadDir(dir)
	if err != nil {
		_ = out.Close()

		return fmt.Errorf("read staging directory: %w", err)
	}

	for _, entry := range entries {
		// The archive itself is already present in the listing.
		if entry.Name() == name || !entry.Type().IsRegular() {
			continue
		}

		if err = addArchiveEntry(tw, dir, entry.Name()); err != nil {
			_ = tw.Close()
			_ = out.Close()

			return err
		}
	}

	if err = tw.Close(); err != nil {
		_ = out.Close()

		return fmt.Errorf("finalize archive: %w", err)
	}

	return out.Close()
}

// addArchiveEntry appends one regular file to the tar stream.
func addArchiveEntry(tw *tar.Writer, dir, name string) error {
	path := filepath.Join(dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("archive header for %s: %w", name, err)
	}

	header.Name = name

	if err = tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write archive header for %s: %w", name, err)
	}

	in, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	if _, err = io.Copy(tw, in); err != nil {
		_ = in.Close()

		return fmt.Errorf("archive %s: %w", name, err)
	}

	return in.Close()
}
