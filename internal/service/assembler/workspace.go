package assembler

import (
	"context"
	"fmt"
	"os"

	"github.com/mudita-community/pure-packager/internal/logger"
)

// workspace is the ephemeral staging directory of one assembly run.
// Acquiring it moves the process into a fresh temporary directory and
// remembers the previous working directory; Close restores the previous
// directory and removes the temporary one on every exit path.
type workspace struct {
	root string
	prev string
}

// newWorkspace creates the staging directory and enters it.
func newWorkspace() (*workspace, error) {
	prev, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("remember working directory: %w", err)
	}

	root, err := os.MkdirTemp("", "pure-packager-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	if err = os.Chdir(root); err != nil {
		_ = os.RemoveAll(root)

		return nil, fmt.Errorf("enter staging directory: %w", err)
	}

	return &workspace{
		root: root,
		prev: prev,
	}, nil
}

// Close leaves and removes the staging directory. Restoring the previous
// working directory takes priority over cleanup.
func (w *workspace) Close(ctx context.Context) {
	if err := os.Chdir(w.prev); err != nil {
		logger.WarnKV(ctx, "Could not restore working directory", "path", w.prev, "error", err)
	}

	if err := os.RemoveAll(w.root); err != nil {
		logger.WarnKV(ctx, "Could not remove staging directory", "path", w.root, "error", err)
	}
}
