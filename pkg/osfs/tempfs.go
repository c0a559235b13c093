package osfs

import (
	"os"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// TempFS is an OSFS over a freshly made temporary directory. Closing
// it deletes the directory and everything inside.
type TempFS struct {
	*OSFS
}

// NewTemp creates a temporary filesystem. The prefix shows up in the
// host directory name, which helps when cleaning up after crashes.
func NewTemp(prefix string) (*TempFS, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fserrors.CreateFailed("unable to create temporary directory", err)
	}
	inner, err := New(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &TempFS{OSFS: inner}, nil
}

func (t *TempFS) Close() error {
	if err := t.OSFS.Close(); err != nil {
		return err
	}
	return os.RemoveAll(t.root)
}
