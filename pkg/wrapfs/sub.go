package wrapfs

import (
	"context"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// SubFS exposes a directory of another filesystem as a root of its
// own. Paths cannot escape upward: they are normalized before the
// sub-directory prefix is applied. Closing a SubFS does not close the
// parent.
type SubFS struct {
	*WrapFS
	sub         string
	closeParent bool
}

func newSub(ctx context.Context, parent vfs.FS, path string, closeParent bool) (*SubFS, error) {
	sub, err := vfs.ValidatePath(parent, path)
	if err != nil {
		return nil, err
	}
	inf, err := parent.GetInfo(ctx, sub)
	if err != nil {
		return nil, err
	}
	if !inf.IsDir() {
		return nil, fserrors.DirectoryExpected(sub)
	}
	delegate := func(p string) (vfs.FS, string, error) {
		norm, err := vfs.ValidatePath(parent, p)
		if err != nil {
			return nil, "", err
		}
		inner, err := fspath.Join(sub, fspath.Rel(norm))
		if err != nil {
			return nil, "", err
		}
		return parent, inner, nil
	}
	return &SubFS{
		WrapFS:      NewDelegate(parent, delegate),
		sub:         sub,
		closeParent: closeParent,
	}, nil
}

// Sub returns a view rooted at path, which must be an existing
// directory.
func Sub(ctx context.Context, parent vfs.FS, path string) (*SubFS, error) {
	return newSub(ctx, parent, path, false)
}

// ClosingSub is Sub, except closing the view also closes the parent.
// Openers use it to hand out a sub-directory while keeping the parent
// filesystem's lifetime tied to it.
func ClosingSub(ctx context.Context, parent vfs.FS, path string) (*SubFS, error) {
	return newSub(ctx, parent, path, true)
}

// Path returns the location of this view within the parent.
func (s *SubFS) Path() string { return s.sub }

func (s *SubFS) Close() error {
	if s.closeParent {
		return s.WrapFS.Close()
	}
	s.markClosed()
	return nil
}
