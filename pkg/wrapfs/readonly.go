package wrapfs

import (
	"context"
	"os"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// ReadOnlyFS rejects every mutating operation before it reaches the
// wrapped filesystem. Reads pass straight through.
type ReadOnlyFS struct {
	*WrapFS
}

// ReadOnly wraps a filesystem in a read-only guard.
func ReadOnly(inner vfs.FS) *ReadOnlyFS {
	return &ReadOnlyFS{WrapFS: New(inner)}
}

func (r *ReadOnlyFS) Meta() vfs.Meta {
	meta := r.WrapFS.Meta()
	meta.ReadOnly = true
	meta.SupportsRename = false
	return meta
}

func (r *ReadOnlyFS) checkMutate(path string) error {
	// Surface closed-state first, like any other operation would.
	if _, _, err := r.resolve(path); err != nil {
		return err
	}
	return fserrors.ReadOnly(path)
}

func (r *ReadOnlyFS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	return r.checkMutate(path)
}

func (r *ReadOnlyFS) Remove(ctx context.Context, path string) error {
	return r.checkMutate(path)
}

func (r *ReadOnlyFS) RemoveDir(ctx context.Context, path string) error {
	return r.checkMutate(path)
}

func (r *ReadOnlyFS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	return r.checkMutate(path)
}

func (r *ReadOnlyFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return r.checkMutate(oldPath)
}

func (r *ReadOnlyFS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	parsed, err := vfs.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	if parsed.Writing() {
		return nil, r.checkMutate(path)
	}
	return r.WrapFS.OpenBin(ctx, path, mode)
}
