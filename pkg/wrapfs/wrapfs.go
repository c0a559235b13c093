// Package wrapfs provides filesystems that delegate to another
// filesystem: sub-directory views, a read-only guard, a directory
// scan cache, and an instrumented wrapper that records metrics and
// logs. All of them are built on WrapFS, which owns path translation
// and error rewriting so each wrapper only overrides what it changes.
package wrapfs

import (
	"context"
	"os"
	"sync"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// DelegateFunc maps a wrapper path to the filesystem and path that
// actually serve it.
type DelegateFunc func(path string) (vfs.FS, string, error)

// WrapFS forwards every operation through a DelegateFunc. Errors
// coming back carry inner paths; WrapFS rewrites them so callers only
// ever see their own paths.
type WrapFS struct {
	inner    vfs.FS
	delegate DelegateFunc

	mu     sync.Mutex
	closed bool
}

// New wraps a filesystem one-to-one. On its own it changes nothing;
// it exists to be embedded.
func New(inner vfs.FS) *WrapFS {
	w := &WrapFS{inner: inner}
	w.delegate = func(path string) (vfs.FS, string, error) {
		norm, err := vfs.ValidatePath(inner, path)
		if err != nil {
			return nil, "", err
		}
		return inner, norm, nil
	}
	return w
}

// NewDelegate wraps a filesystem through a custom path translation.
func NewDelegate(inner vfs.FS, delegate DelegateFunc) *WrapFS {
	return &WrapFS{inner: inner, delegate: delegate}
}

// Inner returns the wrapped filesystem.
func (w *WrapFS) Inner() vfs.FS { return w.inner }

func (w *WrapFS) resolve(path string) (vfs.FS, string, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, "", fserrors.Closed()
	}
	return w.delegate(path)
}

func (w *WrapFS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	inf, err := fsys.GetInfo(ctx, innerPath, namespaces...)
	if err != nil {
		return nil, fserrors.ReplacePath(err, path)
	}
	// A wrapper's root is a root in its own right, whatever it is
	// called underneath.
	if norm, err := fspath.Normalize(fspath.Abs(path)); err == nil && norm == "/" && inf.Name() != "" {
		inf = inf.Copy()
		inf.Basic.Name = ""
	}
	return inf, nil
}

func (w *WrapFS) ListDir(ctx context.Context, path string) ([]string, error) {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	names, err := fsys.ListDir(ctx, innerPath)
	if err != nil {
		return nil, fserrors.ReplacePath(err, path)
	}
	return names, nil
}

// ScanDir delegates metadata scans, keeping the inner filesystem's
// single-pass optimization when it has one.
func (w *WrapFS) ScanDir(ctx context.Context, path string, namespaces ...string) ([]*info.Info, error) {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	infos, err := vfs.ScanDir(ctx, fsys, innerPath, namespaces...)
	if err != nil {
		return nil, fserrors.ReplacePath(err, path)
	}
	return infos, nil
}

func (w *WrapFS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return err
	}
	return fserrors.ReplacePath(fsys.MakeDir(ctx, innerPath, perm, recreate), path)
}

func (w *WrapFS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := fsys.OpenBin(ctx, innerPath, mode)
	if err != nil {
		return nil, fserrors.ReplacePath(err, path)
	}
	return f, nil
}

func (w *WrapFS) Remove(ctx context.Context, path string) error {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return err
	}
	return fserrors.ReplacePath(fsys.Remove(ctx, innerPath), path)
}

func (w *WrapFS) RemoveDir(ctx context.Context, path string) error {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return err
	}
	return fserrors.ReplacePath(fsys.RemoveDir(ctx, innerPath), path)
}

func (w *WrapFS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return err
	}
	return fserrors.ReplacePath(fsys.SetInfo(ctx, innerPath, raw), path)
}

// Rename forwards to the inner filesystem's rename when both paths
// resolve to a filesystem that supports it.
func (w *WrapFS) Rename(ctx context.Context, oldPath, newPath string) error {
	fsys, innerOld, err := w.resolve(oldPath)
	if err != nil {
		return err
	}
	_, innerNew, err := w.resolve(newPath)
	if err != nil {
		return err
	}
	renamer, ok := fsys.(vfs.Renamer)
	if !ok || !fsys.Meta().SupportsRename {
		return fserrors.Unsupported("rename")
	}
	return fserrors.ReplacePath(renamer.Rename(ctx, innerOld, innerNew), oldPath)
}

// SysPath forwards to the inner filesystem when it can map paths to
// the host system.
func (w *WrapFS) SysPath(path string) (string, error) {
	fsys, innerPath, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	sp, ok := fsys.(vfs.SysPather)
	if !ok {
		return "", fserrors.Unsupported("syspath")
	}
	return sp.SysPath(innerPath)
}

// Meta reports the inner filesystem's capabilities plus the virtual
// flag.
func (w *WrapFS) Meta() vfs.Meta {
	meta := w.inner.Meta()
	meta.Virtual = true
	return meta
}

// Close closes the wrapper and the wrapped filesystem.
func (w *WrapFS) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.inner.Close()
}

// markClosed closes only the wrapper, for views that do not own the
// inner filesystem.
func (w *WrapFS) markClosed() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}
