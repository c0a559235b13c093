package fscopy

import (
	"context"
	"io"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
	"github.com/anyfs/anyfs/pkg/walk"
)

// CopyFile copies a single file from srcFS to dstFS, overwriting any
// existing destination file. On the same filesystem it defers to the
// filesystem's own copy path; across filesystems it streams bytes
// through the caller.
func CopyFile(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string, preserveTime bool) error {
	if srcFS == dstFS {
		if err := vfs.Copy(ctx, srcFS, src, dst, true); err != nil {
			return err
		}
		if preserveTime {
			copyTimes(ctx, srcFS, src, dstFS, dst)
		}
		return nil
	}

	inf, err := srcFS.GetInfo(ctx, src)
	if err != nil {
		return err
	}
	if inf.IsDir() {
		return fserrors.FileExpected(src)
	}

	r, err := srcFS.OpenBin(ctx, src, "rb")
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := dstFS.OpenBin(ctx, dst, "wb")
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if preserveTime {
		copyTimes(ctx, srcFS, src, dstFS, dst)
	}
	return nil
}

// copyTimes carries source timestamps to the destination on a best
// effort basis. Backends without timestamp support are left alone.
func copyTimes(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string) {
	inf, err := srcFS.GetInfo(ctx, src, info.NamespaceDetails)
	if err != nil || inf.Details == nil {
		return
	}
	modified := inf.Details.Modified
	if modified.IsZero() {
		return
	}
	accessed := inf.Details.Accessed
	if accessed.IsZero() {
		accessed = modified
	}
	_ = vfs.SetTimes(ctx, dstFS, dst, accessed, modified)
}

// rebase maps a source path under srcRoot to the corresponding path
// under dstRoot.
func rebase(srcRoot, dstRoot, path string) string {
	suffix, err := fspath.FromBase(srcRoot, path)
	if err != nil || fspath.Rel(suffix) == "" {
		return dstRoot
	}
	return fspath.Combine(dstRoot, fspath.Rel(suffix))
}

// CopyDir copies the tree rooted at src on srcFS into dst on dstFS.
// Directories are created in walk order on the caller; file transfers
// run on a pool of workers. Task failures are aggregated into the
// returned error.
func CopyDir(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string, workers int, opts ...Option) error {
	srcRoot, err := vfs.ValidatePath(srcFS, src)
	if err != nil {
		return err
	}
	dstRoot, err := vfs.ValidatePath(dstFS, dst)
	if err != nil {
		return err
	}
	inf, err := srcFS.GetInfo(ctx, srcRoot)
	if err != nil {
		return err
	}
	if !inf.IsDir() {
		return fserrors.DirectoryExpected(srcRoot)
	}
	if err := vfs.MakeDirs(ctx, dstFS, dstRoot, 0o755, true); err != nil {
		return err
	}

	copier, err := NewCopier(workers, opts...)
	if err != nil {
		return err
	}
	walkErr := walk.Walk(ctx, srcFS, srcRoot, func(step walk.Step) error {
		for _, dir := range step.Dirs {
			target := rebase(srcRoot, dstRoot, dir.MakePath(step.Path))
			if err := dstFS.MakeDir(ctx, target, 0o755, true); err != nil {
				return err
			}
		}
		for _, file := range step.Files {
			srcPath := file.MakePath(step.Path)
			if err := copier.Copy(ctx, srcFS, srcPath, dstFS, rebase(srcRoot, dstRoot, srcPath)); err != nil {
				return err
			}
		}
		return nil
	})
	closeErr := copier.Close()
	if walkErr != nil {
		return walkErr
	}
	return closeErr
}

// CopyFS copies the whole of srcFS into dstFS.
func CopyFS(ctx context.Context, srcFS, dstFS vfs.FS, workers int, opts ...Option) error {
	return CopyDir(ctx, srcFS, "/", dstFS, "/", workers, opts...)
}

// CopyStructure recreates the directory tree of srcFS under dstFS
// without copying any file contents.
func CopyStructure(ctx context.Context, srcFS, dstFS vfs.FS, srcRoot, dstRoot string) error {
	srcNorm, err := vfs.ValidatePath(srcFS, srcRoot)
	if err != nil {
		return err
	}
	dstNorm, err := vfs.ValidatePath(dstFS, dstRoot)
	if err != nil {
		return err
	}
	if err := vfs.MakeDirs(ctx, dstFS, dstNorm, 0o755, true); err != nil {
		return err
	}
	return walk.Walk(ctx, srcFS, srcNorm, func(step walk.Step) error {
		for _, dir := range step.Dirs {
			target := rebase(srcNorm, dstNorm, dir.MakePath(step.Path))
			if err := dstFS.MakeDir(ctx, target, 0o755, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveFile moves a single file, renaming where the filesystem supports
// it and falling back to copy-then-delete otherwise.
func MoveFile(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string) error {
	if srcFS == dstFS {
		return vfs.Move(ctx, srcFS, src, dst, true)
	}
	if err := CopyFile(ctx, srcFS, src, dstFS, dst, true); err != nil {
		return err
	}
	return srcFS.Remove(ctx, src)
}

// MoveDir moves a directory tree, copying it to the destination and
// then removing the source.
func MoveDir(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string, workers int, opts ...Option) error {
	if err := CopyDir(ctx, srcFS, src, dstFS, dst, workers, opts...); err != nil {
		return err
	}
	return vfs.RemoveTree(ctx, srcFS, src)
}

// MoveFS moves the whole contents of srcFS into dstFS, emptying the
// source.
func MoveFS(ctx context.Context, srcFS, dstFS vfs.FS, workers int, opts ...Option) error {
	return MoveDir(ctx, srcFS, "/", dstFS, "/", workers, opts...)
}
