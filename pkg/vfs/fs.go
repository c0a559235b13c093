// Package vfs defines the filesystem contract and the derived
// operations built on top of it. A backend only implements the FS
// interface; everything else in this package works against that
// interface and is shared by every backend.
package vfs

import (
	"context"
	"io"
	"os"

	"github.com/anyfs/anyfs/pkg/info"
)

// File is an open binary file within a filesystem.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Truncate changes the file size. Extending pads with zero bytes.
	Truncate(size int64) error
}

// Meta describes fixed capabilities of a filesystem. It never changes
// over the life of an instance.
type Meta struct {
	// CaseInsensitive means names differing only in case collide.
	CaseInsensitive bool
	// InvalidPathChars are characters rejected by ValidatePath.
	InvalidPathChars string
	// Network means operations may fail with remote connection errors.
	Network bool
	// ReadOnly means every mutating operation fails.
	ReadOnly bool
	// ThreadSafe means methods may be called concurrently.
	ThreadSafe bool
	// SupportsRename means the backend can rename in place and
	// implements Renamer.
	SupportsRename bool
	// Virtual means the filesystem delegates to another filesystem.
	Virtual bool
}

// FS is the contract every filesystem implements. All paths are in the
// virtual path model of package fspath; implementations normalize
// and validate paths themselves. All methods honor context
// cancellation where the backend can observe it, and return
// fserrors.Closed after Close.
type FS interface {
	// GetInfo returns a metadata snapshot. The basic namespace is
	// always populated; further namespaces only when requested.
	GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error)

	// ListDir returns the names of a directory's entries.
	ListDir(ctx context.Context, path string) ([]string, error)

	// MakeDir creates a directory. The parent must already exist.
	// With recreate set, an existing directory at path is not an
	// error.
	MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error

	// OpenBin opens a file in binary mode. The mode string follows
	// ParseMode; opening for create fails if the parent directory is
	// missing.
	OpenBin(ctx context.Context, path string, mode string) (File, error)

	// Remove deletes a file. Directories are rejected with a
	// file-expected error.
	Remove(ctx context.Context, path string) error

	// RemoveDir deletes an empty directory. The root is never
	// removable.
	RemoveDir(ctx context.Context, path string) error

	// SetInfo updates writable metadata from raw namespace data.
	// Unknown namespaces and keys are ignored.
	SetInfo(ctx context.Context, path string, raw info.Raw) error

	// Meta describes the filesystem's capabilities.
	Meta() Meta

	// Close releases resources. Further use fails; Close is
	// idempotent.
	Close() error
}

// Scanner is an optional upgrade for backends that can list a
// directory with metadata in one pass. ScanDir falls back to ListDir
// plus per-entry GetInfo when a backend does not implement it.
type Scanner interface {
	ScanDir(ctx context.Context, path string, namespaces ...string) ([]*info.Info, error)
}

// Renamer is an optional upgrade for backends that can move an entry
// without copying its data. Move uses it when source and destination
// live on the same filesystem.
type Renamer interface {
	Rename(ctx context.Context, oldPath, newPath string) error
}

// SysPather is an optional upgrade for backends whose resources exist
// on the host filesystem.
type SysPather interface {
	SysPath(path string) (string, error)
}
