package vfs

import (
	"context"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/wildcard"
)

// Derived operations. Every function here is written purely in terms
// of the FS interface (plus the optional upgrade interfaces), so all
// backends get them for free.

// ValidatePath checks a path against the filesystem's invalid
// characters and returns its normalized absolute form.
func ValidatePath(fsys FS, path string) (string, error) {
	meta := fsys.Meta()
	for _, c := range meta.InvalidPathChars {
		for _, p := range path {
			if p == c {
				return "", fserrors.InvalidChars(path)
			}
		}
	}
	return fspath.Normalize(fspath.Abs(path))
}

// Exists reports whether a resource exists. A missing resource is not
// an error; any other failure is.
func Exists(ctx context.Context, fsys FS, path string) (bool, error) {
	_, err := fsys.GetInfo(ctx, path)
	if err != nil {
		if fserrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsDir reports whether path names a directory. Missing paths report
// false.
func IsDir(ctx context.Context, fsys FS, path string) (bool, error) {
	inf, err := fsys.GetInfo(ctx, path)
	if err != nil {
		if fserrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return inf.IsDir(), nil
}

// IsFile reports whether path names a file. Missing paths report
// false.
func IsFile(ctx context.Context, fsys FS, path string) (bool, error) {
	inf, err := fsys.GetInfo(ctx, path)
	if err != nil {
		if fserrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return inf.IsFile(), nil
}

// IsEmpty reports whether a directory has no entries, or a file has
// zero size.
func IsEmpty(ctx context.Context, fsys FS, path string) (bool, error) {
	inf, err := fsys.GetInfo(ctx, path)
	if err != nil {
		return false, err
	}
	if inf.IsDir() {
		names, err := fsys.ListDir(ctx, path)
		if err != nil {
			return false, err
		}
		return len(names) == 0, nil
	}
	size, err := Size(ctx, fsys, path)
	if err != nil {
		return false, err
	}
	return size == 0, nil
}

// Size returns the size of a file in bytes.
func Size(ctx context.Context, fsys FS, path string) (int64, error) {
	inf, err := fsys.GetInfo(ctx, path, info.NamespaceDetails)
	if err != nil {
		return 0, err
	}
	return inf.Size()
}

// ReadBytes returns the full contents of a file.
func ReadBytes(ctx context.Context, fsys FS, path string) ([]byte, error) {
	f, err := fsys.OpenBin(ctx, path, "rb")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// WriteBytes replaces the contents of a file, creating it if needed.
func WriteBytes(ctx context.Context, fsys FS, path string, data []byte) error {
	f, err := fsys.OpenBin(ctx, path, "wb")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AppendBytes appends data to a file, creating it if needed.
func AppendBytes(ctx context.Context, fsys FS, path string, data []byte) error {
	f, err := fsys.OpenBin(ctx, path, "ab")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadText returns the contents of a file as a string. The bytes must
// be valid UTF-8.
func ReadText(ctx context.Context, fsys FS, path string) (string, error) {
	data, err := ReadBytes(ctx, fsys, path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &fserrors.Error{
			Code: fserrors.CodeResourceInvalid,
			Path: path,
			Msg:  "file '" + path + "' is not valid UTF-8",
		}
	}
	return string(data), nil
}

// WriteText replaces the contents of a file with a string.
func WriteText(ctx context.Context, fsys FS, path, text string) error {
	return WriteBytes(ctx, fsys, path, []byte(text))
}

// AppendText appends a string to a file.
func AppendText(ctx context.Context, fsys FS, path, text string) error {
	return AppendBytes(ctx, fsys, path, []byte(text))
}

// Create makes an empty file. With wipe unset an existing file is
// left alone; the return value reports whether a file was written.
func Create(ctx context.Context, fsys FS, path string, wipe bool) (bool, error) {
	if !wipe {
		exists, err := Exists(ctx, fsys, path)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	f, err := fsys.OpenBin(ctx, path, "wb")
	if err != nil {
		return false, err
	}
	return true, f.Close()
}

// Touch sets a file's access and modification times to now, creating
// an empty file if it does not exist.
func Touch(ctx context.Context, fsys FS, path string) error {
	now := time.Now()
	err := SetTimes(ctx, fsys, path, now, now)
	if fserrors.IsNotFound(err) {
		_, err = Create(ctx, fsys, path, false)
	}
	return err
}

// SetTimes updates a resource's access and modification times through
// SetInfo.
func SetTimes(ctx context.Context, fsys FS, path string, accessed, modified time.Time) error {
	return fsys.SetInfo(ctx, path, info.Raw{
		"details": {
			"accessed": accessed,
			"modified": modified,
		},
	})
}

// ScanDir lists a directory with metadata. Backends implementing
// Scanner serve it in one pass; otherwise it falls back to ListDir
// plus a GetInfo per entry.
func ScanDir(ctx context.Context, fsys FS, path string, namespaces ...string) ([]*info.Info, error) {
	if scanner, ok := fsys.(Scanner); ok {
		return scanner.ScanDir(ctx, path, namespaces...)
	}
	names, err := fsys.ListDir(ctx, path)
	if err != nil {
		return nil, err
	}
	infos := make([]*info.Info, 0, len(names))
	for _, name := range names {
		child, err := fspath.Join(path, name)
		if err != nil {
			return nil, err
		}
		inf, err := fsys.GetInfo(ctx, child, namespaces...)
		if err != nil {
			return nil, err
		}
		infos = append(infos, inf)
	}
	return infos, nil
}

// FilterOptions narrows a directory scan by resource kind and
// wildcard patterns.
type FilterOptions struct {
	// Files keeps only files matching one of these patterns.
	Files []string
	// Dirs keeps only directories matching one of these patterns.
	Dirs []string
	// ExcludeFiles drops files matching one of these patterns.
	ExcludeFiles []string
	// ExcludeDirs drops directories matching one of these patterns.
	ExcludeDirs []string
	// Namespaces are passed through to the scan.
	Namespaces []string
}

// FilterDir scans a directory and keeps entries passing the filter.
func FilterDir(ctx context.Context, fsys FS, path string, opts FilterOptions) ([]*info.Info, error) {
	infos, err := ScanDir(ctx, fsys, path, opts.Namespaces...)
	if err != nil {
		return nil, err
	}
	caseSensitive := !fsys.Meta().CaseInsensitive
	filtered := infos[:0]
	for _, inf := range infos {
		name := inf.Name()
		if inf.IsDir() {
			if opts.Dirs != nil && !wildcard.Matcher(opts.Dirs, caseSensitive)(name) {
				continue
			}
			if len(opts.ExcludeDirs) > 0 && wildcard.Matcher(opts.ExcludeDirs, caseSensitive)(name) {
				continue
			}
		} else {
			if opts.Files != nil && !wildcard.Matcher(opts.Files, caseSensitive)(name) {
				continue
			}
			if len(opts.ExcludeFiles) > 0 && wildcard.Matcher(opts.ExcludeFiles, caseSensitive)(name) {
				continue
			}
		}
		filtered = append(filtered, inf)
	}
	return filtered, nil
}

// Match tests a name against wildcard patterns using the filesystem's
// case sensitivity. A nil pattern list matches everything.
func Match(fsys FS, patterns []string, name string) bool {
	return wildcard.Matcher(patterns, !fsys.Meta().CaseInsensitive)(name)
}

// MakeDirs creates a directory and any missing ancestors. With
// recreate unset it is an error if the final directory already
// exists.
func MakeDirs(ctx context.Context, fsys FS, path string, perm os.FileMode, recreate bool) error {
	norm, err := ValidatePath(fsys, path)
	if err != nil {
		return err
	}
	paths, err := fspath.Recurse(norm)
	if err != nil {
		return err
	}
	for i, p := range paths {
		if p == "/" {
			if len(paths) == 1 && !recreate {
				return fserrors.DirectoryExists("/")
			}
			continue
		}
		last := i == len(paths)-1
		if err := fsys.MakeDir(ctx, p, perm, !last || recreate); err != nil {
			return err
		}
	}
	return nil
}

// RemoveTree deletes a directory and everything below it, depth
// first. Removing "/" empties the filesystem but keeps the root.
func RemoveTree(ctx context.Context, fsys FS, path string) error {
	norm, err := ValidatePath(fsys, path)
	if err != nil {
		return err
	}
	inf, err := fsys.GetInfo(ctx, norm)
	if err != nil {
		return err
	}
	if !inf.IsDir() {
		return fserrors.DirectoryExpected(norm)
	}

	// First pass collects directories top-down and removes files as
	// they are found; second pass removes directories bottom-up.
	stack := []string{norm}
	var dirs []string
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dirs = append(dirs, p)
		entries, err := ScanDir(ctx, fsys, p)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			child := entry.MakePath(p)
			if entry.IsDir() {
				stack = append(stack, child)
			} else if err := fsys.Remove(ctx, child); err != nil {
				return err
			}
		}
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if dirs[i] == "/" {
			continue
		}
		if err := fsys.RemoveDir(ctx, dirs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Copy duplicates a file within one filesystem. With overwrite unset
// an existing destination is an error.
func Copy(ctx context.Context, fsys FS, src, dst string, overwrite bool) error {
	if !overwrite {
		exists, err := Exists(ctx, fsys, dst)
		if err != nil {
			return err
		}
		if exists {
			return fserrors.DestinationExists(dst)
		}
	}
	inf, err := fsys.GetInfo(ctx, src)
	if err != nil {
		return err
	}
	if inf.IsDir() {
		return fserrors.FileExpected(src)
	}
	in, err := fsys.OpenBin(ctx, src, "rb")
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := fsys.OpenBin(ctx, dst, "wb")
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Move relocates a file within one filesystem. Backends that support
// renaming do it in place; otherwise the file is copied and the
// source removed.
func Move(ctx context.Context, fsys FS, src, dst string, overwrite bool) error {
	if !overwrite {
		exists, err := Exists(ctx, fsys, dst)
		if err != nil {
			return err
		}
		if exists {
			return fserrors.DestinationExists(dst)
		}
	}
	inf, err := fsys.GetInfo(ctx, src)
	if err != nil {
		return err
	}
	if inf.IsDir() {
		return fserrors.FileExpected(src)
	}
	if renamer, ok := fsys.(Renamer); ok && fsys.Meta().SupportsRename {
		if overwrite {
			// Renames refuse to clobber, so clear the target first.
			if exists, err := Exists(ctx, fsys, dst); err != nil {
				return err
			} else if exists {
				if err := fsys.Remove(ctx, dst); err != nil {
					return err
				}
			}
		}
		if err := renamer.Rename(ctx, src, dst); err == nil {
			return nil
		}
		// Fall through to copy and delete.
	}
	if err := Copy(ctx, fsys, src, dst, overwrite); err != nil {
		return err
	}
	return fsys.Remove(ctx, src)
}
