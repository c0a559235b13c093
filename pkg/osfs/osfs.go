// Package osfs exposes a directory of the host filesystem through the
// vfs contract. Virtual paths are translated to host paths under a
// fixed root; nothing outside the root is reachable.
package osfs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// OSFS is a filesystem rooted at a host directory.
type OSFS struct {
	root string

	mu     sync.Mutex
	closed bool
}

// New opens an existing host directory as a filesystem root.
func New(root string) (*OSFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.CreateFailed("unable to resolve root '"+root+"'", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fserrors.CreateFailed("unable to open root '"+root+"'", err)
	}
	if !fi.IsDir() {
		return nil, fserrors.CreateFailed("root '"+root+"' is not a directory", nil)
	}
	return &OSFS{root: abs}, nil
}

// NewCreate is New, creating the root directory first if needed.
func NewCreate(root string, perm os.FileMode) (*OSFS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.CreateFailed("unable to resolve root '"+root+"'", err)
	}
	if err := os.MkdirAll(abs, perm); err != nil {
		return nil, fserrors.CreateFailed("unable to create root '"+root+"'", err)
	}
	return &OSFS{root: abs}, nil
}

// Root returns the host directory backing this filesystem.
func (o *OSFS) Root() string { return o.root }

func (o *OSFS) Meta() vfs.Meta {
	return vfs.Meta{
		CaseInsensitive:  runtime.GOOS == "darwin" || runtime.GOOS == "windows",
		InvalidPathChars: "\x00",
		ThreadSafe:       true,
		SupportsRename:   true,
	}
}

func (o *OSFS) validate(path string) (string, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return "", fserrors.Closed()
	}
	return vfs.ValidatePath(o, path)
}

// SysPath maps a virtual path to its host path.
func (o *OSFS) SysPath(path string) (string, error) {
	norm, err := o.validate(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm))), nil
}

// translate converts host filesystem errors into the taxonomy.
func translate(err error, path, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fserrors.NotFound(path)
	case errors.Is(err, fs.ErrPermission):
		return fserrors.PermissionDenied(op, err)
	case errors.Is(err, syscall.ENOTEMPTY):
		return fserrors.DirectoryNotEmpty(path)
	case errors.Is(err, syscall.EISDIR):
		return fserrors.FileExpected(path)
	case errors.Is(err, syscall.ENOTDIR):
		return fserrors.DirectoryExpected(path)
	case errors.Is(err, syscall.ENOSPC):
		return fserrors.InsufficientStorage(op, err)
	default:
		return err
	}
}

var permNames = []struct {
	bit  os.FileMode
	name string
}{
	{0o400, "u_r"}, {0o200, "u_w"}, {0o100, "u_x"},
	{0o040, "g_r"}, {0o020, "g_w"}, {0o010, "g_x"},
	{0o004, "o_r"}, {0o002, "o_w"}, {0o001, "o_x"},
}

func permissions(mode os.FileMode) []string {
	var perms []string
	for _, p := range permNames {
		if mode&p.bit != 0 {
			perms = append(perms, p.name)
		}
	}
	return perms
}

func resourceType(mode os.FileMode) info.ResourceType {
	switch {
	case mode.IsDir():
		return info.TypeDirectory
	case mode&os.ModeSymlink != 0:
		return info.TypeSymlink
	case mode&os.ModeNamedPipe != 0:
		return info.TypeFIFO
	case mode&os.ModeSocket != 0:
		return info.TypeSocket
	case mode&os.ModeCharDevice != 0:
		return info.TypeCharacter
	case mode&os.ModeDevice != 0:
		return info.TypeBlockSpecial
	case mode.IsRegular():
		return info.TypeFile
	default:
		return info.TypeUnknown
	}
}

func (o *OSFS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	norm, err := o.validate(path)
	if err != nil {
		return nil, err
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	fi, err := os.Lstat(sys)
	if err != nil {
		return nil, translate(err, norm, "getinfo")
	}
	name := fspath.Basename(norm)
	if norm == "/" {
		name = ""
	}
	inf := &info.Info{Basic: info.Basic{Name: name, IsDir: fi.IsDir()}}
	if info.Requested(namespaces, info.NamespaceDetails) {
		var size int64
		if !fi.IsDir() {
			size = fi.Size()
		}
		inf.Details = &info.Details{
			Type:     resourceType(fi.Mode()),
			Size:     size,
			Modified: fi.ModTime(),
			Writable: []string{"accessed", "modified"},
		}
	}
	if info.Requested(namespaces, info.NamespaceAccess) {
		inf.Access = &info.Access{Permissions: permissions(fi.Mode())}
	}
	if info.Requested(namespaces, info.NamespaceLink) && fi.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(sys); err == nil {
			inf.Link = &info.Link{Target: target}
		}
	}
	return inf, nil
}

func (o *OSFS) ListDir(ctx context.Context, path string) ([]string, error) {
	sys, err := o.SysPath(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(sys)
	if err != nil {
		return nil, translate(err, fspath.Abs(path), "listdir")
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (o *OSFS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	norm, err := o.validate(path)
	if err != nil {
		return err
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	if norm == "/" {
		if recreate {
			return nil
		}
		return fserrors.DirectoryExists(norm)
	}
	err = os.Mkdir(sys, perm)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if !recreate {
			return fserrors.DirectoryExists(norm)
		}
		if fi, statErr := os.Stat(sys); statErr == nil && fi.IsDir() {
			return nil
		}
		return fserrors.DirectoryExpected(norm)
	}
	return translate(err, norm, "makedir")
}

func (o *OSFS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	parsed, err := vfs.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	norm, err := o.validate(path)
	if err != nil {
		return nil, err
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	if fi, statErr := os.Stat(sys); statErr == nil && fi.IsDir() {
		return nil, fserrors.FileExpected(norm)
	}

	flag := os.O_RDONLY
	switch {
	case parsed.Reading() && parsed.Writing():
		flag = os.O_RDWR
	case parsed.Writing():
		flag = os.O_WRONLY
	}
	if parsed.Create() {
		flag |= os.O_CREATE
	}
	if parsed.Exclusive() {
		flag |= os.O_EXCL
	}
	if parsed.Truncate() {
		flag |= os.O_TRUNC
	}
	if parsed.Appending() {
		flag |= os.O_APPEND
	}
	f, err := os.OpenFile(sys, flag, 0o666)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fserrors.FileExists(norm)
		}
		return nil, translate(err, norm, "openbin")
	}
	return f, nil
}

func (o *OSFS) Remove(ctx context.Context, path string) error {
	norm, err := o.validate(path)
	if err != nil {
		return err
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	fi, err := os.Lstat(sys)
	if err != nil {
		return translate(err, norm, "remove")
	}
	if fi.IsDir() {
		return fserrors.FileExpected(norm)
	}
	return translate(os.Remove(sys), norm, "remove")
}

func (o *OSFS) RemoveDir(ctx context.Context, path string) error {
	norm, err := o.validate(path)
	if err != nil {
		return err
	}
	if norm == "/" {
		return fserrors.RemoveRoot()
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	fi, err := os.Lstat(sys)
	if err != nil {
		return translate(err, norm, "removedir")
	}
	if !fi.IsDir() {
		return fserrors.DirectoryExpected(norm)
	}
	return translate(os.Remove(sys), norm, "removedir")
}

func (o *OSFS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	norm, err := o.validate(path)
	if err != nil {
		return err
	}
	sys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(norm)))
	fi, err := os.Stat(sys)
	if err != nil {
		return translate(err, norm, "setinfo")
	}
	details, ok := raw["details"]
	if !ok {
		return nil
	}
	accessed, hasAccessed := asTime(details["accessed"])
	modified, hasModified := asTime(details["modified"])
	if !hasAccessed && !hasModified {
		return nil
	}
	if !hasAccessed {
		accessed = time.Now()
	}
	if !hasModified {
		modified = fi.ModTime()
	}
	return translate(os.Chtimes(sys, accessed, modified), norm, "setinfo")
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case int64:
		return time.Unix(t, 0), true
	case int:
		return time.Unix(int64(t), 0), true
	case float64:
		sec := int64(t)
		return time.Unix(sec, int64((t-float64(sec))*1e9)), true
	default:
		return time.Time{}, false
	}
}

// Rename moves an entry with the host's rename. An existing
// destination is refused for parity with other backends.
func (o *OSFS) Rename(ctx context.Context, oldPath, newPath string) error {
	oldNorm, err := o.validate(oldPath)
	if err != nil {
		return err
	}
	newNorm, err := o.validate(newPath)
	if err != nil {
		return err
	}
	oldSys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(oldNorm)))
	newSys := filepath.Join(o.root, filepath.FromSlash(fspath.Rel(newNorm)))
	if _, err := os.Lstat(newSys); err == nil {
		return fserrors.DestinationExists(newNorm)
	}
	return translate(os.Rename(oldSys, newSys), oldNorm, "rename")
}

func (o *OSFS) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}
