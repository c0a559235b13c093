// Package memfs implements an in-memory filesystem. It is the
// reference backend: fast, thread safe, and faithful to the contract
// in package vfs, which makes it the fixture of choice for tests and
// for staging data before a bulk copy to slower storage.
package memfs

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// entry is one node in the tree. Directories keep children in
// insertion order. File entries outlive their directory link: an open
// handle keeps the entry alive after removal, like an unlinked file
// on a POSIX system.
type entry struct {
	mu       sync.Mutex
	name     string
	dir      bool
	children map[string]*entry
	order    []string
	data     []byte

	created  time.Time
	accessed time.Time
	modified time.Time
}

func newEntry(name string, dir bool) *entry {
	now := time.Now()
	e := &entry{
		name:     name,
		dir:      dir,
		created:  now,
		accessed: now,
		modified: now,
	}
	if dir {
		e.children = make(map[string]*entry)
	}
	return e
}

// link adds a child, keeping insertion order. Caller holds the tree
// lock.
func (e *entry) link(child *entry) {
	e.children[child.name] = child
	e.order = append(e.order, child.name)
}

// unlink removes a child by name. Caller holds the tree lock.
func (e *entry) unlink(name string) {
	delete(e.children, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// MemFS is an in-memory filesystem rooted at "/".
type MemFS struct {
	mu     sync.RWMutex
	root   *entry
	closed bool
}

// New creates an empty in-memory filesystem.
func New() *MemFS {
	return &MemFS{root: newEntry("", true)}
}

func (m *MemFS) Meta() vfs.Meta {
	return vfs.Meta{
		InvalidPathChars: "\x00",
		ThreadSafe:       true,
		SupportsRename:   true,
	}
}

// validate normalizes the path and rejects use after Close. Callers
// must not hold the tree lock.
func (m *MemFS) validate(path string) (string, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return "", fserrors.Closed()
	}
	return vfs.ValidatePath(m, path)
}

// find walks the tree to a path. Caller holds the tree lock.
func (m *MemFS) find(path string) *entry {
	current := m.root
	components, err := fspath.Iterate(path)
	if err != nil {
		return nil
	}
	for _, component := range components {
		if !current.dir {
			return nil
		}
		next, ok := current.children[component]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// findParent resolves the directory containing path. Caller holds the
// tree lock.
func (m *MemFS) findParent(path string) (*entry, string, error) {
	dir, base := fspath.Split(path)
	parent := m.find(dir)
	if parent == nil || !parent.dir {
		return nil, "", fserrors.NotFound(path)
	}
	return parent, base, nil
}

func (m *MemFS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	norm, err := m.validate(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.find(norm)
	if e == nil {
		return nil, fserrors.NotFound(norm)
	}
	return e.snapshot(namespaces), nil
}

// snapshot builds an Info from an entry. Caller holds the tree lock.
func (e *entry) snapshot(namespaces []string) *info.Info {
	inf := &info.Info{Basic: info.Basic{Name: e.name, IsDir: e.dir}}
	if info.Requested(namespaces, info.NamespaceDetails) {
		e.mu.Lock()
		typ := info.TypeFile
		var size int64
		if e.dir {
			typ = info.TypeDirectory
		} else {
			size = int64(len(e.data))
		}
		inf.Details = &info.Details{
			Type:     typ,
			Size:     size,
			Accessed: e.accessed,
			Modified: e.modified,
			Created:  e.created,
			Writable: []string{"accessed", "modified"},
		}
		e.mu.Unlock()
	}
	return inf
}

func (m *MemFS) ListDir(ctx context.Context, path string) ([]string, error) {
	norm, err := m.validate(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.find(norm)
	if e == nil {
		return nil, fserrors.NotFound(norm)
	}
	if !e.dir {
		return nil, fserrors.DirectoryExpected(norm)
	}
	return append([]string(nil), e.order...), nil
}

// ScanDir lists a directory with metadata in a single pass over the
// tree.
func (m *MemFS) ScanDir(ctx context.Context, path string, namespaces ...string) ([]*info.Info, error) {
	norm, err := m.validate(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.find(norm)
	if e == nil {
		return nil, fserrors.NotFound(norm)
	}
	if !e.dir {
		return nil, fserrors.DirectoryExpected(norm)
	}
	infos := make([]*info.Info, 0, len(e.order))
	for _, name := range e.order {
		infos = append(infos, e.children[name].snapshot(namespaces))
	}
	return infos, nil
}

func (m *MemFS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	norm, err := m.validate(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if norm == "/" {
		if recreate {
			return nil
		}
		return fserrors.DirectoryExists(norm)
	}
	parent, base, err := m.findParent(norm)
	if err != nil {
		return err
	}
	if existing, ok := parent.children[base]; ok {
		if !recreate {
			return fserrors.DirectoryExists(norm)
		}
		if !existing.dir {
			return fserrors.DirectoryExpected(norm)
		}
		return nil
	}
	parent.link(newEntry(base, true))
	return nil
}

func (m *MemFS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	parsed, err := vfs.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	norm, err := m.validate(path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, base, err := m.findParent(norm)
	if err != nil {
		return nil, err
	}
	if base == "" {
		return nil, fserrors.FileExpected(norm)
	}
	e, exists := parent.children[base]
	switch {
	case exists && parsed.Exclusive():
		return nil, fserrors.FileExists(norm)
	case exists && e.dir:
		return nil, fserrors.FileExpected(norm)
	case !exists && !parsed.Create():
		return nil, fserrors.NotFound(norm)
	case !exists:
		e = newEntry(base, false)
		parent.link(e)
	}
	f := &memFile{e: e, mode: parsed}
	e.mu.Lock()
	if parsed.Truncate() {
		e.data = nil
		e.modified = time.Now()
	}
	if parsed.Appending() {
		f.pos = int64(len(e.data))
	}
	e.mu.Unlock()
	return f, nil
}

func (m *MemFS) Remove(ctx context.Context, path string) error {
	norm, err := m.validate(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(norm)
	if e == nil {
		return fserrors.NotFound(norm)
	}
	if e.dir {
		return fserrors.FileExpected(norm)
	}
	parent, base, err := m.findParent(norm)
	if err != nil {
		return err
	}
	// Open handles keep the entry itself alive; only the link goes.
	parent.unlink(base)
	return nil
}

func (m *MemFS) RemoveDir(ctx context.Context, path string) error {
	norm, err := m.validate(path)
	if err != nil {
		return err
	}
	if norm == "/" {
		return fserrors.RemoveRoot()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(norm)
	if e == nil {
		return fserrors.NotFound(norm)
	}
	if !e.dir {
		return fserrors.DirectoryExpected(norm)
	}
	if len(e.children) > 0 {
		return fserrors.DirectoryNotEmpty(norm)
	}
	parent, base, err := m.findParent(norm)
	if err != nil {
		return err
	}
	parent.unlink(base)
	return nil
}

func (m *MemFS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	norm, err := m.validate(path)
	if err != nil {
		return err
	}
	m.mu.RLock()
	e := m.find(norm)
	m.mu.RUnlock()
	if e == nil {
		return fserrors.NotFound(norm)
	}
	details, ok := raw["details"]
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := asTime(details["accessed"]); ok {
		e.accessed = t
	}
	if t, ok := asTime(details["modified"]); ok {
		e.modified = t
	}
	return nil
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

// Rename re-links an entry under a new parent and name. No data is
// copied, so moving a large file is constant time.
func (m *MemFS) Rename(ctx context.Context, oldPath, newPath string) error {
	oldNorm, err := m.validate(oldPath)
	if err != nil {
		return err
	}
	newNorm, err := m.validate(newPath)
	if err != nil {
		return err
	}
	if oldNorm == "/" {
		return fserrors.RemoveRoot()
	}
	if oldNorm != newNorm && fspath.IsParent(oldNorm, newNorm) {
		return fserrors.ResourceInvalid(newNorm)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	oldParent, oldBase, err := m.findParent(oldNorm)
	if err != nil {
		return err
	}
	e, ok := oldParent.children[oldBase]
	if !ok {
		return fserrors.NotFound(oldNorm)
	}
	newParent, newBase, err := m.findParent(newNorm)
	if err != nil {
		return err
	}
	if newBase == "" {
		return fserrors.ResourceInvalid(newNorm)
	}
	if _, exists := newParent.children[newBase]; exists {
		return fserrors.DestinationExists(newNorm)
	}
	oldParent.unlink(oldBase)
	e.name = newBase
	newParent.link(e)
	return nil
}

func (m *MemFS) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
