package wrapfs

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// CachedDirFS caches directory scans forever. It serves GetInfo from
// a cached scan of the parent directory, making repeated metadata
// lookups over slow transports cheap. The cache is never invalidated,
// so it only suits filesystems that are not changing underneath, for
// example during a bulk download.
type CachedDirFS struct {
	*WrapFS

	mu    sync.Mutex
	scans map[scanKey]*scanResult
}

// scanKey identifies one cached scan: its path and the exact
// namespace set requested, order-independent.
type scanKey struct {
	path       string
	namespaces string
}

type scanResult struct {
	order  []*info.Info
	byName map[string]*info.Info
}

func makeScanKey(path string, namespaces []string) scanKey {
	sorted := append([]string(nil), namespaces...)
	sort.Strings(sorted)
	return scanKey{path: path, namespaces: strings.Join(sorted, ",")}
}

// CacheDirs wraps a filesystem in a directory scan cache.
func CacheDirs(inner vfs.FS) *CachedDirFS {
	return &CachedDirFS{
		WrapFS: New(inner),
		scans:  make(map[scanKey]*scanResult),
	}
}

func (c *CachedDirFS) scanCached(ctx context.Context, path string, namespaces []string) (*scanResult, error) {
	fsys, innerPath, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	key := makeScanKey(innerPath, namespaces)

	c.mu.Lock()
	cached, ok := c.scans[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	infos, err := vfs.ScanDir(ctx, fsys, innerPath, namespaces...)
	if err != nil {
		return nil, fserrors.ReplacePath(err, path)
	}
	result := &scanResult{order: infos, byName: make(map[string]*info.Info, len(infos))}
	for _, inf := range infos {
		result.byName[inf.Name()] = inf
	}
	c.mu.Lock()
	c.scans[key] = result
	c.mu.Unlock()
	return result, nil
}

func (c *CachedDirFS) ScanDir(ctx context.Context, path string, namespaces ...string) ([]*info.Info, error) {
	result, err := c.scanCached(ctx, path, namespaces)
	if err != nil {
		return nil, err
	}
	return append([]*info.Info(nil), result.order...), nil
}

func (c *CachedDirFS) ListDir(ctx context.Context, path string) ([]string, error) {
	result, err := c.scanCached(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.order))
	for _, inf := range result.order {
		names = append(names, inf.Name())
	}
	return names, nil
}

// GetInfo answers from the cached scan of the parent directory. The
// root cannot be served that way and always delegates.
func (c *CachedDirFS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	norm, err := fspath.Normalize(fspath.Abs(path))
	if err != nil {
		return nil, err
	}
	if norm == "/" {
		return c.WrapFS.GetInfo(ctx, path, namespaces...)
	}
	dir, base := fspath.Split(norm)
	result, err := c.scanCached(ctx, dir, namespaces)
	if err != nil {
		return nil, err
	}
	inf, ok := result.byName[base]
	if !ok {
		return nil, fserrors.NotFound(norm)
	}
	return inf, nil
}
