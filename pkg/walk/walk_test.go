package walk_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/memfs"
	"github.com/anyfs/anyfs/pkg/vfs"
	"github.com/anyfs/anyfs/pkg/walk"
)

// buildTree creates:
//
//	/a.txt
//	/sub1/b.txt
//	/sub1/deep/c.log
//	/sub2/d.txt
func buildTree(t *testing.T) *memfs.MemFS {
	t.Helper()
	ctx := context.Background()
	fsys := memfs.New()
	t.Cleanup(func() { fsys.Close() })

	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/sub1/deep", 0o755, false))
	require.NoError(t, fsys.MakeDir(ctx, "/sub2", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/a.txt", []byte("a")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/sub1/b.txt", []byte("b")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/sub1/deep/c.log", []byte("c")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/sub2/d.txt", []byte("d")))
	return fsys
}

func stepPaths(t *testing.T, w *walk.Walker, fsys vfs.FS) []string {
	t.Helper()
	var paths []string
	err := w.Walk(context.Background(), fsys, "/", func(step walk.Step) error {
		paths = append(paths, step.Path)
		return nil
	})
	require.NoError(t, err)
	return paths
}

func TestBreadthOrder(t *testing.T) {
	fsys := buildTree(t)
	w, err := walk.NewWalker(&walk.Config{Search: walk.SearchBreadth})
	require.NoError(t, err)

	paths := stepPaths(t, w, fsys)
	assert.Equal(t, []string{"/", "/sub1", "/sub2", "/sub1/deep"}, paths)
}

func TestDepthOrderReportsChildrenFirst(t *testing.T) {
	fsys := buildTree(t)
	w, err := walk.NewWalker(&walk.Config{Search: walk.SearchDepth})
	require.NoError(t, err)

	paths := stepPaths(t, w, fsys)
	idx := func(p string) int {
		for i, v := range paths {
			if v == p {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx("/sub1/deep"), idx("/sub1"))
	assert.Less(t, idx("/sub1"), idx("/"))
	assert.Len(t, paths, 4)
}

func TestBothOrdersVisitSameSet(t *testing.T) {
	fsys := buildTree(t)
	ctx := context.Background()

	collect := func(search walk.Search) []string {
		w, err := walk.NewWalker(&walk.Config{Search: search})
		require.NoError(t, err)
		files, err := w.Files(ctx, fsys, "/")
		require.NoError(t, err)
		sort.Strings(files)
		return files
	}
	assert.Equal(t, collect(walk.SearchBreadth), collect(walk.SearchDepth))
	assert.Equal(t,
		[]string{"/a.txt", "/sub1/b.txt", "/sub1/deep/c.log", "/sub2/d.txt"},
		collect(walk.SearchBreadth))
}

func TestFileFilter(t *testing.T) {
	fsys := buildTree(t)
	w, err := walk.NewWalker(&walk.Config{Filter: []string{"*.txt"}})
	require.NoError(t, err)

	files, err := w.Files(context.Background(), fsys, "/")
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"/a.txt", "/sub1/b.txt", "/sub2/d.txt"}, files)
}

func TestExcludeDirsPrunes(t *testing.T) {
	fsys := buildTree(t)
	for _, search := range []walk.Search{walk.SearchBreadth, walk.SearchDepth} {
		w, err := walk.NewWalker(&walk.Config{Search: search, ExcludeDirs: []string{"sub1"}})
		require.NoError(t, err)
		files, err := w.Files(context.Background(), fsys, "/")
		require.NoError(t, err)
		sort.Strings(files)
		assert.Equal(t, []string{"/a.txt", "/sub2/d.txt"}, files, search)
	}
}

func TestMaxDepth(t *testing.T) {
	fsys := buildTree(t)
	for _, search := range []walk.Search{walk.SearchBreadth, walk.SearchDepth} {
		w, err := walk.NewWalker(&walk.Config{Search: search, MaxDepth: 1})
		require.NoError(t, err)
		paths := stepPaths(t, w, fsys)
		assert.Equal(t, []string{"/"}, paths, search)

		// directories still appear in the root step
		err = w.Walk(context.Background(), fsys, "/", func(step walk.Step) error {
			assert.Len(t, step.Dirs, 2)
			return nil
		})
		require.NoError(t, err)
	}
}

func TestWalkErrors(t *testing.T) {
	fsys := buildTree(t)
	ctx := context.Background()

	w, err := walk.NewWalker(nil)
	require.NoError(t, err)

	err = w.Walk(ctx, fsys, "/missing", func(walk.Step) error { return nil })
	assert.True(t, fserrors.IsNotFound(err))

	err = w.Walk(ctx, fsys, "/a.txt", func(walk.Step) error { return nil })
	assert.True(t, fserrors.IsDirExpected(err))

	_, err = walk.NewWalker(&walk.Config{Search: "sideways"})
	assert.Error(t, err)
}

func TestOnErrorSwallowsScanFailure(t *testing.T) {
	fsys := buildTree(t)
	ctx := context.Background()

	// Remove a directory mid-walk so its scan fails.
	var calls []string
	w, err := walk.NewWalker(&walk.Config{
		OnError: func(path string, err error) bool {
			calls = append(calls, path)
			return true
		},
	})
	require.NoError(t, err)

	err = w.Walk(ctx, fsys, "/", func(step walk.Step) error {
		if step.Path == "/" {
			require.NoError(t, vfs.RemoveTree(ctx, fsys, "/sub1"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, calls, "/sub1")
}

func TestSkipAll(t *testing.T) {
	fsys := buildTree(t)
	count := 0
	err := walk.Walk(context.Background(), fsys, "/", func(step walk.Step) error {
		count++
		return walk.SkipAll
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWalkerInfo(t *testing.T) {
	fsys := buildTree(t)
	w, err := walk.NewWalker(&walk.Config{Namespaces: []string{"details"}})
	require.NoError(t, err)

	resources, err := w.Info(context.Background(), fsys, "/")
	require.NoError(t, err)
	assert.Len(t, resources, 7)

	inf := resources["/sub1/b.txt"]
	require.NotNil(t, inf)
	size, err := inf.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}
