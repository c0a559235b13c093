package vfs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/memfs"
	"github.com/anyfs/anyfs/pkg/vfs"
)

func newFS(t *testing.T) *memfs.MemFS {
	t.Helper()
	fsys := memfs.New()
	t.Cleanup(func() { fsys.Close() })
	return fsys
}

func TestExistsIsDirIsFile(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("x")))

	for _, tt := range []struct {
		path                  string
		exists, isDir, isFile bool
	}{
		{"/d", true, true, false},
		{"/f", true, false, true},
		{"/missing", false, false, false},
	} {
		exists, err := vfs.Exists(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.exists, exists, tt.path)
		isDir, err := vfs.IsDir(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.isDir, isDir, tt.path)
		isFile, err := vfs.IsFile(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.isFile, isFile, tt.path)
	}
}

func TestIsEmpty(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/empty", 0o755, false))
	require.NoError(t, fsys.MakeDir(ctx, "/full", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/full/f", []byte("x")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/zero", nil))

	empty, err := vfs.IsEmpty(ctx, fsys, "/empty")
	require.NoError(t, err)
	assert.True(t, empty)
	empty, err = vfs.IsEmpty(ctx, fsys, "/full")
	require.NoError(t, err)
	assert.False(t, empty)
	empty, err = vfs.IsEmpty(ctx, fsys, "/zero")
	require.NoError(t, err)
	assert.True(t, empty)
	_, err = vfs.IsEmpty(ctx, fsys, "/missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestCreateAndTouch(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	wrote, err := vfs.Create(ctx, fsys, "/f", false)
	require.NoError(t, err)
	assert.True(t, wrote)

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("data")))
	wrote, err = vfs.Create(ctx, fsys, "/f", false)
	require.NoError(t, err)
	assert.False(t, wrote)
	size, _ := vfs.Size(ctx, fsys, "/f")
	assert.Equal(t, int64(4), size)

	wrote, err = vfs.Create(ctx, fsys, "/f", true)
	require.NoError(t, err)
	assert.True(t, wrote)
	size, _ = vfs.Size(ctx, fsys, "/f")
	assert.Equal(t, int64(0), size)

	// touch on a missing path creates an empty file
	require.NoError(t, vfs.Touch(ctx, fsys, "/new"))
	exists, _ := vfs.Exists(ctx, fsys, "/new")
	assert.True(t, exists)

	// touch on an existing file bumps its times
	past := time.Now().Add(-time.Hour)
	require.NoError(t, vfs.SetTimes(ctx, fsys, "/f", past, past))
	require.NoError(t, vfs.Touch(ctx, fsys, "/f"))
	inf, err := fsys.GetInfo(ctx, "/f", "details")
	require.NoError(t, err)
	mod, _ := inf.Modified()
	assert.True(t, mod.After(past))
}

func TestMakeDirs(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/a/b/c", 0o755, false))
	isDir, _ := vfs.IsDir(ctx, fsys, "/a/b/c")
	assert.True(t, isDir)

	err := vfs.MakeDirs(ctx, fsys, "/a/b/c", 0o755, false)
	assert.True(t, fserrors.HasCode(err, fserrors.CodeDirectoryExists))
	assert.NoError(t, vfs.MakeDirs(ctx, fsys, "/a/b/c", 0o755, true))

	// an ancestor that is a file blocks the whole chain
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/file", nil))
	err = vfs.MakeDirs(ctx, fsys, "/file/sub", 0o755, false)
	assert.Error(t, err)
}

func TestRemoveTree(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/top/mid/leaf", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/top/f1", []byte("1")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/top/mid/f2", []byte("2")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/top/mid/leaf/f3", []byte("3")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/keep", []byte("k")))

	require.NoError(t, vfs.RemoveTree(ctx, fsys, "/top"))
	exists, _ := vfs.Exists(ctx, fsys, "/top")
	assert.False(t, exists)
	exists, _ = vfs.Exists(ctx, fsys, "/keep")
	assert.True(t, exists)

	// removing the root empties it but keeps it
	require.NoError(t, vfs.RemoveTree(ctx, fsys, "/"))
	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, names)

	err = vfs.RemoveTree(ctx, fsys, "/gone")
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", nil))
	err = vfs.RemoveTree(ctx, fsys, "/f")
	assert.True(t, fserrors.IsDirExpected(err))
}

func TestCopySameFS(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, vfs.WriteText(ctx, fsys, "/src", "payload"))
	require.NoError(t, vfs.Copy(ctx, fsys, "/src", "/dst", false))

	text, err := vfs.ReadText(ctx, fsys, "/dst")
	require.NoError(t, err)
	assert.Equal(t, "payload", text)

	err = vfs.Copy(ctx, fsys, "/src", "/dst", false)
	assert.True(t, fserrors.IsDestExists(err))
	require.NoError(t, vfs.Copy(ctx, fsys, "/src", "/dst", true))

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	err = vfs.Copy(ctx, fsys, "/d", "/d2", false)
	assert.True(t, fserrors.IsFileExpected(err))
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, vfs.WriteText(ctx, fsys, "/src", "move me"))
	require.NoError(t, vfs.Move(ctx, fsys, "/src", "/dst", false))

	exists, _ := vfs.Exists(ctx, fsys, "/src")
	assert.False(t, exists)
	text, err := vfs.ReadText(ctx, fsys, "/dst")
	require.NoError(t, err)
	assert.Equal(t, "move me", text)

	require.NoError(t, vfs.WriteText(ctx, fsys, "/other", "x"))
	err = vfs.Move(ctx, fsys, "/dst", "/other", false)
	assert.True(t, fserrors.IsDestExists(err))
	require.NoError(t, vfs.Move(ctx, fsys, "/dst", "/other", true))
	text, _ = vfs.ReadText(ctx, fsys, "/other")
	assert.Equal(t, "move me", text)
}

func TestScanAndFilterDir(t *testing.T) {
	ctx := context.Background()
	fsys := newFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	require.NoError(t, fsys.MakeDir(ctx, "/d/sub", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/d/a.go", []byte("a")))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/d/b.txt", []byte("b")))

	infos, err := vfs.ScanDir(ctx, fsys, "/d", "details")
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	goFiles, err := vfs.FilterDir(ctx, fsys, "/d", vfs.FilterOptions{Files: []string{"*.go"}})
	require.NoError(t, err)
	names := make([]string, 0, len(goFiles))
	for _, inf := range goFiles {
		names = append(names, inf.Name())
	}
	assert.Equal(t, []string{"sub", "a.go"}, names)

	noDirs, err := vfs.FilterDir(ctx, fsys, "/d", vfs.FilterOptions{ExcludeDirs: []string{"*"}})
	require.NoError(t, err)
	assert.Len(t, noDirs, 2)
}

func TestValidatePath(t *testing.T) {
	fsys := newFS(t)

	norm, err := vfs.ValidatePath(fsys, "foo//bar/./baz")
	require.NoError(t, err)
	assert.Equal(t, "/foo/bar/baz", norm)

	_, err = vfs.ValidatePath(fsys, "/bad\x00path")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeInvalidCharsInPath))

	_, err = vfs.ValidatePath(fsys, "/a/../../b")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeIllegalBackReference))
}
