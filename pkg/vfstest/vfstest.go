// Package vfstest is a conformance suite for filesystem
// implementations. Backends call Suite from their own tests with a
// factory for a fresh, empty, writable filesystem.
package vfstest

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// Factory returns a fresh, empty, writable filesystem. The suite
// closes it when the subtest ends.
type Factory func(t *testing.T) vfs.FS

// Suite runs the filesystem contract tests against the factory's
// backend.
func Suite(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, fsys vfs.FS)
	}{
		{"ReadWriteRoundTrip", testReadWriteRoundTrip},
		{"RootInfo", testRootInfo},
		{"GetInfoErrors", testGetInfoErrors},
		{"ListDir", testListDir},
		{"MakeDir", testMakeDir},
		{"OpenModes", testOpenModes},
		{"Append", testAppend},
		{"SeekAndTruncate", testSeekAndTruncate},
		{"Remove", testRemove},
		{"RemoveDir", testRemoveDir},
		{"SetInfo", testSetInfo},
		{"DerivedPredicates", testDerivedPredicates},
		{"MakeDirs", testMakeDirs},
		{"RemoveTree", testRemoveTree},
		{"Move", testMove},
		{"Closed", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := factory(t)
			defer fsys.Close()
			tt.run(t, fsys)
		})
	}
}

func testReadWriteRoundTrip(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.WriteText(ctx, fsys, "/hello.txt", "Hello, World"))

	text, err := vfs.ReadText(ctx, fsys, "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", text)

	size, err := vfs.Size(ctx, fsys, "/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
}

func testRootInfo(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	inf, err := fsys.GetInfo(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, inf.Name())
	assert.True(t, inf.IsDir())
}

func testGetInfoErrors(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	_, err := fsys.GetInfo(ctx, "/missing")
	assert.True(t, fserrors.IsNotFound(err))

	_, err = fsys.GetInfo(ctx, "/../escape")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeIllegalBackReference))
}

func testListDir(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/file.txt", "x"))

	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dir", "file.txt"}, names)

	names, err = fsys.ListDir(ctx, "/dir")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = fsys.ListDir(ctx, "/file.txt")
	assert.True(t, fserrors.IsDirExpected(err))

	_, err = fsys.ListDir(ctx, "/missing")
	assert.True(t, fserrors.IsNotFound(err))
}

func testMakeDir(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))

	err := fsys.MakeDir(ctx, "/dir", 0o755, false)
	assert.True(t, fserrors.HasCode(err, fserrors.CodeDirectoryExists))
	assert.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, true))

	err = fsys.MakeDir(ctx, "/a/b", 0o755, false)
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteText(ctx, fsys, "/file.txt", "x"))
	err = fsys.MakeDir(ctx, "/file.txt", 0o755, true)
	assert.True(t, fserrors.IsDirExpected(err))
}

func testOpenModes(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	_, err := fsys.OpenBin(ctx, "/missing", "r")
	assert.True(t, fserrors.IsNotFound(err))

	_, err = fsys.OpenBin(ctx, "/no/parent.txt", "w")
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteText(ctx, fsys, "/file.txt", "x"))
	_, err = fsys.OpenBin(ctx, "/file.txt", "x")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeFileExists))

	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	_, err = fsys.OpenBin(ctx, "/dir", "r")
	assert.True(t, fserrors.IsFileExpected(err))

	_, err = fsys.OpenBin(ctx, "/file.txt", "q")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeInvalidPath))
}

func testAppend(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.WriteText(ctx, fsys, "/log", "one"))
	require.NoError(t, vfs.AppendText(ctx, fsys, "/log", " two"))

	text, err := vfs.ReadText(ctx, fsys, "/log")
	require.NoError(t, err)
	assert.Equal(t, "one two", text)
}

func testSeekAndTruncate(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.WriteText(ctx, fsys, "/file", "abcdef"))

	f, err := fsys.OpenBin(ctx, "/file", "r+")
	require.NoError(t, err)

	pos, err := f.Seek(2, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	buf := make([]byte, 2)
	_, err = f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "cd", string(buf))

	require.NoError(t, f.Truncate(3))
	require.NoError(t, f.Close())

	text, err := vfs.ReadText(ctx, fsys, "/file")
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func testRemove(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.WriteText(ctx, fsys, "/file", "x"))
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))

	assert.True(t, fserrors.IsFileExpected(fsys.Remove(ctx, "/dir")))
	assert.True(t, fserrors.IsNotFound(fsys.Remove(ctx, "/missing")))

	require.NoError(t, fsys.Remove(ctx, "/file"))
	exists, err := vfs.Exists(ctx, fsys, "/file")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testRemoveDir(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/dir/file", "x"))

	assert.True(t, fserrors.HasCode(fsys.RemoveDir(ctx, "/"), fserrors.CodeRemoveRoot))
	assert.True(t, fserrors.IsDirNotEmpty(fsys.RemoveDir(ctx, "/dir")))

	require.NoError(t, fsys.Remove(ctx, "/dir/file"))
	require.NoError(t, fsys.RemoveDir(ctx, "/dir"))

	require.NoError(t, vfs.WriteText(ctx, fsys, "/file", "x"))
	assert.True(t, fserrors.IsDirExpected(fsys.RemoveDir(ctx, "/file")))
}

func testSetInfo(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	assert.True(t, fserrors.IsNotFound(fsys.SetInfo(ctx, "/missing", nil)))

	require.NoError(t, vfs.WriteText(ctx, fsys, "/file", "x"))
	assert.NoError(t, fsys.SetInfo(ctx, "/file", nil))
}

func testDerivedPredicates(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/file", "x"))

	for _, tt := range []struct {
		path           string
		exists, dir, f bool
	}{
		{"/dir", true, true, false},
		{"/file", true, false, true},
		{"/missing", false, false, false},
	} {
		exists, err := vfs.Exists(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.exists, exists, tt.path)

		isDir, err := vfs.IsDir(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.dir, isDir, tt.path)

		isFile, err := vfs.IsFile(ctx, fsys, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.f, isFile, tt.path)
	}
}

func testMakeDirs(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/a/b/c", 0o755, false))

	ok, err := vfs.IsDir(ctx, fsys, "/a/b/c")
	require.NoError(t, err)
	assert.True(t, ok)

	// intermediate directories tolerate re-creation
	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/a/b/d", 0o755, false))
}

func testRemoveTree(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, vfs.MakeDirs(ctx, fsys, "/a/b", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/a/f", "x"))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/a/b/g", "x"))

	require.NoError(t, vfs.RemoveTree(ctx, fsys, "/a"))
	exists, err := vfs.Exists(ctx, fsys, "/a")
	require.NoError(t, err)
	assert.False(t, exists)

	// the root empties out but survives
	require.NoError(t, vfs.WriteText(ctx, fsys, "/f", "x"))
	require.NoError(t, vfs.RemoveTree(ctx, fsys, "/"))
	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func testMove(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/src", "payload"))

	require.NoError(t, vfs.Move(ctx, fsys, "/src", "/dir/dst", false))

	exists, err := vfs.Exists(ctx, fsys, "/src")
	require.NoError(t, err)
	assert.False(t, exists)

	text, err := vfs.ReadText(ctx, fsys, "/dir/dst")
	require.NoError(t, err)
	assert.Equal(t, "payload", text)

	require.NoError(t, vfs.WriteText(ctx, fsys, "/other", "x"))
	err = vfs.Move(ctx, fsys, "/other", "/dir/dst", false)
	assert.True(t, fserrors.HasCode(err, fserrors.CodeDestinationExists))
}

func testClosed(t *testing.T, fsys vfs.FS) {
	ctx := context.Background()
	require.NoError(t, fsys.Close())

	_, err := fsys.GetInfo(ctx, "/")
	assert.True(t, fserrors.IsClosed(err))
	assert.True(t, fserrors.IsClosed(fsys.MakeDir(ctx, "/x", 0o755, false)))
	_, err = fsys.OpenBin(ctx, "/x", "r")
	assert.True(t, fserrors.IsClosed(err))

	assert.NoError(t, fsys.Close())
}
