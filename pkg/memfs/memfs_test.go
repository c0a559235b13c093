package memfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
)

func TestHelloWorldRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/data", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/data/hello.txt", "Hello, World"))

	text, err := vfs.ReadText(ctx, fsys, "/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", text)

	size, err := vfs.Size(ctx, fsys, "/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
}

func TestListDirInsertionOrder(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	for _, name := range []string{"zebra", "apple", "mango"} {
		require.NoError(t, vfs.WriteBytes(ctx, fsys, "/"+name, nil))
	}
	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "apple", "mango"}, names)
}

func TestGetInfo(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/dir", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/dir/f", []byte("abc")))

	root, err := fsys.GetInfo(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "", root.Name())
	assert.True(t, root.IsDir())

	inf, err := fsys.GetInfo(ctx, "/dir/f", "details")
	require.NoError(t, err)
	assert.Equal(t, "f", inf.Name())
	size, err := inf.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	mod, err := inf.Modified()
	require.NoError(t, err)
	assert.False(t, mod.IsZero())

	// details not requested means the namespace is absent
	plain, err := fsys.GetInfo(ctx, "/dir/f")
	require.NoError(t, err)
	_, err = plain.Size()
	assert.True(t, fserrors.HasCode(err, fserrors.CodeMissingNamespace))

	_, err = fsys.GetInfo(ctx, "/nope")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestMakeDirErrors(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, false))

	err := fsys.MakeDir(ctx, "/a", 0o755, false)
	assert.True(t, fserrors.HasCode(err, fserrors.CodeDirectoryExists))
	assert.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, true))

	err = fsys.MakeDir(ctx, "/missing/child", 0o755, false)
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", nil))
	err = fsys.MakeDir(ctx, "/f", 0o755, true)
	assert.True(t, fserrors.IsDirExpected(err))
}

func TestOpenBinModes(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	_, err := fsys.OpenBin(ctx, "/missing", "r")
	assert.True(t, fserrors.IsNotFound(err))

	_, err = fsys.OpenBin(ctx, "/no/parent", "w")
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("old")))

	_, err = fsys.OpenBin(ctx, "/f", "x")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeFileExists))

	// truncate on 'w'
	f, err := fsys.OpenBin(ctx, "/f", "w")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	data, err := vfs.ReadBytes(ctx, fsys, "/f")
	require.NoError(t, err)
	assert.Empty(t, data)

	// append
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("ab")))
	require.NoError(t, vfs.AppendBytes(ctx, fsys, "/f", []byte("cd")))
	data, _ = vfs.ReadBytes(ctx, fsys, "/f")
	assert.Equal(t, "abcd", string(data))

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	_, err = fsys.OpenBin(ctx, "/d", "r")
	assert.True(t, fserrors.IsFileExpected(err))
}

func TestSeekAndTruncate(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("0123456789")))

	f, err := fsys.OpenBin(ctx, "/f", "r+")
	require.NoError(t, err)
	defer f.Close()

	pos, err := f.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "6789", string(buf[:n]))

	require.NoError(t, f.Truncate(3))
	data, err := vfs.ReadBytes(ctx, fsys, "/f")
	require.NoError(t, err)
	assert.Equal(t, "012", string(data))

	_, err = f.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/d/f", []byte("x")))

	assert.True(t, fserrors.IsFileExpected(fsys.Remove(ctx, "/d")))
	assert.True(t, fserrors.IsDirNotEmpty(fsys.RemoveDir(ctx, "/d")))
	assert.True(t, fserrors.HasCode(fsys.RemoveDir(ctx, "/"), fserrors.CodeRemoveRoot))
	assert.True(t, fserrors.IsNotFound(fsys.Remove(ctx, "/nope")))

	require.NoError(t, fsys.Remove(ctx, "/d/f"))
	require.NoError(t, fsys.RemoveDir(ctx, "/d"))
	exists, err := vfs.Exists(ctx, fsys, "/d")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpenHandleSurvivesRemove(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("keepme")))

	f, err := fsys.OpenBin(ctx, "/f", "r")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, fsys.Remove(ctx, "/f"))

	exists, err := vfs.Exists(ctx, fsys, "/f")
	require.NoError(t, err)
	assert.False(t, exists)

	// the detached handle still reads the old contents
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "keepme", string(data))
}

func TestRenameRelinksEntry(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, false))
	require.NoError(t, fsys.MakeDir(ctx, "/b", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/a/f", []byte("payload")))

	require.NoError(t, fsys.Rename(ctx, "/a/f", "/b/g"))

	exists, _ := vfs.Exists(ctx, fsys, "/a/f")
	assert.False(t, exists)
	data, err := vfs.ReadBytes(ctx, fsys, "/b/g")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	inf, err := fsys.GetInfo(ctx, "/b/g")
	require.NoError(t, err)
	assert.Equal(t, "g", inf.Name())
}

func TestRenameErrors(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", nil))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/g", nil))

	assert.True(t, fserrors.IsNotFound(fsys.Rename(ctx, "/nope", "/x")))
	assert.True(t, fserrors.IsDestExists(fsys.Rename(ctx, "/f", "/g")))
	// a directory cannot move into its own subtree
	err := fsys.Rename(ctx, "/a", "/a/sub")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeResourceInvalid))
}

func TestClosedFilesystem(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	require.NoError(t, fsys.Close())
	require.NoError(t, fsys.Close()) // idempotent

	_, err := fsys.GetInfo(ctx, "/")
	assert.True(t, fserrors.IsClosed(err))
	_, err = fsys.ListDir(ctx, "/")
	assert.True(t, fserrors.IsClosed(err))
	assert.True(t, fserrors.IsClosed(fsys.MakeDir(ctx, "/x", 0o755, false)))
}

func TestConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	fsys := New()
	defer fsys.Close()

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(n int) {
			path := string(rune('a'+n))
			done <- vfs.WriteBytes(ctx, fsys, "/d/"+path, []byte{byte(n)})
		}(i)
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
	names, err := fsys.ListDir(ctx, "/d")
	require.NoError(t, err)
	assert.Len(t, names, 8)
}
