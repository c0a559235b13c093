package s3fs

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyfs/anyfs/internal/breaker"
	"github.com/anyfs/anyfs/internal/retry"
	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// fakeS3 is an in-memory bucket implementing the Client subset.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	times   map[string]time.Time

	// failures makes the next N calls fail with a transient error.
	failures int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: make(map[string][]byte),
		times:   make(map[string]time.Time),
	}
}

func (f *fakeS3) transientFailure() error {
	if f.failures > 0 {
		f.failures--
		return &smithy.GenericAPIError{Code: "InternalError", Message: "simulated"}
	}
	return nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientFailure(); err != nil {
		return nil, err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(string(data))),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientFailure(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.times[key] = time.Now()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientFailure(); err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	delete(f.objects, key)
	delete(f.times, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientFailure(); err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NotFound{}
	}
	mod := f.times[key]
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  aws.Time(mod),
	}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transientFailure(); err != nil {
		return nil, err
	}
	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{}
	seenPrefixes := map[string]bool{}
	max := len(keys)
	if in.MaxKeys != nil && int(*in.MaxKeys) < max {
		max = int(*in.MaxKeys)
	}
	count := 0
	for _, k := range keys {
		if count >= max {
			break
		}
		rest := strings.TrimPrefix(k, prefix)
		if delimiter != "" {
			if i := strings.Index(rest, delimiter); i >= 0 {
				cp := prefix + rest[:i+1]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
					count++
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(f.times[k]),
		})
		count++
	}
	return out, nil
}

func newTestFS(t *testing.T, opts ...Option) (*S3FS, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	opts = append(opts, WithRetry(&retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}))
	fsys := NewWithClient(fake, "test-bucket", opts...)
	t.Cleanup(func() { fsys.Close() })
	return fsys, fake
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys, fake := newTestFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/data", 0o755, false))
	require.NoError(t, vfs.WriteText(ctx, fsys, "/data/hello.txt", "Hello, World"))

	// stored under the expected keys
	_, hasMarker := fake.objects["data/"]
	assert.True(t, hasMarker)
	assert.Equal(t, "Hello, World", string(fake.objects["data/hello.txt"]))

	text, err := vfs.ReadText(ctx, fsys, "/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World", text)

	size, err := vfs.Size(ctx, fsys, "/data/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
}

func TestDirectorySemantics(t *testing.T) {
	ctx := context.Background()
	fsys, fake := newTestFS(t)

	// implicit directory: object exists below the prefix, no marker
	fake.objects["implicit/file.bin"] = []byte("x")
	fake.times["implicit/file.bin"] = time.Now()

	inf, err := fsys.GetInfo(ctx, "/implicit")
	require.NoError(t, err)
	assert.True(t, inf.IsDir())

	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"implicit"}, names)

	names, err = fsys.ListDir(ctx, "/implicit")
	require.NoError(t, err)
	assert.Equal(t, []string{"file.bin"}, names)

	_, err = fsys.ListDir(ctx, "/implicit/file.bin")
	assert.True(t, fserrors.IsDirExpected(err))

	_, err = fsys.GetInfo(ctx, "/nothing")
	assert.True(t, fserrors.IsNotFound(err))
}

func TestMakeDirErrors(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, false))
	err := fsys.MakeDir(ctx, "/a", 0o755, false)
	assert.True(t, fserrors.HasCode(err, fserrors.CodeDirectoryExists))
	assert.NoError(t, fsys.MakeDir(ctx, "/a", 0o755, true))

	err = fsys.MakeDir(ctx, "/missing/sub", 0o755, false)
	assert.True(t, fserrors.IsNotFound(err))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	fsys, fake := newTestFS(t)

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/d/f", []byte("x")))

	assert.True(t, fserrors.IsFileExpected(fsys.Remove(ctx, "/d")))
	assert.True(t, fserrors.IsDirNotEmpty(fsys.RemoveDir(ctx, "/d")))
	assert.True(t, fserrors.HasCode(fsys.RemoveDir(ctx, "/"), fserrors.CodeRemoveRoot))

	require.NoError(t, fsys.Remove(ctx, "/d/f"))
	require.NoError(t, fsys.RemoveDir(ctx, "/d"))
	assert.Empty(t, fake.objects)
}

func TestAppendAndReadWrite(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)

	require.NoError(t, vfs.WriteText(ctx, fsys, "/f", "ab"))
	require.NoError(t, vfs.AppendText(ctx, fsys, "/f", "cd"))

	text, err := vfs.ReadText(ctx, fsys, "/f")
	require.NoError(t, err)
	assert.Equal(t, "abcd", text)

	// read-modify-write through r+
	f, err := fsys.OpenBin(ctx, "/f", "r+")
	require.NoError(t, err)
	_, err = f.Write([]byte("AB"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text, err = vfs.ReadText(ctx, fsys, "/f")
	require.NoError(t, err)
	assert.Equal(t, "ABcd", text)
}

func TestOpenBinErrors(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)

	_, err := fsys.OpenBin(ctx, "/missing", "r")
	assert.True(t, fserrors.IsNotFound(err))

	_, err = fsys.OpenBin(ctx, "/no/parent", "w")
	assert.True(t, fserrors.IsNotFound(err))

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", nil))
	_, err = fsys.OpenBin(ctx, "/f", "x")
	assert.True(t, fserrors.HasCode(err, fserrors.CodeFileExists))

	require.NoError(t, fsys.MakeDir(ctx, "/d", 0o755, false))
	_, err = fsys.OpenBin(ctx, "/d", "r")
	assert.True(t, fserrors.IsFileExpected(err))
}

func TestPrefixIsolation(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["other/secret"] = []byte("hidden")
	fake.times["other/secret"] = time.Now()

	fsys := NewWithClient(fake, "test-bucket", WithPrefix("scoped"))
	defer fsys.Close()

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("mine")))
	assert.Equal(t, "mine", string(fake.objects["scoped/f"]))

	names, err := fsys.ListDir(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, names)
}

func TestTransientErrorsAreRetried(t *testing.T) {
	ctx := context.Background()
	fsys, fake := newTestFS(t)

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("x")))

	fake.mu.Lock()
	fake.failures = 2
	fake.mu.Unlock()

	inf, err := fsys.GetInfo(ctx, "/f")
	require.NoError(t, err)
	assert.Equal(t, "f", inf.Name())
}

func TestTransientErrorsExhaustRetries(t *testing.T) {
	ctx := context.Background()
	fsys, fake := newTestFS(t)

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("x")))

	fake.mu.Lock()
	fake.failures = 10
	fake.mu.Unlock()

	_, err := fsys.GetInfo(ctx, "/f")
	assert.True(t, fserrors.IsRetryable(err))
}

func TestBreakerFailsFastAfterTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fsys := NewWithClient(fake, "test-bucket",
		WithRetry(&retry.Config{MaxAttempts: 1}),
		WithBreaker(&breaker.Config{FailureThreshold: 2, Cooldown: time.Minute}))
	defer fsys.Close()

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("x")))

	fake.mu.Lock()
	fake.failures = 2
	fake.mu.Unlock()

	_, err := fsys.GetInfo(ctx, "/f")
	require.Error(t, err)
	_, err = fsys.GetInfo(ctx, "/f")
	require.Error(t, err)

	// circuit is open now; calls fail without touching the fake
	_, err = fsys.GetInfo(ctx, "/f")
	assert.ErrorIs(t, err, breaker.ErrOpen)
}

func TestSetInfoValidatesExistence(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)

	require.NoError(t, vfs.WriteBytes(ctx, fsys, "/f", []byte("x")))
	assert.NoError(t, fsys.SetInfo(ctx, "/f", nil))
	assert.True(t, fserrors.IsNotFound(fsys.SetInfo(ctx, "/missing", nil)))
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	require.NoError(t, fsys.Close())
	_, err := fsys.GetInfo(ctx, "/")
	assert.True(t, fserrors.IsClosed(err))
}
