package s3fs

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/vfs"
)

func (s *S3FS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	parsed, err := vfs.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	norm, err := s.validate(path)
	if err != nil {
		return nil, err
	}
	st, statErr := s.stat(ctx, norm)
	exists := statErr == nil
	if statErr != nil && !fserrors.IsNotFound(statErr) {
		return nil, statErr
	}
	switch {
	case exists && st.isDir:
		return nil, fserrors.FileExpected(norm)
	case exists && parsed.Exclusive():
		return nil, fserrors.FileExists(norm)
	case !exists && !parsed.Create():
		return nil, fserrors.NotFound(norm)
	}
	if parsed.Create() {
		parent, err := s.stat(ctx, fspath.Dirname(norm))
		if err != nil {
			if fserrors.IsNotFound(err) {
				return nil, fserrors.NotFound(norm)
			}
			return nil, err
		}
		if !parent.isDir {
			return nil, fserrors.DirectoryExpected(fspath.Dirname(norm))
		}
	}

	staging, err := os.CreateTemp("", "s3fs-staging-")
	if err != nil {
		return nil, fserrors.CreateFailed("unable to create staging file", err)
	}
	// Existing contents come down unless the open truncates them.
	if exists && !parsed.Truncate() {
		if err := s.download(ctx, norm, staging); err != nil {
			staging.Close()
			os.Remove(staging.Name())
			return nil, err
		}
	}
	if parsed.Appending() {
		if _, err := staging.Seek(0, io.SeekEnd); err != nil {
			staging.Close()
			os.Remove(staging.Name())
			return nil, err
		}
	} else if _, err := staging.Seek(0, io.SeekStart); err != nil {
		staging.Close()
		os.Remove(staging.Name())
		return nil, err
	}
	return &s3File{fs: s, path: norm, mode: parsed, staging: staging}, nil
}

func (s *S3FS) download(ctx context.Context, norm string, dst io.Writer) error {
	var out *s3.GetObjectOutput
	err := s.do(ctx, func() error {
		var err error
		out, err = s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(norm)),
		})
		return s.translate(err, norm, "openbin")
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()
	if _, err := io.Copy(dst, out.Body); err != nil {
		return s.translate(err, norm, "openbin")
	}
	return nil
}

// s3File is an open handle staged in a host temporary file. Reads and
// writes run at local speed; a written file is uploaded once, when it
// is closed.
type s3File struct {
	fs      *S3FS
	path    string
	mode    vfs.Mode
	staging *os.File

	mu     sync.Mutex
	dirty  bool
	closed bool
}

var _ vfs.File = (*s3File)(nil)

func (f *s3File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.mode.Reading() {
		return 0, fserrors.Unsupported("read on write-only file")
	}
	return f.staging.Read(p)
}

func (f *s3File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.mode.Writing() {
		return 0, fserrors.Unsupported("write on read-only file")
	}
	if f.mode.Appending() {
		if _, err := f.staging.Seek(0, io.SeekEnd); err != nil {
			return 0, err
		}
	}
	n, err := f.staging.Write(p)
	if n > 0 {
		f.dirty = true
	}
	return n, err
}

func (f *s3File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, os.ErrClosed
	}
	return f.staging.Seek(offset, whence)
}

func (f *s3File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return os.ErrClosed
	}
	if !f.mode.Writing() {
		return fserrors.Unsupported("truncate on read-only file")
	}
	f.dirty = true
	return f.staging.Truncate(size)
}

// Close uploads the staged contents if anything was written, then
// removes the staging file. A newly created file is uploaded even
// when nothing was written, so that create-and-close leaves an empty
// object behind.
func (f *s3File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	name := f.staging.Name()
	defer os.Remove(name)
	defer f.staging.Close()

	if !f.mode.Writing() {
		return nil
	}
	if !f.dirty && !f.mode.Create() {
		return nil
	}
	if _, err := f.staging.Seek(0, io.SeekStart); err != nil {
		return err
	}
	ctx := context.Background()
	err := f.fs.do(ctx, func() error {
		if _, seekErr := f.staging.Seek(0, io.SeekStart); seekErr != nil {
			return seekErr
		}
		_, err := f.fs.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(f.fs.bucket),
			Key:    aws.String(f.fs.key(f.path)),
			Body:   f.staging,
		})
		return f.fs.translate(err, f.path, "close")
	})
	if err != nil {
		f.fs.logger.Warn("upload on close failed",
			zap.String("path", f.path), zap.Error(err))
	}
	return err
}
