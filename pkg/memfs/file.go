package memfs

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/anyfs/anyfs/pkg/vfs"
)

var (
	errClosed      = errors.New("file already closed")
	errNotReadable = errors.New("file not open for reading")
	errNotWritable = errors.New("file not open for writing")
	errBadSeek     = errors.New("seek to negative position")
)

// memFile is an open handle on an entry. Handles share the entry's
// byte slice under the entry lock, so concurrent handles see each
// other's writes, and a handle stays usable after its entry has been
// unlinked from the tree.
type memFile struct {
	mu     sync.Mutex
	e      *entry
	mode   vfs.Mode
	pos    int64
	closed bool
}

var _ vfs.File = (*memFile)(nil)

func (f *memFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errClosed
	}
	if !f.mode.Reading() {
		return 0, errNotReadable
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	if f.pos >= int64(len(f.e.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.e.data[f.pos:])
	f.pos += int64(n)
	f.e.accessed = time.Now()
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errClosed
	}
	if !f.mode.Writing() {
		return 0, errNotWritable
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	if f.mode.Appending() {
		f.pos = int64(len(f.e.data))
	}
	end := f.pos + int64(len(p))
	if end > int64(len(f.e.data)) {
		grown := make([]byte, end)
		copy(grown, f.e.data)
		f.e.data = grown
	}
	copy(f.e.data[f.pos:end], p)
	f.pos = end
	f.e.modified = time.Now()
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errClosed
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = f.pos + offset
	case io.SeekEnd:
		f.e.mu.Lock()
		pos = int64(len(f.e.data)) + offset
		f.e.mu.Unlock()
	default:
		return 0, errBadSeek
	}
	if pos < 0 {
		return 0, errBadSeek
	}
	f.pos = pos
	return pos, nil
}

func (f *memFile) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errClosed
	}
	if !f.mode.Writing() {
		return errNotWritable
	}
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	switch {
	case size < int64(len(f.e.data)):
		f.e.data = f.e.data[:size]
	case size > int64(len(f.e.data)):
		grown := make([]byte, size)
		copy(grown, f.e.data)
		f.e.data = grown
	}
	f.e.modified = time.Now()
	return nil
}

func (f *memFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
