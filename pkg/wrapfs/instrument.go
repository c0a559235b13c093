package wrapfs

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/anyfs/anyfs/internal/metrics"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// InstrumentedFS records a Prometheus metric and a debug log line for
// every operation, and counts bytes moving through opened files.
type InstrumentedFS struct {
	*WrapFS
	collector *metrics.Collector
	logger    *zap.Logger
}

// Instrument wraps a filesystem with metrics and logging. A nil
// collector gets a default one; a nil logger stays silent.
func Instrument(inner vfs.FS, collector *metrics.Collector, logger *zap.Logger) *InstrumentedFS {
	if collector == nil {
		collector = metrics.NewCollector(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedFS{WrapFS: New(inner), collector: collector, logger: logger}
}

// Collector returns the metrics collector, for registry scraping.
func (i *InstrumentedFS) Collector() *metrics.Collector { return i.collector }

func (i *InstrumentedFS) record(op, path string, start time.Time, err error) {
	elapsed := time.Since(start)
	i.collector.RecordOperation(op, elapsed, err)
	if err != nil {
		i.logger.Debug("filesystem operation failed",
			zap.String("op", op), zap.String("path", path),
			zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	i.logger.Debug("filesystem operation",
		zap.String("op", op), zap.String("path", path),
		zap.Duration("elapsed", elapsed))
}

func (i *InstrumentedFS) GetInfo(ctx context.Context, path string, namespaces ...string) (*info.Info, error) {
	start := time.Now()
	inf, err := i.WrapFS.GetInfo(ctx, path, namespaces...)
	i.record("getinfo", path, start, err)
	return inf, err
}

func (i *InstrumentedFS) ListDir(ctx context.Context, path string) ([]string, error) {
	start := time.Now()
	names, err := i.WrapFS.ListDir(ctx, path)
	i.record("listdir", path, start, err)
	return names, err
}

func (i *InstrumentedFS) ScanDir(ctx context.Context, path string, namespaces ...string) ([]*info.Info, error) {
	start := time.Now()
	infos, err := i.WrapFS.ScanDir(ctx, path, namespaces...)
	i.record("scandir", path, start, err)
	return infos, err
}

func (i *InstrumentedFS) MakeDir(ctx context.Context, path string, perm os.FileMode, recreate bool) error {
	start := time.Now()
	err := i.WrapFS.MakeDir(ctx, path, perm, recreate)
	i.record("makedir", path, start, err)
	return err
}

func (i *InstrumentedFS) OpenBin(ctx context.Context, path string, mode string) (vfs.File, error) {
	start := time.Now()
	f, err := i.WrapFS.OpenBin(ctx, path, mode)
	i.record("openbin", path, start, err)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, collector: i.collector}, nil
}

func (i *InstrumentedFS) Remove(ctx context.Context, path string) error {
	start := time.Now()
	err := i.WrapFS.Remove(ctx, path)
	i.record("remove", path, start, err)
	return err
}

func (i *InstrumentedFS) RemoveDir(ctx context.Context, path string) error {
	start := time.Now()
	err := i.WrapFS.RemoveDir(ctx, path)
	i.record("removedir", path, start, err)
	return err
}

func (i *InstrumentedFS) SetInfo(ctx context.Context, path string, raw info.Raw) error {
	start := time.Now()
	err := i.WrapFS.SetInfo(ctx, path, raw)
	i.record("setinfo", path, start, err)
	return err
}

// countingFile feeds byte counts into the collector.
type countingFile struct {
	vfs.File
	collector *metrics.Collector
}

func (c *countingFile) Read(p []byte) (int, error) {
	n, err := c.File.Read(p)
	c.collector.RecordRead(n)
	return n, err
}

func (c *countingFile) Write(p []byte) (int, error) {
	n, err := c.File.Write(p)
	c.collector.RecordWrite(n)
	return n, err
}
