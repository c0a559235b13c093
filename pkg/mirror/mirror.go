// Package mirror performs one-way directory synchronization: after a
// mirror the destination tree matches the source tree, with extra
// destination entries removed and changed files recopied.
package mirror

import (
	"context"

	"go.uber.org/zap"

	"github.com/anyfs/anyfs/pkg/fscopy"
	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
	"github.com/anyfs/anyfs/pkg/walk"
)

type options struct {
	workers     int
	copyIfNewer bool
	walker      *walk.Walker
	logger      *zap.Logger
}

// Option configures a mirror run.
type Option func(*options)

// WithWorkers sets the copy pool size. The default is 4.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithCopyIfNewer toggles the copy-if-newer heuristic. When enabled
// (the default), a file is recopied only if sizes differ, either side
// has no known modification time, or the source is strictly newer.
// Disabling it forces an unconditional full copy.
func WithCopyIfNewer(enabled bool) Option {
	return func(o *options) { o.copyIfNewer = enabled }
}

// WithWalker overrides the walker used to traverse the source.
func WithWalker(w *walk.Walker) Option {
	return func(o *options) { o.walker = w }
}

// WithLogger attaches a logger for per-entry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Mirror makes dst an exact copy of src. File transfers run on a
// worker pool; transfer failures are aggregated into the returned
// error.
func Mirror(ctx context.Context, src, dst vfs.FS, opts ...Option) error {
	o := options{
		workers:     4,
		copyIfNewer: true,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.walker == nil {
		w, err := walk.NewWalker(&walk.Config{
			Search:     walk.SearchBreadth,
			Namespaces: []string{info.NamespaceDetails},
		})
		if err != nil {
			return err
		}
		o.walker = w
	}

	copier, err := fscopy.NewCopier(o.workers, fscopy.WithLogger(o.logger), fscopy.WithPreserveTime())
	if err != nil {
		return err
	}
	m := &mirrorer{opts: &o, src: src, dst: dst, copier: copier}
	walkErr := o.walker.Walk(ctx, src, "/", func(step walk.Step) error {
		return m.syncStep(ctx, step)
	})
	closeErr := copier.Close()
	if walkErr != nil {
		return walkErr
	}
	return closeErr
}

type mirrorer struct {
	opts   *options
	src    vfs.FS
	dst    vfs.FS
	copier *fscopy.Copier
}

// syncStep reconciles one source directory level against the
// destination.
func (m *mirrorer) syncStep(ctx context.Context, step walk.Step) error {
	existing, err := m.snapshot(ctx, step.Path)
	if err != nil {
		return err
	}

	for _, srcInf := range step.Files {
		path := srcInf.MakePath(step.Path)
		dstInf := existing[srcInf.Name()]
		delete(existing, srcInf.Name())
		if dstInf != nil && dstInf.IsDir() {
			// type mismatch: a directory stands where a file belongs
			if err := vfs.RemoveTree(ctx, m.dst, path); err != nil {
				return err
			}
			dstInf = nil
		}
		if dstInf == nil || m.shouldCopy(srcInf, dstInf) {
			m.opts.logger.Debug("mirroring file", zap.String("path", path))
			if err := m.copier.Copy(ctx, m.src, path, m.dst, path); err != nil {
				return err
			}
		}
	}

	for _, srcInf := range step.Dirs {
		path := srcInf.MakePath(step.Path)
		dstInf := existing[srcInf.Name()]
		delete(existing, srcInf.Name())
		if dstInf != nil && !dstInf.IsDir() {
			if err := m.dst.Remove(ctx, path); err != nil {
				return err
			}
			dstInf = nil
		}
		if dstInf == nil {
			if err := m.dst.MakeDir(ctx, path, 0o755, true); err != nil {
				return err
			}
		}
	}

	// anything left has no source counterpart
	for _, extra := range existing {
		path := extra.MakePath(step.Path)
		m.opts.logger.Debug("removing extra entry", zap.String("path", path))
		if extra.IsDir() {
			if err := vfs.RemoveTree(ctx, m.dst, path); err != nil {
				return err
			}
		} else if err := m.dst.Remove(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// snapshot captures the destination directory's current children by
// name. A missing destination directory reads as empty.
func (m *mirrorer) snapshot(ctx context.Context, path string) (map[string]*info.Info, error) {
	entries, err := vfs.ScanDir(ctx, m.dst, path, info.NamespaceDetails)
	if err != nil {
		if fserrors.IsNotFound(err) {
			return map[string]*info.Info{}, nil
		}
		return nil, err
	}
	out := make(map[string]*info.Info, len(entries))
	for _, e := range entries {
		out[e.Name()] = e
	}
	return out, nil
}

// shouldCopy applies the copy-if-newer heuristic. An unknown
// modification time on either side always copies.
func (m *mirrorer) shouldCopy(src, dst *info.Info) bool {
	if !m.opts.copyIfNewer {
		return true
	}
	if src.Details == nil || dst.Details == nil {
		return true
	}
	if src.Details.Size != dst.Details.Size {
		return true
	}
	if src.Details.Modified.IsZero() || dst.Details.Modified.IsZero() {
		return true
	}
	return src.Details.Modified.After(dst.Details.Modified)
}
