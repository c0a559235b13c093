// Package fscopy copies files and trees between filesystems. A Copier
// runs a fixed pool of workers consuming copy tasks from a channel;
// task failures are collected rather than aborting the pool, and Close
// reports them as a single aggregate error.
package fscopy

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// taskQueueSize bounds the task channel. Copy blocks only when the
// queue is full.
const taskQueueSize = 1024

type task struct {
	ctx     context.Context
	srcFS   vfs.FS
	srcPath string
	dstFS   vfs.FS
	dstPath string
}

// Copier executes file copies on a pool of workers. A worker count of
// zero disables the pool; Copy then runs synchronously on the caller.
type Copier struct {
	workers      int
	preserveTime bool
	logger       *zap.Logger

	tasks chan task
	wg    sync.WaitGroup

	mu     sync.Mutex
	errs   []error
	closed bool
}

// Option configures a Copier.
type Option func(*Copier)

// WithLogger attaches a logger for per-task diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Copier) { c.logger = logger }
}

// WithPreserveTime copies source timestamps onto each destination
// file. Backends that cannot store timestamps are skipped silently.
func WithPreserveTime() Option {
	return func(c *Copier) { c.preserveTime = true }
}

// NewCopier creates a Copier with the given worker count and starts
// its workers.
func NewCopier(workers int, opts ...Option) (*Copier, error) {
	if workers < 0 {
		return nil, fmt.Errorf("fscopy: worker count must be non-negative, got %d", workers)
	}
	c := &Copier{
		workers: workers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if workers > 0 {
		c.tasks = make(chan task, taskQueueSize)
		for i := 0; i < workers; i++ {
			c.wg.Add(1)
			go c.worker()
		}
	}
	return c, nil
}

func (c *Copier) worker() {
	defer c.wg.Done()
	for t := range c.tasks {
		if err := c.run(t); err != nil {
			c.mu.Lock()
			c.errs = append(c.errs, err)
			c.mu.Unlock()
		}
	}
}

func (c *Copier) run(t task) error {
	err := CopyFile(t.ctx, t.srcFS, t.srcPath, t.dstFS, t.dstPath, c.preserveTime)
	if err != nil {
		c.logger.Warn("copy failed",
			zap.String("src", t.srcPath),
			zap.String("dst", t.dstPath),
			zap.Error(err))
		return err
	}
	c.logger.Debug("copied file",
		zap.String("src", t.srcPath),
		zap.String("dst", t.dstPath))
	return nil
}

// Copy copies src on srcFS to dst on dstFS, overwriting any existing
// destination file. With workers the task is enqueued and the result
// surfaces from Close; without workers it runs inline and the error is
// returned directly.
func (c *Copier) Copy(ctx context.Context, srcFS vfs.FS, src string, dstFS vfs.FS, dst string) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fserrors.Closed()
	}
	t := task{ctx: ctx, srcFS: srcFS, srcPath: src, dstFS: dstFS, dstPath: dst}
	if c.workers == 0 {
		return c.run(t)
	}
	c.tasks <- t
	return nil
}

// Close stops accepting tasks, drains the queue, waits for the workers
// to exit, and reports collected task failures as one aggregate error.
func (c *Copier) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.workers > 0 {
		close(c.tasks)
		c.wg.Wait()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) == 0 {
		return nil
	}
	var agg *multierror.Error
	for _, err := range c.errs {
		agg = multierror.Append(agg, err)
	}
	return fserrors.BulkCopyFailed(agg.ErrorOrNil())
}

// Errs returns the task failures collected so far.
func (c *Copier) Errs() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}
