// Package walk traverses directory trees without recursion. Breadth
// first uses a FIFO queue; depth first keeps an explicit frame stack
// and reports directories after their contents, which is the order
// needed for deleting trees.
package walk

import (
	"context"
	"errors"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
)

// Search selects the traversal order.
type Search string

const (
	// SearchBreadth reports directories before their contents.
	SearchBreadth Search = "breadth"
	// SearchDepth reports directories after their contents.
	SearchDepth Search = "depth"
)

// Step is one visited directory: its path and the infos of its files
// and subdirectories, already filtered.
type Step struct {
	Path  string
	Dirs  []*info.Info
	Files []*info.Info
}

// StepFunc is called once per visited directory. Returning an error
// stops the walk; SkipAll stops it without error.
type StepFunc func(step Step) error

// SkipAll stops a walk early from inside a StepFunc.
var SkipAll = errors.New("skip all remaining directories")

// Config controls a Walker. The zero value walks breadth first with
// no filtering.
type Config struct {
	// Search is the traversal order, breadth by default.
	Search Search
	// IgnoreErrors swallows scan errors instead of stopping.
	IgnoreErrors bool
	// OnError decides whether a scan error is swallowed. Overrides
	// IgnoreErrors when set.
	OnError func(path string, err error) bool
	// MaxDepth limits descent below the root; zero means unlimited.
	MaxDepth int
	// Filter keeps only files matching one of these patterns.
	Filter []string
	// FilterDirs keeps only directories matching one of these
	// patterns.
	FilterDirs []string
	// ExcludeDirs prunes matching directories entirely.
	ExcludeDirs []string
	// Namespaces are passed to every directory scan.
	Namespaces []string
}

// Walker traverses trees according to a fixed Config. The zero
// Walker is valid and walks breadth first.
type Walker struct {
	cfg Config
}

// NewWalker validates a config and returns a Walker.
func NewWalker(cfg *Config) (*Walker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Search == "" {
		cfg.Search = SearchBreadth
	}
	if cfg.Search != SearchBreadth && cfg.Search != SearchDepth {
		return nil, fserrors.InvalidPath(string(cfg.Search), "search must be 'breadth' or 'depth'")
	}
	if cfg.MaxDepth < 0 {
		return nil, fserrors.InvalidPath("", "max depth may not be negative")
	}
	return &Walker{cfg: *cfg}, nil
}

func (w *Walker) onError(path string, err error) bool {
	if w.cfg.OnError != nil {
		return w.cfg.OnError(path, err)
	}
	return w.cfg.IgnoreErrors
}

// checkOpenDir decides whether a directory may be descended into.
func (w *Walker) checkOpenDir(fsys vfs.FS, inf *info.Info) bool {
	if len(w.cfg.ExcludeDirs) > 0 && vfs.Match(fsys, w.cfg.ExcludeDirs, inf.Name()) {
		return false
	}
	if w.cfg.FilterDirs != nil && !vfs.Match(fsys, w.cfg.FilterDirs, inf.Name()) {
		return false
	}
	return true
}

// checkFile decides whether a file appears in a step.
func (w *Walker) checkFile(fsys vfs.FS, inf *info.Info) bool {
	return vfs.Match(fsys, w.cfg.Filter, inf.Name())
}

func (w *Walker) scan(ctx context.Context, fsys vfs.FS, path string) ([]*info.Info, error) {
	namespaces := w.cfg.Namespaces
	infos, err := vfs.ScanDir(ctx, fsys, path, namespaces...)
	if err != nil {
		if w.onError(path, err) {
			return nil, nil
		}
		return nil, err
	}
	return infos, nil
}

// Walk visits every directory under root and calls fn once per
// directory. The root must exist and be a directory.
func (w *Walker) Walk(ctx context.Context, fsys vfs.FS, root string, fn StepFunc) error {
	norm, err := vfs.ValidatePath(fsys, root)
	if err != nil {
		return err
	}
	inf, err := fsys.GetInfo(ctx, norm)
	if err != nil {
		return err
	}
	if !inf.IsDir() {
		return fserrors.DirectoryExpected(norm)
	}
	if w.cfg.Search == SearchDepth {
		err = w.walkDepth(ctx, fsys, norm, fn)
	} else {
		err = w.walkBreadth(ctx, fsys, norm, fn)
	}
	if err == SkipAll {
		return nil
	}
	return err
}

type queued struct {
	path  string
	depth int
}

func (w *Walker) walkBreadth(ctx context.Context, fsys vfs.FS, root string, fn StepFunc) error {
	queue := []queued{{path: root, depth: 0}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		head := queue[0]
		queue = queue[1:]

		infos, err := w.scan(ctx, fsys, head.path)
		if err != nil {
			return err
		}
		var dirs, files []*info.Info
		for _, inf := range infos {
			if inf.IsDir() {
				if !w.checkOpenDir(fsys, inf) {
					continue
				}
				dirs = append(dirs, inf)
				if w.cfg.MaxDepth == 0 || head.depth+1 < w.cfg.MaxDepth {
					queue = append(queue, queued{path: inf.MakePath(head.path), depth: head.depth + 1})
				}
			} else if w.checkFile(fsys, inf) {
				files = append(files, inf)
			}
		}
		if err := fn(Step{Path: head.path, Dirs: dirs, Files: files}); err != nil {
			return err
		}
	}
	return nil
}

type frame struct {
	path    string
	entries []*info.Info
	next    int
	dirs    []*info.Info
	files   []*info.Info
	// inf is this directory's info in its parent, nil for the root.
	inf *info.Info
}

func (w *Walker) walkDepth(ctx context.Context, fsys vfs.FS, root string, fn StepFunc) error {
	entries, err := w.scan(ctx, fsys, root)
	if err != nil {
		return err
	}
	stack := []*frame{{path: root, entries: entries}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := stack[len(stack)-1]
		if top.next < len(top.entries) {
			inf := top.entries[top.next]
			top.next++
			if inf.IsDir() {
				if !w.checkOpenDir(fsys, inf) {
					continue
				}
				child := inf.MakePath(top.path)
				if w.cfg.MaxDepth > 0 && len(stack) >= w.cfg.MaxDepth {
					top.dirs = append(top.dirs, inf)
					continue
				}
				childEntries, err := w.scan(ctx, fsys, child)
				if err != nil {
					return err
				}
				stack = append(stack, &frame{path: child, entries: childEntries, inf: inf})
			} else if w.checkFile(fsys, inf) {
				top.files = append(top.files, inf)
			}
			continue
		}
		// Frame exhausted: report this directory, then surface it in
		// its parent's dir list.
		if err := fn(Step{Path: top.path, Dirs: top.dirs, Files: top.files}); err != nil {
			return err
		}
		stack = stack[:len(stack)-1]
		if len(stack) > 0 && top.inf != nil {
			parent := stack[len(stack)-1]
			parent.dirs = append(parent.dirs, top.inf)
		}
	}
	return nil
}

// Walk traverses with a default breadth-first walker.
func Walk(ctx context.Context, fsys vfs.FS, root string, fn StepFunc) error {
	w, _ := NewWalker(nil)
	return w.Walk(ctx, fsys, root, fn)
}

// Files returns the paths of all files under root, using the walker's
// filters and order.
func (w *Walker) Files(ctx context.Context, fsys vfs.FS, root string) ([]string, error) {
	var paths []string
	err := w.Walk(ctx, fsys, root, func(step Step) error {
		for _, inf := range step.Files {
			paths = append(paths, inf.MakePath(step.Path))
		}
		return nil
	})
	return paths, err
}

// Dirs returns the paths of all directories under root, in the
// walker's order.
func (w *Walker) Dirs(ctx context.Context, fsys vfs.FS, root string) ([]string, error) {
	var paths []string
	err := w.Walk(ctx, fsys, root, func(step Step) error {
		for _, inf := range step.Dirs {
			paths = append(paths, inf.MakePath(step.Path))
		}
		return nil
	})
	return paths, err
}

// Info returns path to info pairs for every resource under root.
func (w *Walker) Info(ctx context.Context, fsys vfs.FS, root string) (map[string]*info.Info, error) {
	resources := make(map[string]*info.Info)
	err := w.Walk(ctx, fsys, root, func(step Step) error {
		for _, inf := range step.Dirs {
			resources[inf.MakePath(step.Path)] = inf
		}
		for _, inf := range step.Files {
			resources[inf.MakePath(step.Path)] = inf
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}
