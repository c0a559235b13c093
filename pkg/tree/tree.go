// Package tree renders a filesystem as a text tree view.
package tree

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/anyfs/anyfs/pkg/vfs"
)

// Options controls the rendered tree.
type Options struct {
	// Root is the directory to render. Defaults to "/".
	Root string
	// MaxLevels limits how deep the render descends. Zero or negative
	// means no limit.
	MaxLevels int
	// DirsFirst lists directories before files at each level.
	DirsFirst bool
	// Exclude prunes directories matching any of the patterns.
	Exclude []string
	// Filter restricts files to those matching any of the patterns.
	Filter []string
	// ASCII uses plain characters instead of box-drawing ones.
	ASCII bool
}

// DefaultOptions matches the conventional tree command look: five
// levels deep, directories first.
func DefaultOptions() *Options {
	return &Options{
		Root:      "/",
		MaxLevels: 5,
		DirsFirst: true,
	}
}

type charset struct {
	vertline string
	newnode  string
	line     string
	corner   string
}

var (
	unicodeChars = charset{vertline: "│", newnode: "├", line: "──", corner: "└"}
	asciiChars   = charset{vertline: "|", newnode: "|", line: "--", corner: "`"}
)

type renderer struct {
	fsys  vfs.FS
	w     io.Writer
	opts  *Options
	chars charset
	dirs  int
	files int
	err   error
}

// Render writes a tree view of fsys to w and reports how many
// directories and files it drew. A directory that fails to list is
// drawn as an error leaf rather than aborting the render.
func Render(ctx context.Context, fsys vfs.FS, w io.Writer, opts *Options) (dirs, files int, err error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	root := opts.Root
	if root == "" {
		root = "/"
	}
	norm, err := vfs.ValidatePath(fsys, root)
	if err != nil {
		return 0, 0, err
	}
	r := &renderer{fsys: fsys, w: w, opts: opts, chars: unicodeChars}
	if opts.ASCII {
		r.chars = asciiChars
	}
	r.renderDir(ctx, norm, nil)
	return r.dirs, r.files, r.err
}

func (r *renderer) write(line string) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintln(r.w, line)
}

// prefix draws the indent for one entry. levels records, per ancestor,
// whether it was the last entry at its level.
func (r *renderer) prefix(levels []bool) string {
	var sb strings.Builder
	for _, last := range levels {
		if last {
			sb.WriteString("    ")
		} else {
			sb.WriteString(r.chars.vertline + "   ")
		}
	}
	return sb.String()
}

func (r *renderer) renderDir(ctx context.Context, path string, levels []bool) {
	entries, err := vfs.FilterDir(ctx, r.fsys, path, vfs.FilterOptions{
		Files:       r.opts.Filter,
		ExcludeDirs: r.opts.Exclude,
	})
	if err != nil {
		r.write(fmt.Sprintf("%s%s%s error (%v)", r.prefix(levels), r.chars.corner, r.chars.line, err))
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if r.opts.DirsFirst && a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return strings.ToLower(a.Name()) < strings.ToLower(b.Name())
	})
	for i, entry := range entries {
		isLast := i == len(entries)-1
		node := r.chars.newnode
		if isLast {
			node = r.chars.corner
		}
		r.write(fmt.Sprintf("%s%s%s %s", r.prefix(levels), node, r.chars.line, entry.Name()))
		if entry.IsDir() {
			r.dirs++
			if r.opts.MaxLevels <= 0 || len(levels) < r.opts.MaxLevels {
				r.renderDir(ctx, entry.MakePath(path), append(levels, isLast))
			}
		} else {
			r.files++
		}
	}
}
