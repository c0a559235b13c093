// Package glob matches resource paths against glob patterns. Patterns
// use the wildcard syntax per path component, plus "**" which crosses
// directory boundaries. A trailing "/" restricts a pattern to
// directories.
package glob

import (
	"context"
	"regexp"
	"strings"

	"github.com/anyfs/anyfs/internal/cache"
	"github.com/anyfs/anyfs/pkg/fspath"
	"github.com/anyfs/anyfs/pkg/info"
	"github.com/anyfs/anyfs/pkg/vfs"
	"github.com/anyfs/anyfs/pkg/walk"
	"github.com/anyfs/anyfs/pkg/wildcard"
)

// Match pairs a matched path with its resource info. Directory paths
// carry a trailing slash.
type Match struct {
	Path string
	Info *info.Info
}

// Counts summarizes the resources matched by a pattern.
type Counts struct {
	Files       int64
	Directories int64
	Data        int64
}

type patternKey struct {
	pattern       string
	caseSensitive bool
}

type translated struct {
	levels    int
	recursive bool
	re        *regexp.Regexp
}

var patternCache = cache.NewLRU[patternKey, *translated](1000)

// translate compiles a glob pattern. The level count bounds the walk
// depth when no "**" component makes the pattern recursive.
func translate(pattern string, caseSensitive bool) *translated {
	key := patternKey{pattern: pattern, caseSensitive: caseSensitive}
	return patternCache.GetOrCompute(key, func() *translated {
		t := &translated{}
		var sb strings.Builder
		for _, component := range strings.Split(strings.Trim(fspath.Abs(pattern), "/"), "/") {
			if component == "" {
				continue
			}
			if component == "**" {
				sb.WriteString(".*/?")
				t.recursive = true
			} else {
				sb.WriteString("/" + wildcard.Translate(component, true))
			}
			t.levels++
		}
		expr := "(?ms)^" + sb.String()
		if strings.HasSuffix(pattern, "/") {
			expr += "/$"
		} else {
			expr += "$"
		}
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		t.re = regexp.MustCompile(expr)
		return t
	})
}

// MatchPath reports whether path matches the glob pattern, case
// sensitively.
func MatchPath(pattern, path string) bool {
	return translate(pattern, true).re.MatchString(path)
}

// IMatchPath reports whether path matches the glob pattern, ignoring
// case.
func IMatchPath(pattern, path string) bool {
	return translate(pattern, false).re.MatchString(path)
}

// Globber matches resources on a filesystem against a glob pattern.
type Globber struct {
	fsys          vfs.FS
	pattern       string
	root          string
	namespaces    []string
	caseSensitive bool
	excludeDirs   []string
}

// Option configures a Globber.
type Option func(*Globber)

// WithRoot starts the search below the given directory instead of the
// filesystem root.
func WithRoot(root string) Option {
	return func(g *Globber) { g.root = root }
}

// WithNamespaces requests extra info namespaces on each match.
func WithNamespaces(namespaces ...string) Option {
	return func(g *Globber) { g.namespaces = namespaces }
}

// WithCaseInsensitive makes path matching ignore case.
func WithCaseInsensitive() Option {
	return func(g *Globber) { g.caseSensitive = false }
}

// WithExcludeDirs prunes directories matching any of the patterns from
// the search.
func WithExcludeDirs(patterns ...string) Option {
	return func(g *Globber) { g.excludeDirs = patterns }
}

// New creates a Globber for the pattern on fsys.
func New(fsys vfs.FS, pattern string, opts ...Option) *Globber {
	g := &Globber{
		fsys:          fsys,
		pattern:       pattern,
		root:          "/",
		caseSensitive: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Globber) iter(ctx context.Context, search walk.Search, namespaces []string, fn func(Match) error) error {
	t := translate(g.pattern, g.caseSensitive)
	maxDepth := t.levels
	if t.recursive {
		maxDepth = 0
	}
	if namespaces == nil {
		namespaces = g.namespaces
	}
	walker, err := walk.NewWalker(&walk.Config{
		Search:      search,
		Namespaces:  namespaces,
		ExcludeDirs: g.excludeDirs,
		MaxDepth:    maxDepth,
	})
	if err != nil {
		return err
	}
	return walker.Walk(ctx, g.fsys, g.root, func(step walk.Step) error {
		for _, d := range step.Dirs {
			path := d.MakePath(step.Path) + "/"
			if t.re.MatchString(path) {
				if err := fn(Match{Path: path, Info: d}); err != nil {
					return err
				}
			}
		}
		for _, f := range step.Files {
			path := f.MakePath(step.Path)
			if t.re.MatchString(path) {
				if err := fn(Match{Path: path, Info: f}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Matches collects every match in breadth-first order.
func (g *Globber) Matches(ctx context.Context) ([]Match, error) {
	var out []Match
	err := g.iter(ctx, walk.SearchBreadth, nil, func(m Match) error {
		out = append(out, m)
		return nil
	})
	return out, err
}

// Count tallies matched files, directories and file bytes.
func (g *Globber) Count(ctx context.Context) (Counts, error) {
	var counts Counts
	err := g.iter(ctx, walk.SearchBreadth, []string{info.NamespaceDetails}, func(m Match) error {
		if m.Info.IsDir() {
			counts.Directories++
		} else {
			counts.Files++
		}
		if m.Info.Details != nil {
			counts.Data += m.Info.Details.Size
		}
		return nil
	})
	return counts, err
}

// Remove deletes every matched resource and reports how many were
// removed. Matching runs depth-first so directories empty out before
// their own removal.
func (g *Globber) Remove(ctx context.Context) (int, error) {
	removed := 0
	err := g.iter(ctx, walk.SearchDepth, nil, func(m Match) error {
		if m.Info.IsDir() {
			if err := vfs.RemoveTree(ctx, g.fsys, strings.TrimSuffix(m.Path, "/")); err != nil {
				return err
			}
		} else if err := g.fsys.Remove(ctx, m.Path); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// Glob collects every match for pattern on fsys.
func Glob(ctx context.Context, fsys vfs.FS, pattern string, opts ...Option) ([]Match, error) {
	return New(fsys, pattern, opts...).Matches(ctx)
}
