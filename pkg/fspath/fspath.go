// Package fspath implements the virtual path model shared by all
// filesystems. Paths always use '/' as separator, independent of the
// host platform; "/" is the root and "" names the current directory.
package fspath

import (
	"strings"

	"github.com/anyfs/anyfs/pkg/fserrors"
)

// Normalize collapses repeated separators, drops '.' components,
// resolves '..' components against their parent and strips trailing
// slashes. A '..' with no parent left to consume is an error: a
// normalized path can never climb above the filesystem root.
func Normalize(path string) (string, error) {
	if path == "" || path == "/" {
		return path, nil
	}
	var prefix string
	if path[0] == '/' {
		prefix = "/"
	}
	components := make([]string, 0, strings.Count(path, "/")+1)
	for _, component := range strings.Split(path, "/") {
		switch component {
		case "", ".":
		case "..":
			if len(components) == 0 {
				return "", fserrors.IllegalBackReference(path)
			}
			components = components[:len(components)-1]
		default:
			components = append(components, component)
		}
	}
	return prefix + strings.Join(components, "/"), nil
}

// IsAbs reports whether the path begins at the root.
func IsAbs(path string) bool {
	return strings.HasPrefix(path, "/")
}

// Abs prefixes relative paths with the root. Absolute paths are
// returned unchanged.
func Abs(path string) string {
	if IsAbs(path) {
		return path
	}
	return "/" + path
}

// Rel strips a leading separator, making the path relative.
func Rel(path string) string {
	return strings.TrimLeft(path, "/")
}

// Join concatenates path components and normalizes the result. An
// absolute component discards everything joined before it.
func Join(paths ...string) (string, error) {
	var (
		absolute bool
		relpaths []string
	)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if p[0] == '/' {
			relpaths = relpaths[:0]
			absolute = true
		}
		relpaths = append(relpaths, p)
	}
	joined, err := Normalize(strings.Join(relpaths, "/"))
	if err != nil {
		return "", err
	}
	if absolute {
		joined = Abs(joined)
	}
	return joined, nil
}

// Combine joins exactly two paths without normalizing. It is the fast
// path for callers that know both sides are already clean.
func Combine(path1, path2 string) string {
	if path1 == "" {
		return path2
	}
	return strings.TrimRight(path1, "/") + "/" + strings.TrimLeft(path2, "/")
}

// Split breaks a path into its parent directory and final component.
// The root splits into ("/", "") and a bare name into ("", name).
func Split(path string) (dir, base string) {
	if !strings.Contains(path, "/") {
		return "", path
	}
	trimmed := strings.TrimRight(path, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return "", trimmed
	}
	dir = trimmed[:i]
	if dir == "" {
		dir = "/"
	}
	return dir, trimmed[i+1:]
}

// SplitExt splits a path into stem and extension. Leading dots do not
// start an extension, so ".gitignore" has no extension.
func SplitExt(path string) (stem, ext string) {
	base := Basename(path)
	i := strings.LastIndex(base, ".")
	if i <= 0 {
		return path, ""
	}
	return path[:len(path)-(len(base)-i)], base[i:]
}

// Dirname returns the parent directory of a path.
func Dirname(path string) string {
	dir, _ := Split(path)
	return dir
}

// Basename returns the final component of a path.
func Basename(path string) string {
	_, base := Split(path)
	return base
}

// Parts splits a normalized path into its components. The first part
// is always "/".
func Parts(path string) ([]string, error) {
	norm, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	components := []string{"/"}
	if rel := Rel(norm); rel != "" {
		components = append(components, strings.Split(rel, "/")...)
	}
	return components, nil
}

// Iterate returns the individual components of a path, without the
// root marker.
func Iterate(path string) ([]string, error) {
	norm, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	rel := Rel(norm)
	if rel == "" {
		return nil, nil
	}
	return strings.Split(rel, "/"), nil
}

// Recurse lists every path from the root down to path itself, so
// "/a/b/c" yields "/", "/a", "/a/b", "/a/b/c". Intermediate directory
// creation walks this list.
func Recurse(path string) ([]string, error) {
	abs, err := Normalize(Abs(path))
	if err != nil {
		return nil, err
	}
	paths := []string{"/"}
	for i, c := range abs {
		if c == '/' && i > 0 {
			paths = append(paths, abs[:i])
		}
	}
	if abs != "/" {
		paths = append(paths, abs)
	}
	return paths, nil
}

// IsSameDir reports whether two paths name entries in the same
// directory.
func IsSameDir(path1, path2 string) bool {
	return Dirname(path1) == Dirname(path2)
}

// IsBase reports whether path1 is a textual prefix of path2 on a
// component boundary.
func IsBase(path1, path2 string) bool {
	return strings.HasPrefix(ForceDir(Abs(path2)), ForceDir(Abs(path1)))
}

// IsParent reports whether path1 is an ancestor of (or equal to)
// path2. Both sides are compared in normalized absolute form; an
// unnormalizable path is never a parent.
func IsParent(path1, path2 string) bool {
	n1, err1 := Normalize(Abs(path1))
	n2, err2 := Normalize(Abs(path2))
	if err1 != nil || err2 != nil {
		return false
	}
	if n1 == n2 {
		return true
	}
	if n1 != "/" {
		n1 += "/"
	}
	return strings.HasPrefix(n2, n1)
}

// ForceDir appends a trailing slash if the path lacks one.
func ForceDir(path string) string {
	if !strings.HasSuffix(path, "/") {
		return path + "/"
	}
	return path
}

// FromBase strips the base prefix from path. It is the inverse of
// joining base with the returned suffix.
func FromBase(base, path string) (string, error) {
	if !IsParent(base, path) {
		return "", fserrors.InvalidPath(path, "path '"+path+"' is not a child of '"+base+"'")
	}
	return path[len(base):], nil
}

// RelativeFrom returns a relative path from base to path, using ".."
// segments where the two diverge.
func RelativeFrom(base, path string) (string, error) {
	baseParts, err := Iterate(base)
	if err != nil {
		return "", err
	}
	pathParts, err := Iterate(path)
	if err != nil {
		return "", err
	}
	common := 0
	for common < len(baseParts) && common < len(pathParts) && baseParts[common] == pathParts[common] {
		common++
	}
	segments := make([]string, 0, len(baseParts)-common+len(pathParts)-common)
	for i := common; i < len(baseParts); i++ {
		segments = append(segments, "..")
	}
	segments = append(segments, pathParts[common:]...)
	return strings.Join(segments, "/"), nil
}

// IsWildcard reports whether the path contains pattern
// metacharacters.
func IsWildcard(path string) bool {
	return strings.ContainsAny(path, "*?[]!{}")
}

// IsDotFile reports whether the final component starts with a dot.
func IsDotFile(path string) bool {
	return strings.HasPrefix(Basename(path), ".")
}

// Depth counts the components in a normalized absolute path. The root
// has depth zero.
func Depth(path string) int {
	rel := Rel(strings.TrimRight(path, "/"))
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
