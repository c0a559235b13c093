// Package wildcard matches resource names against shell-style
// patterns. '*' matches any run of characters except '/', '?' matches
// a single character except '/', and '[seq]' matches a character
// class. Compiled patterns are memoized in an LRU keyed on the pattern
// text and case sensitivity.
package wildcard

import (
	"regexp"
	"strings"

	"github.com/anyfs/anyfs/internal/cache"
)

type patternKey struct {
	pattern       string
	caseSensitive bool
}

var patternCache = cache.NewLRU[patternKey, *regexp.Regexp](1000)

func compile(pattern string, caseSensitive bool) *regexp.Regexp {
	key := patternKey{pattern: pattern, caseSensitive: caseSensitive}
	return patternCache.GetOrCompute(key, func() *regexp.Regexp {
		expr := `(?ms)\A` + Translate(pattern, caseSensitive) + `\z`
		if !caseSensitive {
			expr = `(?i)` + expr
		}
		return regexp.MustCompile(expr)
	})
}

// Match reports whether name matches pattern, case sensitively.
func Match(pattern, name string) bool {
	return compile(pattern, true).MatchString(name)
}

// IMatch reports whether name matches pattern, ignoring case.
func IMatch(pattern, name string) bool {
	return compile(pattern, false).MatchString(name)
}

// MatchAny reports whether name matches any of the patterns. An empty
// pattern list matches everything.
func MatchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if Match(pattern, name) {
			return true
		}
	}
	return false
}

// IMatchAny is MatchAny ignoring case.
func IMatchAny(patterns []string, name string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if IMatch(pattern, name) {
			return true
		}
	}
	return false
}

// Matcher returns a match function bound to the given patterns and
// case sensitivity, for callers that test many names against one
// pattern set.
func Matcher(patterns []string, caseSensitive bool) func(name string) bool {
	if len(patterns) == 0 {
		return func(string) bool { return true }
	}
	if caseSensitive {
		return func(name string) bool { return MatchAny(patterns, name) }
	}
	return func(name string) bool { return IMatchAny(patterns, name) }
}

// Translate converts a wildcard pattern to a regular expression
// fragment. The fragment is unanchored; callers add anchors and flags.
func Translate(pattern string, caseSensitive bool) string {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
	}
	var res strings.Builder
	i, n := 0, len(pattern)
	for i < n {
		c := pattern[i]
		i++
		switch c {
		case '*':
			res.WriteString("[^/]*")
		case '?':
			res.WriteString("[^/]")
		case '[':
			j := i
			if j < n && pattern[j] == '!' {
				j++
			}
			if j < n && pattern[j] == ']' {
				j++
			}
			for j < n && pattern[j] != ']' {
				j++
			}
			if j >= n {
				res.WriteString(`\[`)
			} else {
				stuff := strings.ReplaceAll(pattern[i:j], `\`, `\\`)
				i = j + 1
				if strings.HasPrefix(stuff, "!") {
					stuff = "^" + stuff[1:]
				} else if strings.HasPrefix(stuff, "^") {
					stuff = `\` + stuff
				}
				res.WriteString("[" + stuff + "]")
			}
		default:
			res.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return res.String()
}
