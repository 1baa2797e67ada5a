package policy

import (
	"regexp"
	"strings"
)

// PathMatcher matches request paths against an anchored glob pattern:
// '*' matches any run of characters, '?' matches exactly one.
type PathMatcher struct {
	pattern string
	regex   *regexp.Regexp
}

// NewPathMatcher compiles a glob pattern into a matcher.
func NewPathMatcher(pattern string) (*PathMatcher, error) {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `.*`)
	escaped = strings.ReplaceAll(escaped, `\?`, `.`)

	regex, err := regexp.Compile("^" + escaped + "$")
	if err != nil {
		return nil, err
	}

	return &PathMatcher{pattern: pattern, regex: regex}, nil
}

// Matches reports whether the path matches the pattern.
func (m *PathMatcher) Matches(path string) bool {
	return m.regex.MatchString(path)
}

// Pattern returns the original glob pattern.
func (m *PathMatcher) Pattern() string {
	return m.pattern
}

// matchesAnyPath reports whether the path matches at least one pattern.
func matchesAnyPath(path string, matchers []*PathMatcher) bool {
	for _, m := range matchers {
		if m.Matches(path) {
			return true
		}
	}
	return false
}

// matchesMethod reports whether the method is listed or a wildcard is.
func matchesMethod(method string, methods []string) bool {
	for _, m := range methods {
		if m == "*" || m == method {
			return true
		}
	}
	return false
}
