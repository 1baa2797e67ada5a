package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/api/*", "/api/users", true},
		{"/api/*", "/api/users/42", true},
		{"/api/*", "/api/", true},
		{"/api/*", "/api", false},
		{"/api/*", "/v2/api/users", false},
		{"*", "/anything/at/all", true},
		{"/health", "/health", true},
		{"/health", "/healthz", false},
		{"/item?", "/item1", true},
		{"/item?", "/item12", false},
		{"/item?", "/item", false},
		{"/a/*/c", "/a/b/c", true},
		{"/a/*/c", "/a/c", false},
		{"/docs/*.html", "/docs/index.html", true},
		{"/docs/*.html", "/docs/index.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" vs "+tt.path, func(t *testing.T) {
			m, err := NewPathMatcher(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Matches(tt.path))
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func TestPathMatcherEscapesRegexMeta(t *testing.T) {
	// Dots and plus signs in patterns are literals, not regex operators.
	m, err := NewPathMatcher("/v1.0/items")
	require.NoError(t, err)

	assert.True(t, m.Matches("/v1.0/items"))
	assert.False(t, m.Matches("/v1x0/items"))
}

func TestMatchesMethod(t *testing.T) {
	assert.True(t, matchesMethod("GET", []string{"GET", "POST"}))
	assert.True(t, matchesMethod("DELETE", []string{"*"}))
	assert.False(t, matchesMethod("PUT", []string{"GET", "POST"}))
	assert.False(t, matchesMethod("GET", nil))
}
