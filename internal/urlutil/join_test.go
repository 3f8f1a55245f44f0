package urlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		paths   []string
		want    string
		wantErr bool
	}{
		{
			name:  "simple join",
			base:  "https://example.com",
			paths: []string{"api", "v1"},
			want:  "https://example.com/api/v1",
		},
		{
			name:  "base with path",
			base:  "https://example.com/base",
			paths: []string{"api", "v1"},
			want:  "https://example.com/base/api/v1",
		},
		{
			name:  "trailing slash preserved",
			base:  "https://example.com",
			paths: []string{"api", "v1/"},
			want:  "https://example.com/api/v1/",
		},
		{
			name:  "well-known path",
			base:  "https://example.com",
			paths: []string{".well-known", "oauth-protected-resource"},
			want:  "https://example.com/.well-known/oauth-protected-resource",
		},
		{
			name:  "empty paths",
			base:  "https://example.com",
			paths: []string{},
			want:  "https://example.com",
		},
		{
			name:  "base with trailing slash",
			base:  "https://example.com/",
			paths: []string{"api"},
			want:  "https://example.com/api",
		},
		{
			name:    "invalid base URL",
			base:    "://invalid",
			paths:   []string{"api"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JoinPath(tt.base, tt.paths...)
			if (err != nil) != tt.wantErr {
				t.Errorf("JoinPath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("JoinPath() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustJoinPath(t *testing.T) {
	// Test normal operation
	result := MustJoinPath("https://example.com", "api", "v1")
	if result != "https://example.com/api/v1" {
		t.Errorf("MustJoinPath() = %v, want %v", result, "https://example.com/api/v1")
	}

	// Test panic on invalid URL
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustJoinPath() should have panicked")
		}
	}()
	MustJoinPath("://invalid", "api")
}

func TestWithQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		q    url.Values
		want string
	}{
		{
			name: "no query",
			raw:  "https://sso.example.com/signin",
			q:    nil,
			want: "https://sso.example.com/signin",
		},
		{
			name: "adds params",
			raw:  "https://sso.example.com/signin",
			q:    url.Values{"service": {"https://app.example.com"}},
			want: "https://sso.example.com/signin?service=https%3A%2F%2Fapp.example.com",
		},
		{
			name: "keeps existing params",
			raw:  "https://sso.example.com/signin?locale=en",
			q:    url.Values{"embed": {"false"}},
			want: "https://sso.example.com/signin?embed=false&locale=en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithQuery(tt.raw, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		ref     string
		want    string
		wantErr bool
	}{
		{
			name: "absolute ref ignores base",
			base: "https://app.example.com/api",
			ref:  "https://other.example.com/x",
			want: "https://other.example.com/x",
		},
		{
			name: "relative ref uses base path as prefix",
			base: "https://app.example.com/api",
			ref:  "/users/42",
			want: "https://app.example.com/api/users/42",
		},
		{
			name: "relative ref keeps query",
			base: "https://app.example.com",
			ref:  "items?limit=10",
			want: "https://app.example.com/items?limit=10",
		},
		{
			name:    "relative ref without base",
			base:    "",
			ref:     "/users",
			wantErr: true,
		},
		{
			name:    "empty ref",
			base:    "https://app.example.com",
			ref:     "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.base, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAbsolute(t *testing.T) {
	assert.True(t, IsAbsolute("https://example.com/signin"))
	assert.False(t, IsAbsolute("/signin"))
	assert.False(t, IsAbsolute("example.com"))
}
