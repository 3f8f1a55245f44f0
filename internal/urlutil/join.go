package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// JoinPath safely joins URL paths, handling trailing and leading slashes correctly
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	// Preserve trailing slash if the last path component had one
	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		u.Path += "/"
	}

	return u.String(), nil
}

// MustJoinPath is like JoinPath but panics on error (for use with known-good URLs)
func MustJoinPath(base string, paths ...string) string {
	result, err := JoinPath(base, paths...)
	if err != nil {
		panic(err)
	}
	return result
}

// WithQuery appends q to the query already present on raw. Existing keys are kept.
func WithQuery(raw string, q url.Values) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(q) == 0 {
		return u.String(), nil
	}
	merged := u.Query()
	for k, vv := range q {
		for _, v := range vv {
			merged.Add(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

// Resolve turns ref into an absolute URL. Absolute refs are returned as-is;
// relative refs are joined onto base, treating base's path as a prefix.
func Resolve(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty url")
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q requires a base url", ref)
	}
	joined, err := JoinPath(base, r.Path)
	if err != nil {
		return "", err
	}
	if r.RawQuery == "" {
		return joined, nil
	}
	return WithQuery(joined, r.Query())
}

// IsAbsolute reports whether raw parses as a URL with both scheme and host
func IsAbsolute(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
