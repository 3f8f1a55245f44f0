package scrape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
)

// Regexp is an Extractor working directly on the raw markup. It expects the
// exact shapes the sign-in pages print:
//
//	<input type="hidden" name="_csrf" value="TOKEN" />
//	window.VIEWER_SOCIAL_PROFILE = {...};
//
// The zero value is ready to use.
type Regexp struct {
	hidden  sync.Map // name -> *regexp.Regexp
	globals sync.Map // name -> *regexp.Regexp
}

// NewRegexp returns a Regexp extractor
func NewRegexp() *Regexp {
	return &Regexp{}
}

func (r *Regexp) HiddenInput(page []byte, name string) (string, error) {
	re := cachedPattern(&r.hidden, name, func(n string) string {
		return `name="` + regexp.QuoteMeta(n) + `"\s+value="([^"]*)"`
	})
	m := re.FindSubmatch(page)
	if m == nil || len(m[1]) == 0 {
		return "", fmt.Errorf("%w: input %q", ErrNotFound, name)
	}
	return string(m[1]), nil
}

func (r *Regexp) GlobalJSON(page []byte, name string) (json.RawMessage, error) {
	re := cachedPattern(&r.globals, name, globalPattern)
	m := re.FindSubmatch(page)
	if m == nil {
		return nil, fmt.Errorf("%w: window.%s", ErrNotFound, name)
	}
	return decodeGlobal(name, m[1])
}

// globalPattern matches one assignment. The value ends at the first ";" that
// closes the line, the script, or precedes another window assignment.
func globalPattern(name string) string {
	return `(?m)window\.` + regexp.QuoteMeta(name) + `\s*=\s*(.*?);[ \t\r]*(?:$|window\.|</script>)`
}

func cachedPattern(cache *sync.Map, name string, build func(string) string) *regexp.Regexp {
	if v, ok := cache.Load(name); ok {
		return v.(*regexp.Regexp)
	}
	re := regexp.MustCompile(build(name))
	v, _ := cache.LoadOrStore(name, re)
	return v.(*regexp.Regexp)
}
