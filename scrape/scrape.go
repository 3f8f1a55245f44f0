// Package scrape pulls the handful of values a browser-style login flow needs
// out of server-rendered HTML: hidden form fields, JSON blobs assigned to
// window globals, and the continuation (ticket) URL printed after a
// successful credential post.
//
// Two Extractor implementations are provided. Regexp matches the raw markup
// and is the default; DOM parses the page with golang.org/x/net/html first and
// is more tolerant of attribute order and whitespace.
package scrape

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotFound is returned when the requested value is absent from the page
	ErrNotFound = errors.New("not found in page")

	// ErrMalformed is returned when a value is present but cannot be used
	ErrMalformed = errors.New("malformed value in page")
)

// Extractor finds named values in an HTML page.
type Extractor interface {
	// HiddenInput returns the value of the form field with the given name.
	HiddenInput(page []byte, name string) (string, error)

	// GlobalJSON returns the JSON assigned to window.<name>. A JSON null is
	// reported as ErrNotFound.
	GlobalJSON(page []byte, name string) (json.RawMessage, error)
}

var ticketURLPattern = regexp.MustCompile(`"(https:[^"]+?ticket=[^"]+)"`)

// TicketURL finds the quoted absolute https URL carrying a ticket= parameter
// that the sign-in endpoint embeds after accepting credentials. Backslashes
// left over from JavaScript string escaping are removed.
func TicketURL(page []byte) (string, error) {
	m := ticketURLPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: ticket url", ErrNotFound)
	}
	return strings.ReplaceAll(string(m[1]), `\`, ""), nil
}

// decodeGlobal turns the right-hand side of a window.<name> assignment into
// JSON. Both bare literals and JSON.parse("...") wrappers are accepted.
func decodeGlobal(name string, rhs []byte) (json.RawMessage, error) {
	rhs = bytes.TrimSpace(rhs)
	if inner, ok := unwrapJSONParse(rhs); ok {
		rhs = inner
	}
	rhs = bytes.ReplaceAll(rhs, []byte(`\"`), []byte(`"`))

	if len(rhs) == 0 || bytes.Equal(rhs, []byte("null")) {
		return nil, fmt.Errorf("%w: window.%s", ErrNotFound, name)
	}
	if !json.Valid(rhs) {
		return nil, fmt.Errorf("%w: window.%s is not valid JSON", ErrMalformed, name)
	}
	return json.RawMessage(rhs), nil
}

func unwrapJSONParse(rhs []byte) ([]byte, bool) {
	const prefix = "JSON.parse("
	if !bytes.HasPrefix(rhs, []byte(prefix)) || !bytes.HasSuffix(rhs, []byte(")")) {
		return nil, false
	}
	inner := bytes.TrimSpace(rhs[len(prefix) : len(rhs)-1])
	if len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0] {
		return inner[1 : len(inner)-1], true
	}
	return nil, false
}
