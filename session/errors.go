package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is kept on a RequestError
const maxErrorBody = 4 << 10

// AuthenticationError reports a failed login step, or a request that kept
// being rejected with 403 until the attempt budget ran out. Err holds the
// underlying cause.
type AuthenticationError struct {
	// Step names the login step that failed. Empty when retries were exhausted.
	Step string

	// Attempts is set when retries were exhausted.
	Attempts int

	Err error
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder
	b.WriteString("authentication failed")
	switch {
	case e.Attempts > 0:
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	case e.Step != "":
		fmt.Fprintf(&b, " during %s", e.Step)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RequestError is a non-success HTTP status that retrying would not fix
type RequestError struct {
	Method     string
	URL        string
	StatusCode int

	// Body is the start of the response body, for diagnostics.
	Body []byte
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s %s: http %d", strings.ToUpper(e.Method), e.URL, e.StatusCode)
	if text := http.StatusText(e.StatusCode); text != "" {
		msg += " " + text
	}
	return msg
}

// TooManyRequestsError is returned for 429 responses. It is never retried
// here; callers apply their own throttling.
type TooManyRequestsError struct {
	Method string
	URL    string

	// RetryAfter is parsed from the Retry-After header when present.
	RetryAfter time.Duration
}

func (e *TooManyRequestsError) Error() string {
	msg := fmt.Sprintf("%s %s: too many requests", strings.ToUpper(e.Method), e.URL)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// UnexpectedResponseError means a response looked well-formed but lacked
// data that should always be there
type UnexpectedResponseError struct {
	URL string
	Key string
	Err error
}

func (e *UnexpectedResponseError) Error() string {
	msg := fmt.Sprintf("unexpected response: missing %s", e.Key)
	if e.URL != "" {
		msg = fmt.Sprintf("unexpected response from %s: missing %s", e.URL, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnexpectedResponseError) Unwrap() error { return e.Err }

// IsForbidden reports whether err carries a 403 response
func IsForbidden(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.StatusCode == http.StatusForbidden
}
