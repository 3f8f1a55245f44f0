package session

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgellow/websession/internal/ioutil"
)

// OutcomeKind is the category a response status falls into
type OutcomeKind int

const (
	// OutcomeSuccess means the response can be handed to the caller
	OutcomeSuccess OutcomeKind = iota

	// OutcomeRetryableAuth means the session died; log in again and retry
	OutcomeRetryableAuth

	// OutcomeFatal means the request failed and retrying would not help
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableAuth:
		return "retryable_auth"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the classification of one response. Err is nil on success.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Classify maps a status code to an outcome. The kind depends on the status
// alone; method and url only label the error.
func Classify(method, url string, status int) Outcome {
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return Outcome{Kind: OutcomeSuccess}
	case http.StatusForbidden:
		return Outcome{
			Kind: OutcomeRetryableAuth,
			Err:  &RequestError{Method: method, URL: url, StatusCode: status},
		}
	case http.StatusTooManyRequests:
		return Outcome{
			Kind: OutcomeFatal,
			Err:  &TooManyRequestsError{Method: method, URL: url},
		}
	default:
		return Outcome{
			Kind: OutcomeFatal,
			Err:  &RequestError{Method: method, URL: url, StatusCode: status},
		}
	}
}

// classifyResponse classifies resp and attaches what the response carries
// beyond its status (body excerpt, Retry-After) to the error.
func classifyResponse(method, url string, resp *Response, now time.Time) Outcome {
	out := Classify(method, url, resp.StatusCode)
	switch err := out.Err.(type) {
	case *RequestError:
		err.Body = ioutil.Excerpt(resp.Body, maxErrorBody)
	case *TooManyRequestsError:
		err.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), now)
	}
	return out
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
