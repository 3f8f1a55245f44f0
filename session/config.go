package session

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dgellow/websession/internal/urlutil"
)

const (
	// DefaultMaxAttempts bounds how many times a request is sent when the
	// service keeps answering 403
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause after a 403 before logging in again
	DefaultRetryDelay = 300 * time.Millisecond

	// DefaultTokenSafetyMargin is subtracted from the advertised token lifetime
	// so a token never expires while a request is in flight
	DefaultTokenSafetyMargin = 60 * time.Second

	// DefaultCSRFField is the hidden form field carrying the sign-in CSRF token
	DefaultCSRFField = "_csrf"

	// DefaultPreferencesKey is the window global holding the user preferences
	DefaultPreferencesKey = "VIEWER_USERPREFERENCES"

	// DefaultProfileKey is the window global holding the social profile
	DefaultProfileKey = "VIEWER_SOCIAL_PROFILE"

	// DefaultMaxResponseBytes caps every response body the Session reads
	DefaultMaxResponseBytes = 32 << 20
)

// Config describes how to log in to the service and how to talk to it once
// logged in. It is copied at construction; the Session never mutates it.
type Config struct {
	// BaseURL is optional. Relative request URLs are resolved against it.
	BaseURL string

	// SignInURL serves the HTML login form and accepts the credential post.
	SignInURL string

	// ExchangeURL trades the session cookies for a short-lived bearer token.
	ExchangeURL string

	// SignInQuery is appended to SignInURL for both the form fetch and the post.
	SignInQuery url.Values

	// SignInForm is posted with the CSRF token added (typically username and password).
	SignInForm url.Values

	// SignInHeaders are sent on the form fetch and the credential post.
	SignInHeaders http.Header

	// BackendHeader and BackendValue form the fixed routing header sent on
	// every authenticated request. Skipped when BackendHeader is empty.
	BackendHeader string
	BackendValue  string

	// Cookies seeds the session with an existing cookie string. When set the
	// first request skips the login until the service rejects the cookies.
	Cookies string

	MaxAttempts       int
	RetryDelay        time.Duration
	TokenSafetyMargin time.Duration
	MaxResponseBytes  int64

	CSRFField      string
	PreferencesKey string
	ProfileKey     string
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.TokenSafetyMargin <= 0 {
		c.TokenSafetyMargin = DefaultTokenSafetyMargin
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if c.CSRFField == "" {
		c.CSRFField = DefaultCSRFField
	}
	if c.PreferencesKey == "" {
		c.PreferencesKey = DefaultPreferencesKey
	}
	if c.ProfileKey == "" {
		c.ProfileKey = DefaultProfileKey
	}
	c.SignInQuery = cloneValues(c.SignInQuery)
	c.SignInForm = cloneValues(c.SignInForm)
	c.SignInHeaders = c.SignInHeaders.Clone()
	return c
}

// Validate checks that the URLs needed for login are usable
func (c Config) Validate() error {
	if !urlutil.IsAbsolute(c.SignInURL) {
		return fmt.Errorf("sign-in url must be absolute, got %q", c.SignInURL)
	}
	if !urlutil.IsAbsolute(c.ExchangeURL) {
		return fmt.Errorf("exchange url must be absolute, got %q", c.ExchangeURL)
	}
	if c.BaseURL != "" && !urlutil.IsAbsolute(c.BaseURL) {
		return fmt.Errorf("base url must be absolute, got %q", c.BaseURL)
	}
	if c.BackendValue != "" && c.BackendHeader == "" {
		return fmt.Errorf("backend value set without a backend header name")
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vv := range v {
		out[k] = append([]string(nil), vv...)
	}
	return out
}
