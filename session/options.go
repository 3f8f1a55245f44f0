package session

import (
	"net/http"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgellow/websession/scrape"
	"golang.org/x/time/rate"
)

// Option configures a Session
type Option func(*Session)

// WithHTTPClient sets the client used for every outbound call (timeouts,
// TLS, proxies and pooling all live there)
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTransport sets the RoundTripper of the default client
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) {
		if rt != nil {
			s.httpClient = &http.Client{Transport: rt}
		}
	}
}

// WithClock sets the clock used for token expiry (for testing)
func WithClock(clock Clock) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithExtractor swaps the strategy used to scrape the login pages
func WithExtractor(e scrape.Extractor) Option {
	return func(s *Session) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithRateLimiter makes every authenticated request wait on l before it is sent
func WithRateLimiter(l *rate.Limiter) Option {
	return func(s *Session) {
		s.limiter = l
	}
}

// WithRequestIDHeader sends the per-request correlation id under the given
// header name. The id is always logged; by default it is not sent.
func WithRequestIDHeader(name string) Option {
	return func(s *Session) {
		s.requestIDHeader = name
	}
}

// WithRetryBackoff sets the delay policy applied between 403 retries. A new
// BackOff is created for every request. Returning backoff.Stop ends the
// retries early.
func WithRetryBackoff(newBackOff func() backoff.BackOff) Option {
	return func(s *Session) {
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}
