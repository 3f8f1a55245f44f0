// Package session keeps an authenticated session with a web service that
// only offers a browser-style login: an HTML sign-in form guarded by a CSRF
// token, a cookie-carrying continuation page, and a cookie-for-bearer-token
// exchange. Callers issue plain GET and PUT requests; the Session logs in,
// refreshes the bearer token, and retries when the service answers 403.
//
// A Session is safe for concurrent use. Concurrent callers that find the
// session or token stale share a single in-flight login or exchange.
package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgellow/websession/internal/crypto"
	"github.com/dgellow/websession/internal/log"
	"github.com/dgellow/websession/scrape"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	flightLogin = "login"
	flightToken = "token"
)

// Session owns the authentication state for one account on one service
type Session struct {
	cfg             Config
	httpClient      *http.Client
	clock           Clock
	extractor       scrape.Extractor
	limiter         *rate.Limiter
	requestIDHeader string
	newBackOff      func() backoff.BackOff

	group singleflight.Group // Deduplicates concurrent logins and token exchanges

	mu    sync.Mutex
	state state
}

// state is only read or written with Session.mu held
type state struct {
	cookies     string
	token       *oauth2.Token
	preferences *Preferences
	profile     *Profile

	// established is false until the first login (or seeded cookies)
	established bool

	// stale requests a fresh login on the next EnsureSession
	stale bool

	// generation counts successful logins. A token is only cached when the
	// cookies it was exchanged for still belong to the current generation.
	generation uint64
}

// New creates a Session. No network call is made until the first request.
func New(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:        cfg,
		httpClient: &http.Client{},
		clock:      SystemClock{},
		extractor:  scrape.NewRegexp(),
	}
	s.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(s.cfg.RetryDelay)
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.Cookies != "" {
		s.state.cookies = cfg.Cookies
		s.state.established = true
	}

	return s, nil
}

// EnsureSession logs in when force is set, when MarkStale was called, or
// when no session exists yet. Otherwise it returns immediately. On failure
// the previous cookies, profile and preferences are kept.
func (s *Session) EnsureSession(ctx context.Context, force bool) error {
	if !force && !s.needsLogin() {
		return nil
	}

	// The login is shared, so it must outlive a cancelled caller
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightLogin, func() (any, error) {
		// A login that finished while this caller waited to start is good enough
		if !force && !s.needsLogin() {
			return nil, nil
		}
		return nil, s.login(flightCtx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Session) needsLogin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.stale || !s.state.established
}

// MarkStale makes the next EnsureSession perform a full login
func (s *Session) MarkStale() {
	s.mu.Lock()
	s.state.stale = true
	s.mu.Unlock()
}

// Cookies returns the cookie string sent with every authenticated request
func (s *Session) Cookies() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cookies
}

func (s *Session) cookiesAndGeneration() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.cookies, s.state.generation
}

// Profile returns a copy of the profile captured at the last login, or nil
func (s *Session) Profile() *Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.profile == nil {
		return nil
	}
	p := *s.state.profile
	return &p
}

// Preferences returns a copy of the preferences captured at the last login, or nil
func (s *Session) Preferences() *Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.preferences == nil {
		return nil
	}
	p := *s.state.preferences
	return &p
}

// login runs the login protocol and swaps the new state in on success
func (s *Session) login(ctx context.Context) error {
	s.mu.Lock()
	if s.state.token != nil {
		s.state.token.Expiry = s.clock.Now()
	}
	s.mu.Unlock()

	log.LogDebugWithFields("session", "Logging in", map[string]any{
		"signInURL": s.cfg.SignInURL,
	})

	res, err := s.runLogin(ctx)
	if err != nil {
		log.LogWarnWithFields("session", "Login failed", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	s.mu.Lock()
	s.state.cookies = res.cookies
	s.state.preferences = res.preferences
	s.state.profile = res.profile
	s.state.established = true
	s.state.stale = false
	s.state.generation++
	s.state.token = nil
	s.mu.Unlock()

	log.LogInfoWithFields("session", "Logged in", map[string]any{
		"session":     crypto.Fingerprint(res.cookies),
		"displayName": res.profile.DisplayName,
	})

	return nil
}
