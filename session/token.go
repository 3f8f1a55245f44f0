package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dgellow/websession/internal/crypto"
	"github.com/dgellow/websession/internal/ioutil"
	"github.com/dgellow/websession/internal/log"
	"golang.org/x/oauth2"
)

// BearerToken returns the cached bearer token, exchanging the session
// cookies for a new one when it has expired. It does not log in; call
// EnsureSession first.
func (s *Session) BearerToken(ctx context.Context) (string, error) {
	tok, err := s.bearerToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (s *Session) bearerToken(ctx context.Context) (*oauth2.Token, error) {
	if tok, ok := s.cachedToken(); ok {
		return tok, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(flightToken, func() (any, error) {
		return s.exchangeToken(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		tok := *res.Val.(*oauth2.Token)
		return &tok, nil
	}
}

// TokenSource exposes the bearer token cache as an oauth2.TokenSource. Each
// Token call makes sure a session exists and returns a valid token.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, s: s}
}

type tokenSource struct {
	ctx context.Context
	s   *Session
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	if err := ts.s.EnsureSession(ts.ctx, false); err != nil {
		return nil, err
	}
	return ts.s.bearerToken(ts.ctx)
}

// cachedToken returns a copy of the cached token while now < expiry
func (s *Session) cachedToken() (*oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.token == nil || !s.clock.Now().Before(s.state.token.Expiry) {
		return nil, false
	}
	tok := *s.state.token
	return &tok, true
}

func (s *Session) exchangeToken(ctx context.Context) (*oauth2.Token, error) {
	// Another caller may have refreshed while this one waited to start
	if tok, ok := s.cachedToken(); ok {
		return tok, nil
	}

	var tok *oauth2.Token
	for try := 0; try < 2; try++ {
		cookies, gen := s.cookiesAndGeneration()
		var err error
		tok, err = s.exchangeCookies(ctx, cookies)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		current := s.state.generation == gen
		if current {
			s.state.token = tok
		}
		s.mu.Unlock()
		if current {
			copied := *tok
			return &copied, nil
		}
		// A login replaced the cookies while the exchange was in flight
		log.LogInfoWithFields("token", "Discarding token exchanged for a replaced session", map[string]any{
			"session": crypto.Fingerprint(cookies),
		})
	}

	// Still racing logins: hand the token out without caching it
	copied := *tok
	return &copied, nil
}

func (s *Session) exchangeCookies(ctx context.Context, cookies string) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ExchangeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building token exchange request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body, s.cfg.MaxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading token exchange response: %w", err)
	}

	now := s.clock.Now()
	out := classifyResponse(http.MethodPost, s.cfg.ExchangeURL, &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, now)
	if out.Kind != OutcomeSuccess {
		log.LogWarnWithFields("token", "Token exchange rejected", map[string]any{
			"status":  resp.StatusCode,
			"session": crypto.Fingerprint(cookies),
		})
		return nil, out.Err
	}

	var dto bearerToken
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, &UnexpectedResponseError{URL: s.cfg.ExchangeURL, Key: "access_token", Err: err}
	}
	access, expiresIn := dto.token()
	if access == "" {
		return nil, &UnexpectedResponseError{URL: s.cfg.ExchangeURL, Key: "access_token"}
	}

	tok := &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      now.Add(time.Duration(expiresIn)*time.Second - s.cfg.TokenSafetyMargin),
	}

	log.LogDebugWithFields("token", "Exchanged cookies for bearer token", map[string]any{
		"expiresIn": expiresIn,
		"expiry":    tok.Expiry,
		"tokenID":   crypto.Fingerprint(access),
	})
	return tok, nil
}
