package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgellow/websession/internal/ioutil"
	"github.com/dgellow/websession/internal/log"
	"github.com/dgellow/websession/internal/urlutil"
	"github.com/dgellow/websession/scrape"
)

// Login steps, as reported in AuthenticationError.Step
const (
	StepSignInPage   = "sign-in page"
	StepCSRF         = "csrf token"
	StepCredentials  = "credential submission"
	StepContinuation = "continuation url"
	StepTicket       = "ticket page"
	StepProfile      = "profile extraction"
)

type loginResult struct {
	cookies     string
	preferences *Preferences
	profile     *Profile
}

func (s *Session) runLogin(ctx context.Context) (*loginResult, error) {
	signInURL, err := urlutil.WithQuery(s.cfg.SignInURL, s.cfg.SignInQuery)
	if err != nil {
		return nil, &AuthenticationError{Step: StepSignInPage, Err: err}
	}

	page, _, err := s.loginCall(ctx, http.MethodGet, signInURL, s.cfg.SignInHeaders, nil)
	if err != nil {
		return nil, &AuthenticationError{Step: StepSignInPage, Err: err}
	}

	csrf, err := s.extractor.HiddenInput(page, s.cfg.CSRFField)
	if err != nil {
		return nil, &AuthenticationError{Step: StepCSRF, Err: err}
	}
	log.LogTraceWithFields("login", "Found CSRF token", map[string]any{
		"field": s.cfg.CSRFField,
	})

	form := cloneValues(s.cfg.SignInForm)
	if form == nil {
		form = url.Values{}
	}
	form.Set(s.cfg.CSRFField, csrf)

	headers := s.cfg.SignInHeaders.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")

	page, header, err := s.loginCall(ctx, http.MethodPost, signInURL, headers, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthenticationError{Step: StepCredentials, Err: err}
	}

	ticketURL, err := scrape.TicketURL(page)
	if err != nil {
		return nil, &AuthenticationError{
			Step: StepContinuation,
			Err:  fmt.Errorf("invalid credentials or changed login page: %w", err),
		}
	}

	cookies := JoinSetCookies(header)
	log.LogTraceWithFields("login", "Credentials accepted", map[string]any{
		"cookieCount": len(header.Values("Set-Cookie")),
	})

	ticketHeaders := http.Header{}
	if cookies != "" {
		ticketHeaders.Set("Cookie", cookies)
	}
	page, _, err = s.loginCall(ctx, http.MethodGet, ticketURL, ticketHeaders, nil)
	if err != nil {
		return nil, &AuthenticationError{Step: StepTicket, Err: err}
	}

	res := &loginResult{cookies: cookies, preferences: &Preferences{}, profile: &Profile{}}
	if res.preferences.Raw, err = s.embedded(page, ticketURL, s.cfg.PreferencesKey, res.preferences); err != nil {
		return nil, err
	}
	if res.profile.Raw, err = s.embedded(page, ticketURL, s.cfg.ProfileKey, res.profile); err != nil {
		return nil, err
	}
	return res, nil
}

// embedded decodes the JSON assigned to window.<key> into dst and returns the raw bytes
func (s *Session) embedded(page []byte, pageURL, key string, dst any) (json.RawMessage, error) {
	raw, err := s.extractor.GlobalJSON(page, key)
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err != nil {
		if !errors.Is(err, scrape.ErrNotFound) && !errors.Is(err, scrape.ErrMalformed) {
			err = fmt.Errorf("decoding %s: %w", key, err)
		}
		return nil, &UnexpectedResponseError{URL: pageURL, Key: key, Err: err}
	}
	return raw, nil
}

// loginCall performs one unauthenticated login request and requires a success status
func (s *Session) loginCall(ctx context.Context, method, target string, header http.Header, body io.Reader) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, fmt.Errorf("building request: %w", err)
	}
	for k, vv := range header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body, s.cfg.MaxResponseBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s response: %w", method, err)
	}

	out := classifyResponse(method, target, &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, s.clock.Now())
	if out.Kind != OutcomeSuccess {
		return nil, nil, out.Err
	}
	return data, resp.Header, nil
}

// JoinSetCookies flattens every Set-Cookie value of a response into one
// string, joined with ";". The result is replayed verbatim as the Cookie
// header; attributes such as Path are not interpreted.
func JoinSetCookies(h http.Header) string {
	return strings.Join(h.Values("Set-Cookie"), ";")
}
