package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgellow/websession/internal/ioutil"
	"github.com/dgellow/websession/internal/log"
	"github.com/dgellow/websession/internal/urlutil"
	"github.com/google/uuid"
)

// Get issues an authenticated GET and decodes the JSON body into T. An empty
// body (204) yields the zero value.
func Get[T any](ctx context.Context, s *Session, url string) (T, error) {
	var out T
	resp, err := s.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return out, err
	}
	if err := decodeBody(resp, &out); err != nil {
		return out, fmt.Errorf("decoding GET %s: %w", url, err)
	}
	return out, nil
}

// GetJSON is the non-generic form of Get
func (s *Session) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := s.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := decodeBody(resp, v); err != nil {
		return fmt.Errorf("decoding GET %s: %w", url, err)
	}
	return nil
}

// Put issues an authenticated PUT with body encoded as JSON
func (s *Session) Put(ctx context.Context, url string, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding PUT body: %w", err)
	}
	return s.Do(ctx, http.MethodPut, url, data)
}

// Do sends an authenticated request, logging in and refreshing the bearer
// token as needed. A 403 is taken to mean the session died: the Session logs
// in again and retries, up to MaxAttempts sends in total. Any other
// non-success status is returned at once as a *RequestError or
// *TooManyRequestsError. When every attempt is rejected with 403 the result
// is an *AuthenticationError wrapping the last rejection.
//
// Relative urls are resolved against Config.BaseURL. A non-nil body is sent
// as application/json.
func (s *Session) Do(ctx context.Context, method, url string, body []byte) (*Response, error) {
	target, err := urlutil.Resolve(s.cfg.BaseURL, url)
	if err != nil {
		return nil, fmt.Errorf("resolving url: %w", err)
	}
	requestID := uuid.NewString()

	b := s.newBackOff()
	b.Reset()

	var (
		force   bool
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, out, err := s.attempt(ctx, method, target, body, requestID, force)
		if err != nil {
			return nil, err
		}

		switch out.Kind {
		case OutcomeSuccess:
			return resp, nil
		case OutcomeFatal:
			log.LogDebugWithFields("session", "Request failed", map[string]any{
				"requestID": requestID,
				"method":    method,
				"url":       target,
				"error":     out.Err.Error(),
			})
			return nil, out.Err
		}

		lastErr = out.Err
		log.LogInfoWithFields("session", "Session rejected, logging in again", map[string]any{
			"requestID": requestID,
			"method":    method,
			"url":       target,
			"attempt":   attempt,
		})

		if attempt == s.cfg.MaxAttempts {
			break
		}
		wait := b.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
		force = true
	}

	log.LogWarnWithFields("session", "Giving up after repeated 403 responses", map[string]any{
		"requestID": requestID,
		"method":    method,
		"url":       target,
		"attempts":  attempt,
	})
	return nil, &AuthenticationError{Attempts: attempt, Err: lastErr}
}

// attempt runs one pass of the request loop. A non-nil error aborts the
// loop; otherwise the outcome decides what happens next.
func (s *Session) attempt(ctx context.Context, method, target string, body []byte, requestID string, force bool) (*Response, Outcome, error) {
	if err := s.EnsureSession(ctx, force); err != nil {
		return nil, Outcome{}, err
	}

	token, err := s.BearerToken(ctx)
	if err != nil {
		// A dead cookie session also shows up as a rejected exchange
		if IsForbidden(err) {
			return nil, Outcome{Kind: OutcomeRetryableAuth, Err: err}, nil
		}
		return nil, Outcome{}, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, Outcome{}, err
		}
	}

	resp, err := s.send(ctx, method, target, body, token, requestID)
	if err != nil {
		return nil, Outcome{}, err
	}
	return resp, classifyResponse(method, target, resp, s.clock.Now()), nil
}

func (s *Session) send(ctx context.Context, method, target string, body []byte, token, requestID string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookies := s.Cookies(); cookies != "" {
		req.Header.Set("Cookie", cookies)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if s.cfg.BackendHeader != "" {
		req.Header.Set(s.cfg.BackendHeader, s.cfg.BackendValue)
	}
	if s.requestIDHeader != "" {
		req.Header.Set(s.requestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body, s.cfg.MaxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, target, err)
	}

	log.LogTraceWithFields("session", "Request completed", map[string]any{
		"requestID": requestID,
		"method":    method,
		"url":       target,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	})

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func decodeBody(resp *Response, v any) error {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body, v)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
