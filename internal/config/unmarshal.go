package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgellow/websession/internal/log"
)

// UnmarshalJSON implements custom unmarshaling for ServiceConfig
func (s *ServiceConfig) UnmarshalJSON(data []byte) error {
	type rawService struct {
		BaseURL       json.RawMessage `json:"baseURL"`
		SignInURL     json.RawMessage `json:"signInURL"`
		ExchangeURL   json.RawMessage `json:"exchangeURL"`
		BackendHeader string          `json:"backendHeader"`
		BackendValue  json.RawMessage `json:"backendValue"`
		Cookies       json.RawMessage `json:"cookies"`
	}

	var raw rawService
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.BackendHeader = raw.BackendHeader

	fields := []struct {
		name string
		raw  json.RawMessage
		dst  *string
	}{
		{"baseURL", raw.BaseURL, &s.BaseURL},
		{"signInURL", raw.SignInURL, &s.SignInURL},
		{"exchangeURL", raw.ExchangeURL, &s.ExchangeURL},
		{"backendValue", raw.BackendValue, &s.BackendValue},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		value, err := ParseConfigValue(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f.name, err)
		}
		*f.dst = value
	}

	if raw.Cookies != nil {
		value, err := ParseConfigValue(raw.Cookies)
		if err != nil {
			return fmt.Errorf("parsing cookies: %w", err)
		}
		s.Cookies = Secret(value)
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for SignInConfig
func (s *SignInConfig) UnmarshalJSON(data []byte) error {
	type rawSignIn struct {
		Query          map[string]json.RawMessage `json:"query"`
		Form           map[string]json.RawMessage `json:"form"`
		Headers        map[string]json.RawMessage `json:"headers"`
		CSRFField      string                     `json:"csrfField"`
		PreferencesKey string                     `json:"preferencesKey"`
		ProfileKey     string                     `json:"profileKey"`
	}

	var raw rawSignIn
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.CSRFField = raw.CSRFField
	s.PreferencesKey = raw.PreferencesKey
	s.ProfileKey = raw.ProfileKey

	if len(raw.Query) > 0 {
		values, err := ParseConfigValueMap(raw.Query)
		if err != nil {
			return fmt.Errorf("parsing query: %w", err)
		}
		s.Query = values
	}

	if len(raw.Headers) > 0 {
		values, err := ParseConfigValueMap(raw.Headers)
		if err != nil {
			return fmt.Errorf("parsing headers: %w", err)
		}
		s.Headers = values
	}

	// Form values carry credentials, keep them redacted from here on
	if len(raw.Form) > 0 {
		values, err := ParseConfigValueMap(raw.Form)
		if err != nil {
			return fmt.Errorf("parsing form: %w", err)
		}
		s.Form = make(map[string]Secret, len(values))
		for k, v := range values {
			s.Form[k] = Secret(v)
		}
		log.LogTraceWithFields("config", "Parsed sign-in form", map[string]any{
			"fields": len(s.Form),
		})
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for RetryConfig
func (r *RetryConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		MaxAttempts int    `json:"maxAttempts"`
		Delay       string `json:"delay"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.MaxAttempts = raw.MaxAttempts
	if raw.Delay != "" {
		delay, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("parsing delay: %w", err)
		}
		r.Delay = delay
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for TokenConfig
func (t *TokenConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		SafetyMargin string `json:"safetyMargin"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.SafetyMargin != "" {
		margin, err := time.ParseDuration(raw.SafetyMargin)
		if err != nil {
			return fmt.Errorf("parsing safetyMargin: %w", err)
		}
		t.SafetyMargin = margin
	}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for HTTPConfig
func (h *HTTPConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timeout           string  `json:"timeout"`
		RequestsPerSecond float64 `json:"requestsPerSecond"`
		Burst             int     `json:"burst"`
		RequestIDHeader   string  `json:"requestIDHeader"`
		MaxResponseBytes  int64   `json:"maxResponseBytes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	h.RequestsPerSecond = raw.RequestsPerSecond
	h.Burst = raw.Burst
	h.RequestIDHeader = raw.RequestIDHeader
	h.MaxResponseBytes = raw.MaxResponseBytes

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		h.Timeout = timeout
	}
	return nil
}
