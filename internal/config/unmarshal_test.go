package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		envVars       map[string]string
		expectedValue string
		expectedError bool
	}{
		{
			name:          "plain string",
			input:         `"hello world"`,
			expectedValue: "hello world",
		},
		{
			name:          "env reference",
			input:         `{"$env": "TEST_VAR"}`,
			envVars:       map[string]string{"TEST_VAR": "test value"},
			expectedValue: "test value",
		},
		{
			name:          "env reference with double quotes",
			input:         `{"$env": "QUOTED_VAR"}`,
			envVars:       map[string]string{"QUOTED_VAR": `"quoted value"`},
			expectedValue: "quoted value",
		},
		{
			name:          "env reference with single quotes",
			input:         `{"$env": "SINGLE_QUOTED"}`,
			envVars:       map[string]string{"SINGLE_QUOTED": `'single quoted'`},
			expectedValue: "single quoted",
		},
		{
			name:          "env reference with mixed quotes not stripped",
			input:         `{"$env": "MIXED_QUOTES"}`,
			envVars:       map[string]string{"MIXED_QUOTES": `"mixed quotes'`},
			expectedValue: `"mixed quotes'`,
		},
		{
			name:          "missing env var",
			input:         `{"$env": "WEBSESSION_UNSET_VAR"}`,
			expectedError: true,
		},
		{
			name:          "unknown reference",
			input:         `{"$file": "/etc/passwd"}`,
			expectedError: true,
		},
		{
			name:          "number",
			input:         `42`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			value, err := ParseConfigValue(json.RawMessage(tt.input))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, value)
		})
	}
}

func TestParseConfigValueMap(t *testing.T) {
	t.Setenv("SERVICE_USER", "runner@example.com")

	values, err := ParseConfigValueMap(map[string]json.RawMessage{
		"username": json.RawMessage(`{"$env": "SERVICE_USER"}`),
		"embed":    json.RawMessage(`"false"`),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "runner@example.com", "embed": "false"}, values)

	_, err = ParseConfigValueMap(map[string]json.RawMessage{
		"password": json.RawMessage(`{"$env": "WEBSESSION_UNSET_VAR"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing key password")
}

func TestServiceConfig_UnmarshalJSON(t *testing.T) {
	t.Setenv("SERVICE_COOKIES", "SESSIONID=abc")
	t.Setenv("SERVICE_BACKEND", "connectapi.example.com")

	var s ServiceConfig
	err := json.Unmarshal([]byte(`{
		"baseURL": "https://connect.example.com/api",
		"signInURL": "https://sso.example.com/signin",
		"exchangeURL": "https://connect.example.com/exchange",
		"backendHeader": "DI-Backend",
		"backendValue": {"$env": "SERVICE_BACKEND"},
		"cookies": {"$env": "SERVICE_COOKIES"}
	}`), &s)
	require.NoError(t, err)

	assert.Equal(t, "https://connect.example.com/api", s.BaseURL)
	assert.Equal(t, "https://sso.example.com/signin", s.SignInURL)
	assert.Equal(t, "DI-Backend", s.BackendHeader)
	assert.Equal(t, "connectapi.example.com", s.BackendValue)
	assert.Equal(t, Secret("SESSIONID=abc"), s.Cookies)
}

func TestSignInConfig_UnmarshalJSON(t *testing.T) {
	t.Setenv("SERVICE_PASSWORD", "hunter2")

	var s SignInConfig
	err := json.Unmarshal([]byte(`{
		"query": {"service": "https://connect.example.com/app", "embed": "false"},
		"form": {"username": "runner@example.com", "password": {"$env": "SERVICE_PASSWORD"}},
		"headers": {"Origin": "https://sso.example.com"},
		"csrfField": "lt"
	}`), &s)
	require.NoError(t, err)

	assert.Equal(t, "false", s.Query["embed"])
	assert.Equal(t, Secret("hunter2"), s.Form["password"])
	assert.Equal(t, Secret("runner@example.com"), s.Form["username"])
	assert.Equal(t, "https://sso.example.com", s.Headers["Origin"])
	assert.Equal(t, "lt", s.CSRFField)
}

func TestDurationSections_UnmarshalJSON(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte(`{
		"retry": {"maxAttempts": 5, "delay": "250ms"},
		"token": {"safetyMargin": "2m"},
		"http": {"timeout": "30s", "requestsPerSecond": 2.5, "burst": 3, "requestIDHeader": "X-Request-Id"}
	}`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.Equal(t, 2*time.Minute, cfg.Token.SafetyMargin)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2.5, cfg.HTTP.RequestsPerSecond)
	assert.Equal(t, 3, cfg.HTTP.Burst)
	assert.Equal(t, "X-Request-Id", cfg.HTTP.RequestIDHeader)
}

func TestDurationSections_InvalidDuration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "retry", input: `{"retry": {"delay": "soon"}}`, want: "parsing delay"},
		{name: "token", input: `{"token": {"safetyMargin": "1 minute"}}`, want: "parsing safetyMargin"},
		{name: "http", input: `{"http": {"timeout": "x"}}`, want: "parsing timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			err := json.Unmarshal([]byte(tt.input), &cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
