package session

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		SignInURL:   "https://sso.example.com/signin",
		ExchangeURL: "https://connect.example.com/exchange",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "with_base", mutate: func(c *Config) { c.BaseURL = "https://connect.example.com/api" }},
		{name: "missing_signin", mutate: func(c *Config) { c.SignInURL = "" }, wantErr: "sign-in url"},
		{name: "relative_signin", mutate: func(c *Config) { c.SignInURL = "/signin" }, wantErr: "sign-in url"},
		{name: "relative_exchange", mutate: func(c *Config) { c.ExchangeURL = "exchange" }, wantErr: "exchange url"},
		{name: "relative_base", mutate: func(c *Config) { c.BaseURL = "api" }, wantErr: "base url"},
		{name: "backend_value_without_header", mutate: func(c *Config) { c.BackendValue = "x" }, wantErr: "backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig().withDefaults()
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Equal(t, DefaultRetryDelay, cfg.RetryDelay)
	assert.Equal(t, DefaultTokenSafetyMargin, cfg.TokenSafetyMargin)
	assert.Equal(t, DefaultCSRFField, cfg.CSRFField)
	assert.Equal(t, DefaultPreferencesKey, cfg.PreferencesKey)
	assert.Equal(t, DefaultProfileKey, cfg.ProfileKey)

	custom := validConfig()
	custom.MaxAttempts = 5
	custom.CSRFField = "lt"
	custom = custom.withDefaults()
	assert.Equal(t, 5, custom.MaxAttempts)
	assert.Equal(t, "lt", custom.CSRFField)
}

func TestConfigIsCopied(t *testing.T) {
	cfg := validConfig()
	cfg.SignInForm = url.Values{"username": {"a"}}
	cfg.SignInHeaders = http.Header{"Origin": {"https://sso.example.com"}}

	s, err := New(cfg)
	require.NoError(t, err)

	cfg.SignInForm.Set("username", "b")
	cfg.SignInHeaders.Set("Origin", "https://evil.example.com")

	assert.Equal(t, "a", s.cfg.SignInForm.Get("username"))
	assert.Equal(t, "https://sso.example.com", s.cfg.SignInHeaders.Get("Origin"))
}
