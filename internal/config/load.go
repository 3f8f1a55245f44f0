package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dgellow/websession/internal/log"
	"github.com/dgellow/websession/internal/urlutil"
	"github.com/dgellow/websession/session"
	"golang.org/x/time/rate"
)

// credentialFields must be {"$env": ...} references in the sign-in form
var credentialFields = []string{"password"}

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for config bytes already in memory
func Parse(data []byte) (Config, error) {
	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, SupportedVersion) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// The custom UnmarshalJSON methods resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig checks, before env resolution, that credentials are
// never stored inline
func validateRawConfig(rawConfig map[string]any) error {
	signIn, ok := rawConfig["signIn"].(map[string]any)
	if !ok {
		return nil
	}
	form, ok := signIn["form"].(map[string]any)
	if !ok {
		return nil
	}
	for _, name := range credentialFields {
		value, exists := form[name]
		if !exists {
			continue
		}
		if _, isString := value.(string); isString {
			return fmt.Errorf("signIn.form.%s must use environment variable reference for security", name)
		}
		if refMap, isMap := value.(map[string]any); isMap {
			if _, hasEnv := refMap["$env"]; !hasEnv {
				return fmt.Errorf("signIn.form.%s must use {\"$env\": \"VAR_NAME\"} format", name)
			}
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Service.SignInURL == "" {
		return fmt.Errorf("service.signInURL is required")
	}
	if config.Service.ExchangeURL == "" {
		return fmt.Errorf("service.exchangeURL is required")
	}
	for name, value := range map[string]string{
		"service.signInURL":   config.Service.SignInURL,
		"service.exchangeURL": config.Service.ExchangeURL,
	} {
		if !urlutil.IsAbsolute(value) {
			return fmt.Errorf("%s must be an absolute url", name)
		}
	}
	if config.Service.BaseURL != "" && !urlutil.IsAbsolute(config.Service.BaseURL) {
		return fmt.Errorf("service.baseURL must be an absolute url")
	}
	if config.Service.BackendValue != "" && config.Service.BackendHeader == "" {
		return fmt.Errorf("service.backendHeader is required when backendValue is set")
	}

	if len(config.SignIn.Form) == 0 && config.Service.Cookies == "" {
		return fmt.Errorf("signIn.form is required unless service.cookies is set")
	}

	if config.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.maxAttempts cannot be negative")
	}
	if config.Retry.MaxAttempts > 10 {
		log.LogWarn("retry.maxAttempts is %d; each attempt after a 403 performs a full login", config.Retry.MaxAttempts)
	}
	if config.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay cannot be negative")
	}

	if config.Token.SafetyMargin < 0 {
		return fmt.Errorf("token.safetyMargin cannot be negative")
	}
	if config.Token.SafetyMargin > time.Hour {
		log.LogWarn("token.safetyMargin is %s; tokens shorter than that are never reused", config.Token.SafetyMargin)
	}

	if config.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout cannot be negative")
	}
	if config.HTTP.RequestsPerSecond < 0 {
		return fmt.Errorf("http.requestsPerSecond cannot be negative")
	}
	if config.HTTP.MaxResponseBytes < 0 {
		return fmt.Errorf("http.maxResponseBytes cannot be negative")
	}
	if config.HTTP.RequestsPerSecond > 0 && config.HTTP.Burst < 0 {
		return fmt.Errorf("http.burst cannot be negative")
	}

	return nil
}

// SessionConfig converts the file config into the session package's form
func (c Config) SessionConfig() session.Config {
	out := session.Config{
		BaseURL:           c.Service.BaseURL,
		SignInURL:         c.Service.SignInURL,
		ExchangeURL:       c.Service.ExchangeURL,
		BackendHeader:     c.Service.BackendHeader,
		BackendValue:      c.Service.BackendValue,
		Cookies:           string(c.Service.Cookies),
		MaxAttempts:       c.Retry.MaxAttempts,
		RetryDelay:        c.Retry.Delay,
		TokenSafetyMargin: c.Token.SafetyMargin,
		MaxResponseBytes:  c.HTTP.MaxResponseBytes,
		CSRFField:         c.SignIn.CSRFField,
		PreferencesKey:    c.SignIn.PreferencesKey,
		ProfileKey:        c.SignIn.ProfileKey,
	}

	if len(c.SignIn.Query) > 0 {
		out.SignInQuery = url.Values{}
		for k, v := range c.SignIn.Query {
			out.SignInQuery.Set(k, v)
		}
	}
	if len(c.SignIn.Form) > 0 {
		out.SignInForm = url.Values{}
		for k, v := range c.SignIn.Form {
			out.SignInForm.Set(k, string(v))
		}
	}
	if len(c.SignIn.Headers) > 0 {
		out.SignInHeaders = http.Header{}
		for k, v := range c.SignIn.Headers {
			out.SignInHeaders.Set(k, v)
		}
	}
	return out
}

// SessionOptions builds the session options implied by the http section
func (c Config) SessionOptions() []session.Option {
	var opts []session.Option
	if c.HTTP.Timeout > 0 {
		opts = append(opts, session.WithHTTPClient(&http.Client{Timeout: c.HTTP.Timeout}))
	}
	if c.HTTP.RequestsPerSecond > 0 {
		burst := c.HTTP.Burst
		if burst == 0 {
			burst = 1
		}
		opts = append(opts, session.WithRateLimiter(rate.NewLimiter(rate.Limit(c.HTTP.RequestsPerSecond), burst)))
	}
	if c.HTTP.RequestIDHeader != "" {
		opts = append(opts, session.WithRequestIDHeader(c.HTTP.RequestIDHeader))
	}
	return opts
}
