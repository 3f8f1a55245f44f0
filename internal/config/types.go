package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SupportedVersion is the config version prefix this build understands
const SupportedVersion = "v1"

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// ServiceConfig locates the service endpoints
type ServiceConfig struct {
	BaseURL       string `json:"baseURL"`
	SignInURL     string `json:"signInURL"`
	ExchangeURL   string `json:"exchangeURL"`
	BackendHeader string `json:"backendHeader,omitempty"`
	BackendValue  string `json:"backendValue,omitempty"`

	// Cookies seeds the session with a previously captured cookie string
	Cookies Secret `json:"cookies,omitempty"`
}

// SignInConfig describes the login form
type SignInConfig struct {
	Query   map[string]string `json:"query,omitempty"`
	Form    map[string]Secret `json:"form"`
	Headers map[string]string `json:"headers,omitempty"`

	CSRFField      string `json:"csrfField,omitempty"`
	PreferencesKey string `json:"preferencesKey,omitempty"`
	ProfileKey     string `json:"profileKey,omitempty"`
}

// RetryConfig controls the 403 retry loop
type RetryConfig struct {
	MaxAttempts int           `json:"maxAttempts,omitempty"`
	Delay       time.Duration `json:"delay,omitempty"`
}

// TokenConfig controls bearer token caching
type TokenConfig struct {
	SafetyMargin time.Duration `json:"safetyMargin,omitempty"`
}

// HTTPConfig controls the outbound HTTP client
type HTTPConfig struct {
	Timeout           time.Duration `json:"timeout,omitempty"`
	RequestsPerSecond float64       `json:"requestsPerSecond,omitempty"`
	Burst             int           `json:"burst,omitempty"`
	RequestIDHeader   string        `json:"requestIDHeader,omitempty"`
	MaxResponseBytes  int64         `json:"maxResponseBytes,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Version string        `json:"version"`
	Service ServiceConfig `json:"service"`
	SignIn  SignInConfig  `json:"signIn"`
	Retry   RetryConfig   `json:"retry"`
	Token   TokenConfig   `json:"token"`
	HTTP    HTTPConfig    `json:"http"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR"} reference, resolving the reference immediately
func ParseConfigValue(raw json.RawMessage) (string, error) {
	// Try plain string first
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, nil
}

// ParseConfigValueMap parses a map that may contain references
func ParseConfigValueMap(raw map[string]json.RawMessage) (map[string]string, error) {
	values := make(map[string]string, len(raw))
	for key, item := range raw {
		value, err := ParseConfigValue(item)
		if err != nil {
			return nil, fmt.Errorf("parsing key %s: %w", key, err)
		}
		values[key] = value
	}
	return values, nil
}
