package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasIssue(issues []ValidationError, path, contains string) bool {
	for _, issue := range issues {
		if issue.Path == path && strings.Contains(issue.Message, contains) {
			return true
		}
	}
	return false
}

func TestValidateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(validConfigJSON), 0600))

	// Env vars are not needed for structural validation
	result, err := ValidateFile(path)
	require.NoError(t, err)
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateFile_Missing(t *testing.T) {
	_, err := ValidateFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestValidateBytes(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantErrors  map[string]string
		wantWarning map[string]string
	}{
		{
			name:       "invalid_json",
			input:      `{"version":`,
			wantErrors: map[string]string{"": "invalid JSON"},
		},
		{
			name:  "missing_everything",
			input: `{}`,
			wantErrors: map[string]string{
				"version": "version field is required",
				"service": "service field is required",
				"signIn":  "signIn field is required",
			},
		},
		{
			name: "plain_password",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e"},
				"signIn": {"form": {"password": "hunter2"}}}`,
			wantErrors: map[string]string{"signIn.form.password": "must use environment variable reference"},
		},
		{
			name: "bash_style_password",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e"},
				"signIn": {"form": {"password": "${SERVICE_PASSWORD}"}}}`,
			wantErrors:  map[string]string{"signIn.form.password": "bash-style syntax"},
			wantWarning: map[string]string{"signIn.form.password": "bash-style syntax"},
		},
		{
			name: "plain_cookies",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e", "cookies": "SESSIONID=abc"}}`,
			wantErrors: map[string]string{"service.cookies": "must use environment variable reference"},
		},
		{
			name: "http_endpoints",
			input: `{"version": "v1",
				"service": {"signInURL": "http://a.example.com/s", "exchangeURL": "https://a.example.com/e"},
				"signIn": {"form": {"password": {"$env": "P"}}}}`,
			wantWarning: map[string]string{"service.signInURL": "should use https"},
		},
		{
			name: "backend_value_without_header",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e", "backendValue": "x"},
				"signIn": {"form": {"password": {"$env": "P"}}}}`,
			wantErrors: map[string]string{"service.backendHeader": "backendHeader is required"},
		},
		{
			name: "bad_durations",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e"},
				"signIn": {"form": {"password": {"$env": "P"}}},
				"retry": {"delay": 300, "maxAttempts": 0},
				"token": {"safetyMargin": "-1m"},
				"http": {"timeout": "forever"}}`,
			wantErrors: map[string]string{
				"retry.delay":        "must be a duration string",
				"token.safetyMargin": "cannot be negative",
				"http.timeout":       "invalid duration",
			},
			wantWarning: map[string]string{"retry.maxAttempts": "falls back to the default"},
		},
		{
			name: "missing_password",
			input: `{"version": "v1",
				"service": {"signInURL": "https://a.example.com/s", "exchangeURL": "https://a.example.com/e"},
				"signIn": {"form": {"username": "runner"}}}`,
			wantWarning: map[string]string{"signIn.form.password": "is not set"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateBytes([]byte(tt.input))
			for path, msg := range tt.wantErrors {
				assert.True(t, hasIssue(result.Errors, path, msg), "missing error %s: %s in %v", path, msg, result.Errors)
			}
			for path, msg := range tt.wantWarning {
				assert.True(t, hasIssue(result.Warnings, path, msg), "missing warning %s: %s in %v", path, msg, result.Warnings)
			}
			if len(tt.wantErrors) == 0 {
				assert.True(t, result.IsValid(), "unexpected errors: %v", result.Errors)
			}
		})
	}
}
