package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

var bashStyleRegex = regexp.MustCompile(`\$\{?([A-Z_][A-Z0-9_]*)\}?`)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, format string, args ...any) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationResult) addWarning(path, format string, args ...any) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ValidateBytes(data), nil
}

// ValidateBytes is ValidateFile for config bytes already in memory
func ValidateBytes(data []byte) *ValidationResult {
	result := &ValidationResult{}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", "invalid JSON: %v", err)
		return result
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", "version field is required. Hint: Add \"version\": %q", SupportedVersion)
	} else if !strings.HasPrefix(version, SupportedVersion) {
		result.addError("version", "unsupported version '%s' - use '%s'", version, SupportedVersion)
	}

	validateServiceStructure(rawConfig, result)
	validateSignInStructure(rawConfig, result)
	validateDurations(rawConfig, result)

	return result
}

func validateServiceStructure(rawConfig map[string]any, result *ValidationResult) {
	service, ok := rawConfig["service"].(map[string]any)
	if !ok {
		result.addError("service", "service field is required and must be an object")
		return
	}

	for _, field := range []string{"signInURL", "exchangeURL"} {
		value, exists := service[field]
		if !exists {
			result.addError("service."+field, "%s is required", field)
			continue
		}
		if s, isString := value.(string); isString && !strings.HasPrefix(s, "https://") {
			result.addWarning("service."+field, "%s should use https, got '%s'", field, s)
		}
	}

	if _, hasValue := service["backendValue"]; hasValue {
		if _, hasHeader := service["backendHeader"].(string); !hasHeader {
			result.addError("service.backendHeader", "backendHeader is required when backendValue is set")
		}
	}

	if cookies, exists := service["cookies"]; exists {
		if err := validateEnvVarReference(cookies, "cookies", "service.cookies"); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}
}

func validateSignInStructure(rawConfig map[string]any, result *ValidationResult) {
	signIn, ok := rawConfig["signIn"].(map[string]any)
	if !ok {
		if service, _ := rawConfig["service"].(map[string]any); service == nil || service["cookies"] == nil {
			result.addError("signIn", "signIn field is required and must be an object")
		}
		return
	}

	form, ok := signIn["form"].(map[string]any)
	if !ok {
		result.addError("signIn.form", "form is required and must be an object. Example: {\"username\": {\"$env\": \"SERVICE_USER\"}, \"password\": {\"$env\": \"SERVICE_PASSWORD\"}}")
		return
	}
	for _, name := range credentialFields {
		value, exists := form[name]
		if !exists {
			result.addWarning("signIn.form."+name, "%s is not set; the login will likely be rejected", name)
			continue
		}
		if err := validateEnvVarReference(value, name, "signIn.form."+name); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}

	if csrf, exists := signIn["csrfField"]; exists {
		if s, isString := csrf.(string); !isString || s == "" {
			result.addError("signIn.csrfField", "csrfField must be a non-empty string")
		}
	}
}

func validateDurations(rawConfig map[string]any, result *ValidationResult) {
	durations := []struct {
		section string
		field   string
	}{
		{"retry", "delay"},
		{"token", "safetyMargin"},
		{"http", "timeout"},
	}
	for _, d := range durations {
		section, ok := rawConfig[d.section].(map[string]any)
		if !ok {
			continue
		}
		value, exists := section[d.field]
		if !exists {
			continue
		}
		path := d.section + "." + d.field
		s, isString := value.(string)
		if !isString {
			result.addError(path, "%s must be a duration string like \"300ms\", not %T", d.field, value)
			continue
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			result.addError(path, "invalid duration '%s': %v", s, err)
			continue
		}
		if parsed < 0 {
			result.addError(path, "%s cannot be negative", d.field)
		}
	}

	if retry, ok := rawConfig["retry"].(map[string]any); ok {
		if n, ok := retry["maxAttempts"].(float64); ok && n < 1 {
			result.addWarning("retry.maxAttempts", "maxAttempts %v falls back to the default of 3", n)
		}
	}
}

// validateEnvVarReference validates that a field uses proper env var reference format
func validateEnvVarReference(value any, fieldName, path string) *ValidationError {
	switch v := value.(type) {
	case string:
		if matches := bashStyleRegex.FindStringSubmatch(v); len(matches) > 1 {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", v, matches[1]),
			}
		}
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must use environment variable reference {\"$env\": \"YOUR_ENV_VAR\"} instead of plain text. Hint: This keeps credentials out of config files", fieldName),
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; !hasEnv {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("%s must use {\"$env\": \"YOUR_ENV_VAR\"} format", fieldName),
			}
		}
		return nil
	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("%s must be an environment variable reference {\"$env\": \"YOUR_ENV_VAR\"}, not %T", fieldName, value),
		}
	}
}

// checkBashStyleSyntax recursively checks for bash-style env var syntax
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case string:
		for _, match := range bashStyleRegex.FindAllString(v, -1) {
			varName := strings.Trim(match, "${}")
			result.addWarning(path, "found bash-style syntax '%s' - use {\"$env\": \"%s\"} instead", match, varName)
		}
	case map[string]any:
		if _, hasEnv := v["$env"]; hasEnv {
			return
		}
		for key, val := range v {
			newPath := key
			if path != "" {
				newPath = path + "." + key
			}
			checkBashStyleSyntax(val, newPath, result)
		}
	case []any:
		for i, item := range v {
			checkBashStyleSyntax(item, fmt.Sprintf("%s[%d]", path, i), result)
		}
	}
}
