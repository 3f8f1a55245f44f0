package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgellow/websession/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "websession.json")
	require.NoError(t, generateDefaultConfig(path))

	result, err := config.ValidateFile(path)
	require.NoError(t, err)
	assert.True(t, result.IsValid(), "errors: %v", result.Errors)
	assert.Empty(t, result.Warnings)

	t.Setenv("WEBSESSION_USERNAME", "runner@example.com")
	t.Setenv("WEBSESSION_PASSWORD", "hunter2")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.SessionConfig().Validate())
}

func TestReadBody(t *testing.T) {
	_, err := readBody("")
	assert.Error(t, err)

	data, err := readBody(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	path := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"b":2}`), 0600))
	data, err = readBody("@" + path)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))
}
