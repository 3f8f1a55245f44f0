package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "info"},
		{in: "debug", want: "debug"},
		{in: "WARNING", want: "warn"},
		{in: "trace", want: "trace"},
		{in: "error", want: "error"},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := SetLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, GetLogLevel())
		})
	}
	require.NoError(t, SetLogLevel("info"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", Redact("cookie", "SESSION=abc"))
	assert.Equal(t, "***", Redact("Authorization", "Bearer xyz"))
	assert.Equal(t, "", Redact("password", ""))
	assert.Equal(t, "https://example.com", Redact("url", "https://example.com"))
	assert.Equal(t, 3, Redact("attempt", 3))
}

func TestBuildArgs_RedactsCredentials(t *testing.T) {
	args := buildArgs("login", map[string]any{"cookie": "SESSION=abc"})
	require.Len(t, args, 4)
	assert.Equal(t, "component", args[0])
	assert.Equal(t, "login", args[1])
	assert.Equal(t, "cookie", args[2])
	assert.Equal(t, "***", args[3])
}
