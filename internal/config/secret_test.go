package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	tests := []struct {
		name   string
		secret Secret
		want   string
	}{
		{name: "non-empty secret", secret: Secret("super-secret-password"), want: "***"},
		{name: "empty secret", secret: Secret(""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.String())
			assert.Equal(t, "value: "+tt.want, fmt.Sprintf("value: %s", tt.secret))
			if tt.secret != "" {
				assert.NotContains(t, fmt.Sprintf("password: %v", tt.secret), string(tt.secret))
			}
		})
	}
}

func TestSecretJSONMarshal(t *testing.T) {
	type withSecrets struct {
		Username string `json:"username"`
		Password Secret `json:"password"`
		Cookies  Secret `json:"cookies"`
	}

	data, err := json.Marshal(withSecrets{
		Username: "runner",
		Password: Secret("super-secret-password"),
		Cookies:  Secret("SESSIONID=abc"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"runner","password":"***","cookies":"***"}`, string(data))
}

func TestSecretInSignInForm(t *testing.T) {
	signIn := SignInConfig{
		Form: map[string]Secret{
			"username": "runner@example.com",
			"password": "hunter2",
		},
	}

	str := fmt.Sprintf("%+v", signIn)
	assert.NotContains(t, str, "hunter2")
	assert.NotContains(t, str, "runner@example.com")

	data, err := json.Marshal(signIn)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
}
