package session

import (
	"encoding/json"
	"net/http"
)

// Profile is the social profile embedded in the post-login page
type Profile struct {
	ID          int64  `json:"id"`
	ProfileID   int64  `json:"profileId"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
	UserName    string `json:"userName"`

	// Raw is the full JSON object as found in the page.
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals the full profile JSON into v
func (p *Profile) Decode(v any) error {
	return json.Unmarshal(p.Raw, v)
}

// Preferences are the user preferences embedded in the post-login page
type Preferences struct {
	DisplayName       string `json:"displayName"`
	MeasurementSystem string `json:"measurementSystem"`

	// Raw is the full JSON object as found in the page.
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals the full preferences JSON into v
func (p *Preferences) Decode(v any) error {
	return json.Unmarshal(p.Raw, v)
}

// Response is a successful authenticated response with its body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// bearerToken is the body returned by the token exchange endpoint. Both the
// snake_case and camelCase spellings are seen in the wild.
type bearerToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`

	AccessTokenCamel string `json:"accessToken"`
	ExpireInCamel    int64  `json:"expireIn"`
}

func (t bearerToken) token() (string, int64) {
	access, expires := t.AccessToken, t.ExpiresIn
	if access == "" {
		access = t.AccessTokenCamel
	}
	if expires == 0 {
		expires = t.ExpireInCamel
	}
	return access, expires
}
