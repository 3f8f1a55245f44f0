package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprintSize is the digest length in bytes
const fingerprintSize = 8

// Fingerprint returns a short, non-reversible identifier for a secret value
// such as a cookie string or bearer token, so logs can correlate sessions
// without carrying credentials. The empty string maps to the empty string.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		// Only returned for an invalid size or an oversized key.
		panic(err)
	}
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
