package appointment

import (
	"crypto/rand"
	"encoding/base64"
)

// TokenBytes is the entropy of a management token.
const TokenBytes = 32

// NewManagementToken returns an opaque URL-safe token unrelated to the
// appointment id.
func NewManagementToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
