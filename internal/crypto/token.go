package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// NewDefaultCredential returns a random secret used as the initial password of
// accounts created on a student's behalf. Nobody is told the value.
func NewDefaultCredential() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
