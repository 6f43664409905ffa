package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

const tokenBytes = 32

// NewToken returns a URL-safe token carrying 256 bits of CSPRNG output.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokenDigest is the value persisted in place of a raw token.
func TokenDigest(rawToken string) string {
	normalized := strings.TrimSpace(rawToken)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("actiontracker.token.v1:" + normalized))
	return hex.EncodeToString(sum[:])
}

func TokenDigestMatches(expected string, rawToken string) bool {
	actual := TokenDigest(rawToken)
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
