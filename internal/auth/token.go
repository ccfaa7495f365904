package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultTokenBytes is the entropy of invitation and session tokens.
// 16 bytes matches the tokens already in circulation.
const DefaultTokenBytes = 16

// SessionTokenBytes is the entropy of issued session tokens.
const SessionTokenBytes = 32

// GenerateToken returns a URL-safe random token with n bytes of entropy.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		n = DefaultTokenBytes
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
