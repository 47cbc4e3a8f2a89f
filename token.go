package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenBytes = 16

// NewToken returns a random URL safe token, 22 characters long
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
