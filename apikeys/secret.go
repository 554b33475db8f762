package apikeys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// KeyPrefix marks every issued secret.
	KeyPrefix = "acr_"
	// secretBytes yields 32 base64url characters.
	secretBytes = 24
	// displayLen is how much of the secret is kept in clear for listings.
	displayLen = len(KeyPrefix) + 8
)

// NewSecret returns a fresh plaintext API key.
func NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret is the lookup form of a secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func displayPrefix(secret string) string {
	if len(secret) <= displayLen {
		return secret
	}
	return secret[:displayLen]
}
