package signature

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// SecretPrefix marks a string as a Hookline signing secret.
const SecretPrefix = "whsec_"

// GenerateSecret creates a cryptographically random signing secret.
// Format: "whsec_" + 32 bytes hex = 70 characters total.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("hookline: failed to generate random secret: " + err.Error())
	}
	return SecretPrefix + hex.EncodeToString(b)
}

// IsSecret reports whether s looks like a generated signing secret.
func IsSecret(s string) bool {
	return strings.HasPrefix(s, SecretPrefix)
}
