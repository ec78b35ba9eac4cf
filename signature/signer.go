// Package signature provides HMAC-SHA256 webhook signing and verification.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Scheme is the prefix carried by every signature value. Receivers strip it
// before comparing digests.
const Scheme = "sha256="

// Signer computes HMAC-SHA256 signatures for webhook request bodies.
type Signer struct{}

// NewSigner returns a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Sign generates the HMAC-SHA256 signature for the given request body.
// The MAC is computed over the exact bytes sent on the wire, so receivers
// can verify against the raw body without re-encoding.
// Returns a signature in the format "sha256=<hex>".
func (s *Signer) Sign(body []byte, secret string) string {
	return Sign(body, secret)
}

// Sign generates the HMAC-SHA256 signature for the given request body.
// The MAC is computed over the exact bytes sent on the wire, so receivers
// can verify against the raw body without re-encoding.
// Returns a signature in the format "sha256=<hex>".
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return Scheme + hex.EncodeToString(mac.Sum(nil))
}
