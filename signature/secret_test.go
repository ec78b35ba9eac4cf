package signature_test

import (
	"strings"
	"testing"

	"github.com/hookline/hookline/signature"
)

func TestGenerateSecretFormat(t *testing.T) {
	secret := signature.GenerateSecret()

	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("expected prefix 'whsec_', got %q", secret)
	}

	// whsec_ (6) + 64 hex chars (32 bytes) = 70 total
	if len(secret) != 70 {
		t.Errorf("expected length 70, got %d for %q", len(secret), secret)
	}

	if !signature.IsSecret(secret) {
		t.Errorf("IsSecret() = false for generated secret %q", secret)
	}
}

func TestGenerateSecretUniqueness(t *testing.T) {
	a := signature.GenerateSecret()
	b := signature.GenerateSecret()
	if a == b {
		t.Errorf("two consecutive GenerateSecret() calls returned the same value: %q", a)
	}
}

func TestGenerateSecretHexChars(t *testing.T) {
	secret := signature.GenerateSecret()
	hex := strings.TrimPrefix(secret, "whsec_")

	for i, c := range hex {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("non-hex character at position %d: %c in %q", i, c, hex)
		}
	}
}

func TestIsSecret(t *testing.T) {
	if signature.IsSecret("sk_live_abc123") {
		t.Error("IsSecret() = true for non-whsec string")
	}
	if !signature.IsSecret("whsec_0000") {
		t.Error("IsSecret() = false for whsec-prefixed string")
	}
}
