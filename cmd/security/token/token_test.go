package token

import (
	"strings"
	"testing"
)

func TestVerifyPrincipal_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	header := EncodePrincipal("jane.doe@example.com", key)
	email, ok := VerifyPrincipal(header, key)
	if !ok {
		t.Fatalf("expected signature to verify")
	}
	if email != "jane.doe@example.com" {
		t.Fatalf("unexpected email: %q", email)
	}
}

func TestVerifyPrincipal_RejectsTampering(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	header := EncodePrincipal("jane@example.com", key)
	forged := strings.Replace(header, "jane", "mallory", 1)
	if _, ok := VerifyPrincipal(forged, key); ok {
		t.Fatalf("expected forged header to fail verification")
	}

	if _, ok := VerifyPrincipal(header, []byte("another-key-another-key-another!")); ok {
		t.Fatalf("expected wrong key to fail verification")
	}
}

func TestVerifyPrincipal_MalformedHeader(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	for _, raw := range []string{"", "no-dot", ".sigonly", "email."} {
		if _, ok := VerifyPrincipal(raw, key); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestKeyFromEnv_Policy(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := KeyFromEnv(32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := KeyFromEnv(32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")
	key, err := KeyFromEnv(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("unexpected key length: %d", len(key))
	}
}
