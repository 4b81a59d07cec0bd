package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the principal HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "TML_PRINCIPAL_HMAC_KEY"
)

// SignPrincipalHex returns an HMAC-SHA256 hex digest of email using key.
func SignPrincipalHex(email string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(email))
	return hex.EncodeToString(m.Sum(nil))
}

// EncodePrincipal renders the header value "<email>.<hex signature>".
func EncodePrincipal(email string, key []byte) string {
	return email + "." + SignPrincipalHex(email, key)
}

// VerifyPrincipal splits a header value produced by EncodePrincipal and
// checks its signature in constant time. The signature never contains a dot,
// so the split happens at the last one; emails with dots stay intact.
func VerifyPrincipal(header string, key []byte) (email string, ok bool) {
	i := strings.LastIndexByte(header, '.')
	if i <= 0 || i == len(header)-1 {
		return "", false
	}
	email, sig := header[:i], header[i+1:]

	want := SignPrincipalHex(email, key)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return "", false
	}
	return email, true
}

// KeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a
// minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func KeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// Enabled reports whether the env key is present (non-empty after trim).
// Note: This does not enforce minimum length. Use KeyFromEnv for policy checks.
func Enabled() bool {
	return strings.TrimSpace(os.Getenv(HMACEnvKey)) != ""
}
