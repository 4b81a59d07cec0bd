package app

import (
	"errors"

	"trymylook/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
// Fail-fast is intentional: a deployment that silently falls back to
// unauthenticated submissions must not come up.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequirePrincipalHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret, measured as raw bytes.
	if _, err := token.KeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: TML_REQUIRE_PRINCIPAL_HMAC=true but TML_PRINCIPAL_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: TML_REQUIRE_PRINCIPAL_HMAC=true but TML_PRINCIPAL_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.Enabled() {
		return errors.New("security policy: TML_REQUIRE_PRINCIPAL_HMAC=true but principal verification is not in HMAC mode")
	}

	return nil
}
