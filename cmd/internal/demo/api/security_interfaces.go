package demoapi

import (
	"context"
	"net/http"

	"trymylook/cmd/security/token"
)

// PrincipalHeader carries the signed principal minted by the web tier.
const PrincipalHeader = "X-TML-Principal"

// Authenticator resolves the authenticated principal of a request.
// The session itself lives in the web tier; this service only needs
// "is this request authenticated, and for whom".
type Authenticator interface {
	Principal(r *http.Request) (email string, ok bool)
}

// HMACAuthenticator verifies the signed principal header.
type HMACAuthenticator struct {
	key []byte
}

// NewHMACAuthenticator builds an Authenticator around the shared key.
func NewHMACAuthenticator(key []byte) *HMACAuthenticator {
	return &HMACAuthenticator{key: key}
}

func (a *HMACAuthenticator) Principal(r *http.Request) (string, bool) {
	raw := r.Header.Get(PrincipalHeader)
	if raw == "" {
		return "", false
	}
	return token.VerifyPrincipal(raw, a.key)
}

// DenyAllAuthenticator rejects every request. It is the default when no
// principal key is configured, so a misconfigured deployment fails loudly
// instead of serving unauthenticated submissions.
type DenyAllAuthenticator struct{}

func (DenyAllAuthenticator) Principal(*http.Request) (string, bool) { return "", false }

// Notifier delivers a best-effort notification after a successful demo.
// Failures are logged and never fail the submission.
type Notifier interface {
	DemoSucceeded(ctx context.Context, email, resultURL string) error
}

// NoopNotifier ignores notifications.
type NoopNotifier struct{}

func (NoopNotifier) DemoSucceeded(context.Context, string, string) error { return nil }
