package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("principal HMAC key missing")
	ErrHMACKeyTooShort = errors.New("principal HMAC key too short")
)
