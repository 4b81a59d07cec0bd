package kling

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL          = 30 * time.Minute
	tokenNotBeforeLag = 5 * time.Second
)

// signToken issues a fresh HS256 bearer token for one outbound call.
//
// Tokens are never cached or reused across calls: the remote service may
// reject a reused-but-still-valid token, and signing is cheap. The claims are
// {iss: access key, exp: now+30m, nbf: now-5s}; the 5s lag absorbs clock skew
// between us and the remote.
func signToken(accessKey string, secret []byte, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    accessKey,
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		NotBefore: jwt.NewNumericDate(now.Add(-tokenNotBeforeLag)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
