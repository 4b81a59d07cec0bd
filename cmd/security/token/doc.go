// Package token provides the principal-header signing primitives for TryMyLook.
//
// The web frontend terminates the OAuth session and forwards the signed-in
// user's email to this service in the X-TML-Principal header as
// "<email>.<hex signature>". This package is the single source of truth for
// producing and verifying that signature.
//
// Design goals:
// - HMAC-SHA256 over the raw email with a shared key, hex-encoded.
// - Constant-time verification.
// - Key sourced from the environment with a minimum-length policy.
//
// Environment:
// - TML_PRINCIPAL_HMAC_KEY: shared key between the web tier and this service.
package token
