package oidc

import "context"

// SessionStore reads and writes values scoped to the current request/session.
// Implementations must not share state across concurrent users; the host
// application supplies one per request.
type SessionStore interface {
	// Get returns the value stored under key, if any.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key.
	Set(ctx context.Context, key string, value string)
}

// LogoutHandler tracks provider sessions so back-channel logout can later
// destroy them.
type LogoutHandler interface {
	// RecordSession associates the provider's session id with the current
	// request/session.
	RecordSession(ctx context.Context, store SessionStore, sessionID string)
}

// NonceSessionKey is the client-scoped session key under which the expected
// ID token nonce is stored between the authorization request and the token
// exchange.
func NonceSessionKey(clientID string) string {
	return clientID + "$nonce"
}

// PKCEVerifierSessionKey is the client-scoped session key under which the
// PKCE code verifier is stored between the authorization request and the
// token exchange.
func PKCEVerifierSessionKey(clientID string) string {
	return clientID + "$pkce_code_verifier"
}
