package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")

	// ErrConfiguration indicates required configuration material is missing
	// or malformed. It is fatal at construction and never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedAuthMethod indicates the negotiated or preferred client
	// authentication method is incompatible with the provider or not
	// supported locally. Fatal at construction.
	ErrUnsupportedAuthMethod = errors.New("unsupported client authentication method")

	// ErrTokenExchange indicates the provider returned a token error
	// response, or a malformed/incomplete success response. Fatal for that
	// login attempt.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrTransport indicates a network/IO failure during an exchange. Fatal
	// for that attempt; this package never retries a failed exchange.
	ErrTransport = errors.New("transport failure")

	// ErrProfileAssembly indicates ID token validation failed or returned no
	// claims. Fatal for that attempt.
	ErrProfileAssembly = errors.New("profile assembly failed")

	// ErrRecoverableClaimSource marks a user-info or access-token claim
	// retrieval/parsing failure.  It is logged and the claim source is
	// omitted; assembly continues.
	ErrRecoverableClaimSource = errors.New("recoverable claim source failure")

	ErrMissingAccessToken = errors.New("access_token is missing")
	ErrMissingClaims      = errors.New("no claims")
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrNotInitialized     = errors.New("not initialized")
)

// TokenError carries the machine-readable error code and human-readable
// description of a provider's token error response. It unwraps to
// ErrTokenExchange.
type TokenError struct {
	// Code is the provider's machine-readable error code, for example
	// "invalid_grant".
	Code string

	// Description is the provider's human-readable error description. May be
	// empty.
	Description string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("bad token response, error=%s, description=%s", e.Code, e.Description)
}

func (e *TokenError) Unwrap() error {
	return ErrTokenExchange
}
