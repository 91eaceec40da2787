package oidc

import "context"

// TokenValidator checks a raw token cryptographically (signature, issuer,
// audience, expiry) and against the expected nonce, and returns its claims.
// An empty expectedNonce means no nonce is expected.
//
// Provider is the default implementation; hosts can substitute their own via
// WithTokenValidator when building a ProfileCreator.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string, expectedNonce string) (*ClaimsSet, error)
}

var _ TokenValidator = (*Provider)(nil)
