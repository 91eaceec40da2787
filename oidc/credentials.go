package oidc

import "fmt"

// Credentials is what an authenticated login attempt produces.  It is a
// tagged union of two mutually exclusive shapes: a full token set (the
// regular interactive flow) or a bare bearer token string (the direct
// API-token flow).
type Credentials struct {
	tokens *TokenSet
	bearer AccessToken
}

// NewCredentials wraps the token set produced by a token exchange.
func NewCredentials(tokens *TokenSet) (*Credentials, error) {
	const op = "oidc.NewCredentials"
	if tokens == nil {
		return nil, fmt.Errorf("%s: token set is nil: %w", op, ErrNilParameter)
	}
	return &Credentials{tokens: tokens}, nil
}

// NewBearerCredentials wraps a raw bearer token.  No validation is performed
// on the token here.
func NewBearerCredentials(token string) (*Credentials, error) {
	const op = "oidc.NewBearerCredentials"
	if token == "" {
		return nil, fmt.Errorf("%s: bearer token is empty: %w", op, ErrInvalidParameter)
	}
	return &Credentials{bearer: AccessToken(token)}, nil
}

// TokenSet returns the full token set, when these credentials came from a
// token exchange.
func (c *Credentials) TokenSet() (*TokenSet, bool) {
	if c == nil || c.tokens == nil {
		return nil, false
	}
	return c.tokens, true
}

// BearerToken returns the raw bearer token, when these credentials came from
// a direct API-token call.
func (c *Credentials) BearerToken() (AccessToken, bool) {
	if c == nil || c.tokens != nil {
		return "", false
	}
	return c.bearer, c.bearer != ""
}

// AccessToken returns the access token for whichever shape the credentials
// carry.
func (c *Credentials) AccessToken() AccessToken {
	if c == nil {
		return ""
	}
	if c.tokens != nil {
		return c.tokens.AccessToken
	}
	return c.bearer
}
