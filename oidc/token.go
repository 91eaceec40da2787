package oidc

import "time"

// DefaultExpirySkew defines a default time skew when checking a TokenSet's
// expiration.
const DefaultExpirySkew = 10 * time.Second

// TokenSet holds the tokens returned by a successful token exchange.  The
// access token is always present; the refresh token is only set when the
// provider returned a non-empty one, and the ID token is only present for
// authorization-code flows that requested the identity scope.
type TokenSet struct {
	AccessToken  AccessToken
	RefreshToken RefreshToken
	IDToken      IDToken

	// Expiry is the access token's expiration time, or the zero value when
	// the provider didn't report one.
	Expiry time.Time
}

// Expired reports whether the access token is within the expiry skew of its
// expiration time.  Supports the WithExpirySkew option and if none is
// provided it will use the DefaultExpirySkew.
func (t *TokenSet) Expired(opt ...Option) bool {
	if t.Expiry.IsZero() {
		return false
	}
	opts := getTokenOpts(opt...)
	return t.Expiry.Round(0).Before(time.Now().Add(opts.withExpirySkew))
}

// Valid reports whether the set carries a non-empty, unexpired access token.
func (t *TokenSet) Valid(opt ...Option) bool {
	if t == nil {
		return false
	}
	if t.AccessToken == "" {
		return false
	}
	return !t.Expired(opt...)
}

// tokenOptions is the set of available options for TokenSet functions
type tokenOptions struct {
	withExpirySkew time.Duration
}

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultExpirySkew,
	}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed
// in.
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
