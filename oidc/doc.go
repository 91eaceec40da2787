// Package oidc authenticates end users with OpenID Connect and turns the
// resulting tokens into an application-usable profile.
//
// The package is organized around two composable pieces:
//
// An Authenticator negotiates a client authentication method against the
// provider's declared capabilities (once, at construction), then exchanges
// authorization codes or refresh tokens for access/refresh/ID tokens via a
// TokenExchanger.
//
// A ProfileCreator validates the ID token, optionally calls the provider's
// user-info endpoint, and merges claims from the ID token, the user-info
// response and (optionally) the access token into a Profile. Attribute
// conflicts resolve with user-info claims taking precedence over ID-token
// claims, which take precedence over access-token claims.
//
// Provider metadata is discovered from the issuer's well-known configuration
// document (see NewProvider) or supplied statically (see NewStaticProvider).
// Cryptographic verification of tokens is delegated to a TokenValidator; the
// default implementation verifies signature, issuer, audience, expiry and
// nonce using the provider's published JWKs.
package oidc
