// Package clientassertion signs the JWTs an OIDC client presents to a token
// endpoint to authenticate itself with the private_key_jwt method.
// reference: https://oauth.net/private-key-jwt/
//
// Each call to Serialize produces a fresh assertion with a new token id and
// current timestamps, so one JWT value can be reused for the lifetime of a
// client.
package clientassertion
