package oidc

// ClientAuthMethod represents a mechanism the relying party uses to prove its
// own identity to the provider's token endpoint.  The set of methods this
// package understands is fixed; see SupportedAuthMethods.
type ClientAuthMethod string

// Client authentication method identifiers as registered for the OIDC
// "token_endpoint_auth_methods_supported" metadata field.
// See: https://openid.net/specs/openid-connect-core-1_0.html#ClientAuthentication
const (
	ClientSecretBasic ClientAuthMethod = "client_secret_basic"
	ClientSecretPost  ClientAuthMethod = "client_secret_post"
	PrivateKeyJWT     ClientAuthMethod = "private_key_jwt"
	AuthMethodNone    ClientAuthMethod = "none"
)

// DefaultAuthMethod is used when neither the configuration nor the provider's
// metadata constrain the choice of client authentication method.
const DefaultAuthMethod = ClientSecretBasic

var localAuthMethods = map[ClientAuthMethod]bool{
	ClientSecretPost:  true,
	ClientSecretBasic: true,
	PrivateKeyJWT:     true,
	AuthMethodNone:    true,
}

// Supported reports whether the method is in the locally supported set.
func (m ClientAuthMethod) Supported() bool {
	return localAuthMethods[m]
}

// SupportedAuthMethods returns the client authentication methods this package
// is able to perform: client_secret_basic, client_secret_post,
// private_key_jwt and none.
func SupportedAuthMethods() []ClientAuthMethod {
	return []ClientAuthMethod{ClientSecretBasic, ClientSecretPost, PrivateKeyJWT, AuthMethodNone}
}
