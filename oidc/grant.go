package oidc

// GrantRequest is the authorization grant a TokenExchanger trades for
// tokens.  It is a sealed union: the only implementations are
// AuthorizationCodeGrant and RefreshTokenGrant.
type GrantRequest interface {
	// grantType returns the OAuth2 grant_type parameter value.
	grantType() string
}

// AuthorizationCodeGrant carries the authorization code received on the
// redirect of an interactive login, along with the redirect URI it was bound
// to and an optional PKCE code verifier.
type AuthorizationCodeGrant struct {
	Code         string
	RedirectURI  string
	PKCEVerifier string
}

func (g *AuthorizationCodeGrant) grantType() string { return "authorization_code" }

// RefreshTokenGrant trades an existing refresh token for fresh tokens
// without re-authenticating the user.
type RefreshTokenGrant struct {
	RefreshToken RefreshToken
}

func (g *RefreshTokenGrant) grantType() string { return "refresh_token" }
