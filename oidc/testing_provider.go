package oidc

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestProvider is a local server with test provider capabilities which make
// writing tests much easier.  It serves a discovery document, a JWKs
// endpoint, a token endpoint honoring all four client authentication
// methods, and a user-info endpoint with plain and signed-JWT reply modes.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	jwks *jose.JSONWebKeySet

	mu                 sync.Mutex
	clientID           string
	clientSecret       string
	expectedAuthCode   string
	expectedNonce      string
	expectedAuthMethod ClientAuthMethod
	authMethods        []string
	customClaims       map[string]interface{}
	customAudience     string
	replySubject       string
	replyUserinfo      map[string]interface{}
	replyAccessToken   string
	replyRefreshToken  string
	staticIDToken      string
	jwtAccessToken     bool
	omitIDToken        bool
	omitRefreshToken   bool
	disableUserInfo    bool
	signedUserinfo     bool
	failUserinfo       bool
	tokenErrorCode     string
	tokenErrorDesc     string

	tokenRequestCount     int
	lastTokenRequest      url.Values
	lastTokenRequestBasic bool

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider running on a local
// TLS listener.  The server stops via t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:                 t,
		replySubject:      "alice@example.com",
		replyAccessToken:  "SlAV32hkKG",
		replyRefreshToken: "8xLOxBtZp8",
		replyUserinfo: map[string]interface{}{
			"sub":   "alice@example.com",
			"color": "red",
		},
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Addr returns the current base URL for the test provider's running
// webserver, which doubles as its issuer.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign JWTs.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// SetClientCreds is for configuring the client information required for the
// OIDC workflows.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the only auth code the /token endpoint will
// accept for the authorization_code grant.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedNonce configures the nonce bound into issued ID tokens.
func (p *TestProvider) SetExpectedNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedNonce = nonce
}

// SetExpectedAuthMethod makes the /token endpoint reject requests that don't
// authenticate with the given method.  An empty method disables the check.
func (p *TestProvider) SetExpectedAuthMethod(m ClientAuthMethod) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthMethod = m
}

// SetAuthMethodsSupported configures the
// token_endpoint_auth_methods_supported list advertised in the discovery
// document.  When never called, the field is omitted.
func (p *TestProvider) SetAuthMethodsSupported(methods ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authMethods = methods
}

// SetCustomClaims lets you set claims to return in issued ID tokens (and JWT
// access tokens, see UseJWTAccessTokens).
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures what audience value to embed in issued
// tokens.
func (p *TestProvider) SetCustomAudience(customAudience string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// SetReplySubject configures the subject claim of issued tokens and the
// user-info reply.
func (p *TestProvider) SetReplySubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replySubject = sub
}

// SetReplyTokens configures the raw access and refresh token values the
// /token endpoint returns.
func (p *TestProvider) SetReplyTokens(accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyAccessToken = accessToken
	p.replyRefreshToken = refreshToken
}

// SetStaticIDToken overrides the signed ID token with a fixed raw value, for
// tests that only assert on the exchange itself.
func (p *TestProvider) SetStaticIDToken(raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staticIDToken = raw
}

// UseJWTAccessTokens makes the /token endpoint issue access tokens that are
// signed JWTs carrying the same claims as the ID token.
func (p *TestProvider) UseJWTAccessTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwtAccessToken = true
}

// SetTokenError forces the /token endpoint into an error state replying
// with the given OAuth2 error code and description.
func (p *TestProvider) SetTokenError(code, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenErrorCode = code
	p.tokenErrorDesc = description
}

// OmitIDTokens makes the /token endpoint not return an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshTokens makes the /token endpoint not return a refresh_token.
func (p *TestProvider) OmitRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// DisableUserInfo makes the userinfo endpoint return 404 and omits it from
// the discovery config.
func (p *TestProvider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// SetReplyUserinfo configures the claims document the userinfo endpoint
// replies with.
func (p *TestProvider) SetReplyUserinfo(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyUserinfo = claims
}

// UseSignedUserinfo makes the userinfo endpoint reply with a signed JWT
// (content type application/jwt) instead of a plain claims document.
func (p *TestProvider) UseSignedUserinfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedUserinfo = true
}

// FailUserinfo forces the userinfo endpoint into an error state.
func (p *TestProvider) FailUserinfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failUserinfo = true
}

// TokenRequestCount reports how many requests the /token endpoint received.
func (p *TestProvider) TokenRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequestCount
}

// LastTokenRequest returns the form values of the last /token request and
// whether it carried HTTP basic credentials.
func (p *TestProvider) LastTokenRequest() (url.Values, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTokenRequest, p.lastTokenRequestBasic
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()

	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer           string   `json:"issuer"`
			AuthEndpoint     string   `json:"authorization_endpoint"`
			TokenEndpoint    string   `json:"token_endpoint"`
			JWKSURI          string   `json:"jwks_uri"`
			UserinfoEndpoint string   `json:"userinfo_endpoint,omitempty"`
			AuthMethods      []string `json:"token_endpoint_auth_methods_supported,omitempty"`
		}{
			Issuer:           p.Addr(),
			AuthEndpoint:     p.Addr() + "/auth",
			TokenEndpoint:    p.Addr() + "/token",
			JWKSURI:          p.Addr() + "/certs",
			UserinfoEndpoint: p.Addr() + "/userinfo",
			AuthMethods:      p.authMethods,
		}
		if p.disableUserInfo {
			reply.UserinfoEndpoint = ""
		}
		_ = p.writeJSON(w, &reply)

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		p.handleToken(w, req)

	case "/userinfo":
		p.handleUserinfo(w, req)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *TestProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	p.t.Helper()
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = req.ParseForm()
	p.tokenRequestCount++
	p.lastTokenRequest = req.PostForm
	_, _, p.lastTokenRequestBasic = req.BasicAuth()

	if p.tokenErrorCode != "" {
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, p.tokenErrorCode, p.tokenErrorDesc)
		return
	}
	if p.expectedAuthMethod != "" && !p.checkClientAuth(req) {
		_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	grantType := req.PostForm.Get("grant_type")
	switch grantType {
	case "authorization_code":
		if req.PostForm.Get("code") != p.expectedAuthCode {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected auth code")
			return
		}
	case "refresh_token":
		if req.PostForm.Get("refresh_token") != p.replyRefreshToken {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_grant", "unexpected refresh token")
			return
		}
	default:
		_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
		return
	}

	accessToken := p.replyAccessToken
	if p.jwtAccessToken {
		accessToken = p.signReplyJWT()
	}
	idToken := p.signReplyJWT()
	if p.staticIDToken != "" {
		idToken = p.staticIDToken
	}

	reply := struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token,omitempty"`
		IDToken      string `json:"id_token,omitempty"`
	}{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		RefreshToken: p.replyRefreshToken,
		IDToken:      idToken,
	}
	if p.omitRefreshToken {
		reply.RefreshToken = ""
	}
	if p.omitIDToken {
		reply.IDToken = ""
	}
	_ = p.writeJSON(w, &reply)
}

// checkClientAuth verifies the request authenticated with the expected
// client authentication method.
func (p *TestProvider) checkClientAuth(req *http.Request) bool {
	p.t.Helper()
	user, pass, hasBasic := req.BasicAuth()
	assertion := req.PostForm.Get("client_assertion")

	switch p.expectedAuthMethod {
	case ClientSecretBasic:
		return hasBasic && user == p.clientID && pass == p.clientSecret
	case ClientSecretPost:
		return !hasBasic &&
			req.PostForm.Get("client_id") == p.clientID &&
			req.PostForm.Get("client_secret") == p.clientSecret
	case PrivateKeyJWT:
		if req.PostForm.Get("client_assertion_type") != "urn:ietf:params:oauth:client-assertion-type:jwt-bearer" {
			return false
		}
		token, err := jwt.ParseSigned(assertion, []jose.SignatureAlgorithm{jose.RS256, jose.ES256})
		if err != nil {
			return false
		}
		var claims jwt.Claims
		if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
			return false
		}
		return claims.Issuer == p.clientID && claims.Subject == p.clientID
	case AuthMethodNone:
		return !hasBasic && pass == "" &&
			req.PostForm.Get("client_secret") == "" &&
			assertion == ""
	default:
		return false
	}
}

func (p *TestProvider) handleUserinfo(w http.ResponseWriter, req *http.Request) {
	p.t.Helper()
	if p.disableUserInfo {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		_ = p.writeJSON(w, map[string]string{"error": "invalid_token"})
		return
	}
	if p.failUserinfo {
		w.WriteHeader(http.StatusUnauthorized)
		_ = p.writeJSON(w, map[string]string{
			"error":             "invalid_token",
			"error_description": "the access token expired",
		})
		return
	}
	if p.signedUserinfo {
		w.Header().Set("Content-Type", "application/jwt")
		_, _ = w.Write([]byte(TestSignJWT(p.t, p.ecdsaPrivateKey, jwt.Claims{}, p.replyUserinfo)))
		return
	}
	_ = p.writeJSON(w, p.replyUserinfo)
}

// signReplyJWT issues a signed token with the provider's standard reply
// claims plus any custom claims.
func (p *TestProvider) signReplyJWT() string {
	p.t.Helper()
	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(1 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		Audience:  jwt.Audience{p.clientID},
	}
	if p.customAudience != "" {
		stdClaims.Audience = jwt.Audience{p.customAudience}
	}
	privateClaims := map[string]interface{}{}
	if p.expectedNonce != "" {
		privateClaims["nonce"] = p.expectedNonce
	}
	for k, v := range p.customClaims {
		privateClaims[k] = v
	}
	return TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				Algorithm: string(jose.ES256),
				Use:       "sig",
			},
		},
	}
}
