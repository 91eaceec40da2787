package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mloesch/pac4j/oidc/clientassertion"
	"golang.org/x/oauth2"
)

// TokenExchanger builds and sends token endpoint requests for a given
// authorization grant and parses the success or error response.  The client
// authentication material is fixed at construction; a nil
// NegotiatedAuthentication means requests carry only the client id.
//
// A TokenExchanger never retries: a failed exchange is terminal for that
// login attempt.
type TokenExchanger struct {
	clientID string
	tokenURL string
	auth     *NegotiatedAuthentication
	client   *http.Client
	logger   hclog.Logger
}

// NewTokenExchanger creates an exchanger for the provider's token endpoint
// using the negotiated client authentication (which may be nil).
func NewTokenExchanger(c *Config, md *ProviderMetadata, auth *NegotiatedAuthentication) (*TokenExchanger, error) {
	const op = "oidc.NewTokenExchanger"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if md == nil {
		return nil, fmt.Errorf("%s: provider metadata is nil: %w", op, ErrNilParameter)
	}
	if md.TokenEndpoint == "" {
		return nil, fmt.Errorf("%s: token endpoint is empty: %w", op, ErrConfiguration)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	return &TokenExchanger{
		clientID: c.ClientID,
		tokenURL: md.TokenEndpoint,
		auth:     auth,
		client:   client,
		logger:   c.logger(),
	}, nil
}

// Exchange sends the grant to the token endpoint and returns the resulting
// token set.  A provider error response surfaces as a TokenError carrying
// the provider's error code and description verbatim; network failures
// surface as ErrTransport.
func (e *TokenExchanger) Exchange(ctx context.Context, grant GrantRequest) (*TokenSet, error) {
	const op = "TokenExchanger.Exchange"
	if grant == nil {
		return nil, fmt.Errorf("%s: grant is nil: %w", op, ErrNilParameter)
	}
	ctx = HTTPClientContext(ctx, e.client)

	var tok *oauth2.Token
	var err error
	switch g := grant.(type) {
	case *AuthorizationCodeGrant:
		tok, err = e.exchangeCode(ctx, g)
	case *RefreshTokenGrant:
		tok, err = e.exchangeRefresh(ctx, g)
	default:
		return nil, fmt.Errorf("%s: unknown grant type %q: %w", op, grant.grantType(), ErrInvalidParameter)
	}
	if err != nil {
		return nil, classifyExchangeErr(op, err)
	}

	if tok.AccessToken == "" {
		// a success response without an access token violates the protocol
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenExchange, ErrMissingAccessToken)
	}
	e.logger.Debug("token response successful")

	set := &TokenSet{
		AccessToken: AccessToken(tok.AccessToken),
		Expiry:      tok.Expiry,
	}
	if tok.RefreshToken != "" {
		set.RefreshToken = RefreshToken(tok.RefreshToken)
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		set.IDToken = IDToken(idToken)
	}
	return set, nil
}

func (e *TokenExchanger) exchangeCode(ctx context.Context, g *AuthorizationCodeGrant) (*oauth2.Token, error) {
	cfg, opts, err := e.oauth2Config(g.RedirectURI)
	if err != nil {
		return nil, err
	}
	if g.PKCEVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(g.PKCEVerifier))
	}
	return cfg.Exchange(ctx, g.Code, opts...)
}

func (e *TokenExchanger) exchangeRefresh(ctx context.Context, g *RefreshTokenGrant) (*oauth2.Token, error) {
	if g.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is empty: %w", ErrInvalidParameter)
	}
	if e.auth != nil && e.auth.method == PrivateKeyJWT {
		// the oauth2 token source cannot carry a client assertion, so the
		// refresh grant is sent directly
		return e.refreshWithAssertion(ctx, g)
	}
	cfg, _, err := e.oauth2Config("")
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: string(g.RefreshToken)}).Token()
}

// oauth2Config maps the negotiated client authentication onto the oauth2
// package's auth styles, plus extra request parameters where the style alone
// isn't enough.
func (e *TokenExchanger) oauth2Config(redirectURL string) (*oauth2.Config, []oauth2.AuthCodeOption, error) {
	cfg := &oauth2.Config{
		ClientID:    e.clientID,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if e.auth == nil {
		return cfg, nil, nil
	}

	var opts []oauth2.AuthCodeOption
	switch e.auth.method {
	case ClientSecretBasic:
		cfg.ClientSecret = string(e.auth.secret)
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInHeader
	case ClientSecretPost:
		cfg.ClientSecret = string(e.auth.secret)
	case PrivateKeyJWT:
		assertion, err := e.auth.assertion.Serialize()
		if err != nil {
			return nil, nil, fmt.Errorf("unable to create client assertion: %w: %w", ErrConfiguration, err)
		}
		opts = append(opts,
			oauth2.SetAuthURLParam("client_assertion_type", clientassertion.JWTTypeParam),
			oauth2.SetAuthURLParam("client_assertion", assertion),
		)
	case AuthMethodNone:
	}
	return cfg, opts, nil
}

// refreshWithAssertion sends a refresh_token grant authenticated with a
// private_key_jwt client assertion.
func (e *TokenExchanger) refreshWithAssertion(ctx context.Context, g *RefreshTokenGrant) (*oauth2.Token, error) {
	assertion, err := e.auth.assertion.Serialize()
	if err != nil {
		return nil, fmt.Errorf("unable to create client assertion: %w: %w", ErrConfiguration, err)
	}
	form := url.Values{
		"grant_type":            {"refresh_token"},
		"refresh_token":         {string(g.RefreshToken)},
		"client_id":             {e.clientID},
		"client_assertion_type": {clientassertion.JWTTypeParam},
		"client_assertion":      {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	e.logger.Debug("token response", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		_ = json.Unmarshal(body, &errBody)
		if errBody.Error != "" {
			return nil, &TokenError{Code: errBody.Error, Description: errBody.ErrorDescription}
		}
		return nil, fmt.Errorf("unexpected token response status %d: %w", resp.StatusCode, ErrTokenExchange)
	}

	var tokenBody struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
		IDToken      string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &tokenBody); err != nil {
		return nil, fmt.Errorf("cannot parse token response: %w", ErrTokenExchange)
	}
	tok := &oauth2.Token{
		AccessToken:  tokenBody.AccessToken,
		TokenType:    tokenBody.TokenType,
		RefreshToken: tokenBody.RefreshToken,
	}
	if tokenBody.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(tokenBody.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]interface{}{"id_token": tokenBody.IDToken}), nil
}

// classifyExchangeErr sorts a failed token request into the error taxonomy:
// provider error responses become TokenErrors, anything already classified
// passes through, and what remains is a transport failure.
func classifyExchangeErr(op string, err error) error {
	var re *oauth2.RetrieveError
	switch {
	case errors.As(err, &re):
		if re.ErrorCode != "" {
			return fmt.Errorf("%s: %w", op, &TokenError{Code: re.ErrorCode, Description: re.ErrorDescription})
		}
		return fmt.Errorf("%s: malformed token response: %w: %v", op, ErrTokenExchange, err)
	case errors.Is(err, ErrTokenExchange),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrInvalidParameter):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: token request failed: %w: %w", op, ErrTransport, err)
	}
}
