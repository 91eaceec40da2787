package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	strutil "github.com/mloesch/pac4j/oidc/internal/strutils"
	"golang.org/x/oauth2"
)

// ProviderMetadata is the subset of an identity provider's published
// capabilities this package consumes.  It is read-only once constructed.
type ProviderMetadata struct {
	// Issuer is the provider's case-sensitive issuer URL.
	Issuer string

	// TokenEndpoint is the URL tokens are exchanged at.
	TokenEndpoint string

	// UserInfoEndpoint is the optional URL additional claims can be fetched
	// from with a bearer-authenticated request.  Empty when the provider
	// doesn't offer one.
	UserInfoEndpoint string

	// AuthMethodsSupported is the provider-declared list of token endpoint
	// client authentication methods, in the provider's own preference order.
	// Nil when the provider doesn't declare any.  Entries are kept verbatim,
	// including methods this package doesn't support locally.
	AuthMethodsSupported []ClientAuthMethod
}

// clone returns a copy so callers can't mutate the provider's metadata.
func (m *ProviderMetadata) clone() *ProviderMetadata {
	c := *m
	c.AuthMethodsSupported = append([]ClientAuthMethod(nil), m.AuthMethodsSupported...)
	return &c
}

// Provider wraps one identity provider: its metadata, the http client used
// to reach it and the key set used to verify its tokens.  A Provider is safe
// for concurrent use.
type Provider struct {
	config   *Config
	metadata *ProviderMetadata
	provider *oidc.Provider
	client   *http.Client
	logger   hclog.Logger
}

// providerClaims are the discovery document fields read beyond what the
// underlying library exposes directly.
type providerClaims struct {
	UserInfoEndpoint string   `json:"userinfo_endpoint"`
	AuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
}

// NewProvider discovers a provider's metadata from the issuer's well-known
// configuration document.  Discovery makes an http request to the issuer.
func NewProvider(ctx context.Context, issuer string, c *Config) (*Provider, error) {
	const op = "oidc.NewProvider"
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	if err := validateIssuer(issuer); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	provider, err := oidc.NewProvider(HTTPClientContext(ctx, client), issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to discover provider: %w: %w", op, ErrTransport, err)
	}
	var discovered providerClaims
	if err := provider.Claims(&discovered); err != nil {
		return nil, fmt.Errorf("%s: unable to read provider metadata: %w", op, err)
	}

	methods := make([]ClientAuthMethod, 0, len(discovered.AuthMethods))
	for _, m := range discovered.AuthMethods {
		methods = append(methods, ClientAuthMethod(m))
	}
	md := &ProviderMetadata{
		Issuer:               issuer,
		TokenEndpoint:        provider.Endpoint().TokenURL,
		UserInfoEndpoint:     discovered.UserInfoEndpoint,
		AuthMethodsSupported: methods,
	}
	return &Provider{
		config:   c,
		metadata: md,
		provider: provider,
		client:   client,
		logger:   c.logger(),
	}, nil
}

// NewStaticProvider builds a Provider from already-known metadata, without a
// discovery request.  The jwksURL is required for token validation; keys are
// fetched lazily on first use.
func NewStaticProvider(ctx context.Context, md *ProviderMetadata, jwksURL string, c *Config) (*Provider, error) {
	const op = "oidc.NewStaticProvider"
	if md == nil {
		return nil, fmt.Errorf("%s: provider metadata is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	if md.TokenEndpoint == "" {
		return nil, fmt.Errorf("%s: token endpoint is empty: %w", op, ErrInvalidParameter)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	algs := make([]string, 0, len(c.SupportedSigningAlgs))
	for _, a := range c.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	cfg := oidc.ProviderConfig{
		IssuerURL:   md.Issuer,
		TokenURL:    md.TokenEndpoint,
		UserInfoURL: md.UserInfoEndpoint,
		JWKSURL:     jwksURL,
		Algorithms:  algs,
	}
	return &Provider{
		config:   c,
		metadata: md.clone(),
		provider: cfg.NewProvider(HTTPClientContext(ctx, client)),
		client:   client,
		logger:   c.logger(),
	}, nil
}

// Metadata returns a copy of the provider's metadata.
func (p *Provider) Metadata() *ProviderMetadata {
	return p.metadata.clone()
}

// UserInfo gets the user-info claims from the provider using the token
// produced by the tokenSource.  Both plain claims responses and signed JWT
// responses are supported; signed responses are verified against the
// provider's key set.
func (p *Provider) UserInfo(ctx context.Context, tokenSource oauth2.TokenSource, claims interface{}) error {
	const op = "Provider.UserInfo"
	if tokenSource == nil {
		return fmt.Errorf("%s: token source is nil: %w", op, ErrNilParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	userinfo, err := p.provider.UserInfo(HTTPClientContext(ctx, p.client), tokenSource)
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed: %w", op, err)
	}
	if err := userinfo.Claims(claims); err != nil {
		return fmt.Errorf("%s: failed to get UserInfo claims: %w", op, err)
	}
	return nil
}

// Validate verifies the raw token's signature against the provider's key
// set, checks issuer, audience and expiry, and requires the token's nonce to
// equal expectedNonce when one is given.  On success it returns the token's
// claims; the subject claim is guaranteed to be present.
//
// Validate makes Provider the default TokenValidator.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (p *Provider) Validate(ctx context.Context, rawToken string, expectedNonce string) (*ClaimsSet, error) {
	const op = "Provider.Validate"
	if rawToken == "" {
		return nil, fmt.Errorf("%s: token is empty: %w", op, ErrInvalidParameter)
	}
	verifierConfig := &oidc.Config{
		ClientID: p.config.ClientID,
	}
	for _, a := range p.config.SupportedSigningAlgs {
		verifierConfig.SupportedSigningAlgs = append(verifierConfig.SupportedSigningAlgs, string(a))
	}
	verifier := p.provider.Verifier(verifierConfig)

	token, err := verifier.Verify(HTTPClientContext(ctx, p.client), rawToken)
	if err != nil {
		return nil, fmt.Errorf("%s: token failed verification: %w", op, err)
	}
	if expectedNonce != "" && token.Nonce != expectedNonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	if token.Subject == "" {
		return nil, fmt.Errorf("%s: subject claim is empty: %w", op, ErrMissingClaims)
	}

	var claims map[string]interface{}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to read token claims: %w", op, err)
	}
	if len(claims) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingClaims)
	}
	return NewClaimsSetFromMap(claims), nil
}

func validateIssuer(issuer string) error {
	if issuer == "" {
		return fmt.Errorf("issuer is empty: %w", ErrInvalidParameter)
	}
	u, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("issuer %s is invalid: %w", issuer, err)
	}
	if !strutil.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("issuer %s schema is not http or https: %w", issuer, ErrInvalidParameter)
	}
	return nil
}
