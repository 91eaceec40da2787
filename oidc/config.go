package oidc

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// PrivateKeyJWTConfig holds the material needed to authenticate with the
// private_key_jwt client authentication method.
type PrivateKeyJWTConfig struct {
	// SigningAlg is the JWS algorithm used to sign the client assertion.
	SigningAlg Alg

	// PrivateKey is the signing key.  Any key type accepted by go-jose for
	// the configured algorithm works (*rsa.PrivateKey, *ecdsa.PrivateKey,
	// ed25519.PrivateKey).
	PrivateKey crypto.PrivateKey

	// KeyID is the "kid" header set on the client assertion so the provider
	// can look up the matching public key.
	KeyID string
}

// Config represents the relying party configuration for authenticating users
// against one OIDC provider.
type Config struct {
	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret.  Leaving both ClientSecret
	// and PrivateKeyJWT unset disables client authentication entirely: token
	// requests then carry only the ClientID.
	ClientSecret ClientSecret

	// PreferredAuthMethod optionally pins the client authentication method.
	// When empty, a provider-declared method is chosen during negotiation.
	PreferredAuthMethod ClientAuthMethod

	// PrivateKeyJWT supplies the signing material for the private_key_jwt
	// method.  Required when that method is preferred or negotiated.
	PrivateKeyJWT *PrivateKeyJWTConfig

	// UseNonce controls whether an expected nonce is read from the session
	// store and required to match the nonce bound into the ID token.
	UseNonce bool

	// IncludeAccessTokenClaims adds the access token's claims to the profile
	// as a lowest-precedence claim source, when the access token happens to
	// be a parsable JWT.
	IncludeAccessTokenClaims bool

	// TokenExpirationAdvance is copied onto every assembled profile so hosts
	// can renew sessions before the tokens actually expire.
	TokenExpirationAdvance time.Duration

	// Scopes is a list of additional oidc scopes to request of the provider.
	// The required "openid" scope is always requested.
	Scopes []string

	// SupportedSigningAlgs is a list of token signing algorithms accepted
	// during validation. List of currently supported algs: RS256, RS384,
	// RS512, ES256, ES384, ES512, PS256, PS384, PS512, EdDSA.  An empty list
	// accepts RS256 only.
	SupportedSigningAlgs []Alg

	// ProviderCA is an optional CA cert PEM to use when sending requests to
	// the provider.
	ProviderCA string

	// Logger is an optional logger
	Logger hclog.Logger
}

// NewConfig composes a new relying party config.  An empty clientSecret is
// allowed and disables client authentication unless private_key_jwt material
// is provided.
// Supported options:
//
//	WithPreferredAuthMethod
//	WithPrivateKeyJWT
//	WithUseNonce
//	WithIncludeAccessTokenClaims
//	WithTokenExpirationAdvance
//	WithScopes
//	WithSupportedSigningAlgs
//	WithProviderCA
//	WithLogger
func NewConfig(clientID string, clientSecret ClientSecret, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:                 clientID,
		ClientSecret:             clientSecret,
		PreferredAuthMethod:      opts.withPreferredAuthMethod,
		PrivateKeyJWT:            opts.withPrivateKeyJWT,
		UseNonce:                 opts.withUseNonce,
		IncludeAccessTokenClaims: opts.withIncludeAccessTokenClaims,
		TokenExpirationAdvance:   opts.withTokenExpirationAdvance,
		Scopes:                   opts.withScopes,
		SupportedSigningAlgs:     opts.withSupportedSigningAlgs,
		ProviderCA:               opts.withProviderCA,
		Logger:                   opts.withLogger,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the relying party configuration.  Compatibility of the preferred
// method with the provider is not checked here; that is the negotiation's
// concern.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if c.TokenExpirationAdvance < 0 {
		result = multierror.Append(result, fmt.Errorf("token expiration advance is negative: %w", ErrInvalidParameter))
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("unsupported algorithm %s: %w", a, ErrInvalidParameter))
		}
	}
	if c.PrivateKeyJWT != nil && c.PrivateKeyJWT.SigningAlg != "" && !supportedAlgorithms[c.PrivateKeyJWT.SigningAlg] {
		result = multierror.Append(result, fmt.Errorf("unsupported private key JWT algorithm %s: %w", c.PrivateKeyJWT.SigningAlg, ErrInvalidParameter))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrConfiguration, err)
	}
	return nil
}

// logger returns the configured logger or a null logger, so callers never
// have to nil-check.
func (c *Config) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured.  The client uses the optional ProviderCA PEM if
// provided, otherwise the installed system CA chain.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()

	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	return &http.Client{
		Transport: tr,
	}, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options for Config
type configOptions struct {
	withPreferredAuthMethod      ClientAuthMethod
	withPrivateKeyJWT            *PrivateKeyJWTConfig
	withUseNonce                 bool
	withIncludeAccessTokenClaims bool
	withTokenExpirationAdvance   time.Duration
	withScopes                   []string
	withSupportedSigningAlgs     []Alg
	withProviderCA               string
	withLogger                   hclog.Logger
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPreferredAuthMethod pins the client authentication method instead of
// letting negotiation pick from the provider's declared methods.
func WithPreferredAuthMethod(m ClientAuthMethod) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPreferredAuthMethod = m
		}
	}
}

// WithPrivateKeyJWT provides the signing material for the private_key_jwt
// client authentication method.
func WithPrivateKeyJWT(alg Alg, key crypto.PrivateKey, keyID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPrivateKeyJWT = &PrivateKeyJWTConfig{
				SigningAlg: alg,
				PrivateKey: key,
				KeyID:      keyID,
			}
		}
	}
}

// WithUseNonce requires the ID token's nonce to match the per-session nonce
// read from the session store during profile creation.
func WithUseNonce() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withUseNonce = true
		}
	}
}

// WithIncludeAccessTokenClaims adds the access token's claims to the profile
// as the lowest-precedence claim source.
func WithIncludeAccessTokenClaims() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withIncludeAccessTokenClaims = true
		}
	}
}

// WithTokenExpirationAdvance provides the duration copied onto assembled
// profiles for session-expiration-with-token behavior.
func WithTokenExpirationAdvance(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withTokenExpirationAdvance = d
		}
	}
}

// WithScopes provides an optional list of scopes for the config
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithSupportedSigningAlgs provides the token signing algorithms accepted
// during validation.
func WithSupportedSigningAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSupportedSigningAlgs = algs
		}
	}
}

// WithProviderCA provides an optional CA cert PEM for the config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithLogger provides an optional logger for the config
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withLogger = l
		}
	}
}
