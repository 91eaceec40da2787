package oidc

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// initState models guarded one-time initialization: the transition
// Uninitialized -> Ready runs exactly once unless a reinit is forced.
type initState int

const (
	initStateUninitialized initState = iota
	initStateInitializing
	initStateReady
)

// Authenticator validates login credentials by exchanging an authorization
// grant at the provider's token endpoint.  Client authentication is
// negotiated once, eagerly, at construction; after that an Authenticator is
// safe for concurrent use by independent login attempts.
type Authenticator struct {
	config   *Config
	provider *Provider
	logger   hclog.Logger

	mu        sync.Mutex
	state     initState
	auth      *NegotiatedAuthentication
	exchanger *TokenExchanger
}

// NewAuthenticator creates an Authenticator and eagerly negotiates the
// client authentication method against the provider's metadata.  Negotiation
// failures (unsupported method, missing key material) surface here and the
// authenticator never becomes usable.
func NewAuthenticator(c *Config, p *Provider) (*Authenticator, error) {
	const op = "oidc.NewAuthenticator"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, ErrNilParameter)
	}
	a := &Authenticator{
		config:   c,
		provider: p,
		logger:   c.logger(),
	}
	if err := a.Init(); err != nil {
		return nil, err
	}
	return a, nil
}

// Init runs client authentication negotiation.  It is idempotent: once the
// authenticator is ready, calling Init again performs no further checks and
// keeps the existing NegotiatedAuthentication.  Supports the
// WithForceReinit option, which discards the previous result first.
func (a *Authenticator) Init(opt ...Option) error {
	const op = "Authenticator.Init"
	opts := getInitOpts(opt...)

	a.mu.Lock()
	defer a.mu.Unlock()
	if opts.withForceReinit {
		a.state = initStateUninitialized
		a.auth = nil
		a.exchanger = nil
	}
	if a.state == initStateReady {
		return nil
	}
	a.state = initStateInitializing

	md := a.provider.Metadata()
	auth, err := negotiateAuthMethod(a.config, md, a.logger)
	if err != nil {
		a.state = initStateUninitialized
		return fmt.Errorf("%s: %w", op, err)
	}
	exchanger, err := NewTokenExchanger(a.config, md, auth)
	if err != nil {
		a.state = initStateUninitialized
		return fmt.Errorf("%s: %w", op, err)
	}

	a.auth = auth
	a.exchanger = exchanger
	a.state = initStateReady
	if auth != nil {
		a.logger.Debug("negotiated client authentication method", "method", auth.Method())
	}
	return nil
}

// NegotiatedAuth returns the negotiation result.  The second return is
// false when no client authentication is performed (no credential material
// configured) or the authenticator isn't initialized.
func (a *Authenticator) NegotiatedAuth() (*NegotiatedAuthentication, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != initStateReady || a.auth == nil {
		return nil, false
	}
	return a.auth, true
}

func (a *Authenticator) ready() (*TokenExchanger, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != initStateReady {
		return nil, ErrNotInitialized
	}
	return a.exchanger, nil
}

// Validate authenticates an interactive login attempt: the authorization
// code received on the callback is exchanged for tokens.  When the session
// store holds a PKCE code verifier for this client, it is sent along with
// the grant.  The store may be nil.
func (a *Authenticator) Validate(ctx context.Context, code string, redirectURI string, sess SessionStore) (*Credentials, error) {
	const op = "Authenticator.Validate"
	exchanger, err := a.ready()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if code == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}

	grant := &AuthorizationCodeGrant{
		Code:        code,
		RedirectURI: redirectURI,
	}
	if sess != nil {
		if verifier, ok := sess.Get(ctx, PKCEVerifierSessionKey(a.config.ClientID)); ok {
			grant.PKCEVerifier = verifier
		}
	}

	tokens, err := exchanger.Exchange(ctx, grant)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewCredentials(tokens)
}

// Refresh exchanges the credentials' refresh token for fresh tokens,
// updating the credentials in place.  It is a no-op when the credentials
// carry no refresh token: no network call occurs.
func (a *Authenticator) Refresh(ctx context.Context, creds *Credentials) error {
	const op = "Authenticator.Refresh"
	if creds == nil {
		return fmt.Errorf("%s: credentials are nil: %w", op, ErrNilParameter)
	}
	tokens, ok := creds.TokenSet()
	if !ok || tokens.RefreshToken == "" {
		return nil
	}
	exchanger, err := a.ready()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	fresh, err := exchanger.Exchange(ctx, &RefreshTokenGrant{RefreshToken: tokens.RefreshToken})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tokens.AccessToken = fresh.AccessToken
	tokens.Expiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		tokens.RefreshToken = fresh.RefreshToken
	}
	if fresh.IDToken != "" {
		tokens.IDToken = fresh.IDToken
	}
	return nil
}
