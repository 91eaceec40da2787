package oidc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// ProfileCreator assembles a Profile from validated credentials: it
// validates the ID token, optionally calls the provider's user-info
// endpoint, and merges claims from up to three sources.
//
// Attribute precedence, highest first: user-info claims > ID-token claims >
// access-token claims.  User-info claims overwrite existing attributes; the
// other two sources only fill gaps, and the subject claim is never merged as
// an attribute.
type ProfileCreator struct {
	config   *Config
	provider *Provider
	logger   hclog.Logger

	validator     TokenValidator
	logoutHandler LogoutHandler
	definition    ProfileDefinition

	mu    sync.Mutex
	state initState
}

// NewProfileCreator creates a ProfileCreator for the provider.
// Supported options:
//
//	WithTokenValidator
//	WithLogoutHandler
//	WithProfileDefinition
func NewProfileCreator(c *Config, p *Provider, opt ...Option) (*ProfileCreator, error) {
	const op = "oidc.NewProfileCreator"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if p == nil {
		return nil, fmt.Errorf("%s: provider is nil: %w", op, ErrNilParameter)
	}
	opts := getProfileCreatorOpts(opt...)
	pc := &ProfileCreator{
		config:        c,
		provider:      p,
		logger:        c.logger(),
		validator:     opts.withTokenValidator,
		logoutHandler: opts.withLogoutHandler,
		definition:    opts.withProfileDefinition,
	}
	if err := pc.Init(); err != nil {
		return nil, err
	}
	return pc, nil
}

// Init fills in the default profile definition and token validator where
// none were injected.  Idempotent; supports WithForceReinit.
func (pc *ProfileCreator) Init(opt ...Option) error {
	opts := getInitOpts(opt...)

	pc.mu.Lock()
	defer pc.mu.Unlock()
	if opts.withForceReinit {
		pc.state = initStateUninitialized
	}
	if pc.state == initStateReady {
		return nil
	}
	pc.state = initStateInitializing
	if pc.definition == nil {
		pc.definition = DefaultProfileDefinition()
	}
	if pc.validator == nil {
		pc.validator = pc.provider
	}
	pc.state = initStateReady
	return nil
}

// Create assembles the profile for the given credentials.  The session store
// supplies the expected nonce and receives the provider session id; it may be
// nil, but when nonce usage is configured an ID token cannot be validated
// without a stored nonce and assembly fails.
func (pc *ProfileCreator) Create(ctx context.Context, creds *Credentials, sess SessionStore) (*Profile, error) {
	const op = "ProfileCreator.Create"
	if err := pc.Init(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if creds == nil {
		return nil, fmt.Errorf("%s: credentials are nil: %w", op, ErrNilParameter)
	}

	// regular flow carries a full token set; the direct API-token flow
	// carries a bare bearer token which is used as-is
	tokens, _ := creds.TokenSet()
	accessToken := creds.AccessToken()

	profile := pc.definition.NewProfile()
	profile.AccessToken = accessToken
	if tokens != nil {
		profile.IDToken = tokens.IDToken
		if tokens.RefreshToken != "" {
			profile.RefreshToken = tokens.RefreshToken
			pc.logger.Debug("refresh token successfully retrieved")
		}
	}

	// When nonce usage is configured, a login without a stored nonce cannot
	// be told apart from a replay, so it fails rather than validating
	// nonce-free.
	var expectedNonce string
	if pc.config.UseNonce && tokens != nil && tokens.IDToken != "" {
		if sess != nil {
			expectedNonce, _ = sess.Get(ctx, NonceSessionKey(pc.config.ClientID))
		}
		if expectedNonce == "" {
			return nil, fmt.Errorf("%s: expected nonce is missing from the session: %w: %w", op, ErrProfileAssembly, ErrInvalidNonce)
		}
	}

	// ID token validation; its claims are merged later, after user-info
	var idClaims *ClaimsSet
	if tokens != nil && tokens.IDToken != "" {
		claims, err := pc.validator.Validate(ctx, string(tokens.IDToken), expectedNonce)
		if err != nil {
			return nil, fmt.Errorf("%s: id_token validation failed: %w: %w", op, ErrProfileAssembly, err)
		}
		if claims.Len() == 0 {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrProfileAssembly, ErrMissingClaims)
		}
		profile.ID = sanitizeIdentifier(claims.Subject())
		if profile.ID == "" {
			return nil, fmt.Errorf("%s: subject claim is empty: %w", op, ErrProfileAssembly)
		}
		// keep the provider session id if given
		if sid, ok := claims.Get(ClaimSessionID); ok {
			if s, _ := sid.AsString(); strings.TrimSpace(s) != "" && pc.logoutHandler != nil {
				pc.logoutHandler.RecordSession(ctx, sess, s)
			}
		}
		idClaims = claims
	}

	// user-info claims: most trusted, most current source; overwrites.
	// A provider error response is logged and assembly continues.
	md := pc.provider.Metadata()
	if md.UserInfoEndpoint != "" && accessToken != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: string(accessToken),
			TokenType:   "Bearer",
		})
		var userInfoClaims map[string]interface{}
		if err := pc.provider.UserInfo(ctx, source, &userInfoClaims); err != nil {
			pc.logger.Error("user info request failed", "error", fmt.Errorf("%w: %v", ErrRecoverableClaimSource, err))
		} else {
			claims := NewClaimsSetFromMap(userInfoClaims)
			for _, name := range claims.Names() {
				if name == ClaimSubject {
					continue
				}
				v, _ := claims.Get(name)
				pc.definition.ConvertAndAdd(profile, name, v)
			}
			if profile.ID == "" {
				profile.ID = sanitizeIdentifier(claims.Subject())
			}
		}
	}

	// ID-token claims fill gaps only
	if idClaims != nil {
		for _, name := range idClaims.Names() {
			if name == ClaimSubject || profile.HasAttribute(name) {
				continue
			}
			v, _ := idClaims.Get(name)
			pc.definition.ConvertAndAdd(profile, name, v)
		}
	}

	// access-token claims are the lowest-precedence source
	if pc.config.IncludeAccessTokenClaims && accessToken != "" {
		pc.collectAccessTokenClaims(ctx, accessToken, expectedNonce, profile)
	}

	profile.TokenExpirationAdvance = pc.config.TokenExpirationAdvance
	return profile, nil
}

// collectAccessTokenClaims merges the access token's claims into attribute
// gaps, when the access token happens to be a valid JWT.  Access tokens are
// not required to be self-contained claim carriers, so parse and validation
// failures are logged and skipped.
func (pc *ProfileCreator) collectAccessTokenClaims(ctx context.Context, accessToken AccessToken, expectedNonce string, profile *Profile) {
	if _, err := jwt.ParseSigned(string(accessToken), joseAlgorithms(pc.config.SupportedSigningAlgs)); err != nil {
		pc.logger.Debug("access token does not carry claims", "error", fmt.Errorf("%w: %v", ErrRecoverableClaimSource, err))
		return
	}
	claims, err := pc.validator.Validate(ctx, string(accessToken), expectedNonce)
	if err != nil {
		pc.logger.Debug("access token claims failed validation", "error", fmt.Errorf("%w: %v", ErrRecoverableClaimSource, err))
		return
	}
	for _, name := range claims.Names() {
		if name == ClaimSubject || profile.HasAttribute(name) {
			continue
		}
		v, _ := claims.Get(name)
		pc.definition.ConvertAndAdd(profile, name, v)
	}
}

// profileCreatorOptions is the set of available options for NewProfileCreator
type profileCreatorOptions struct {
	withTokenValidator    TokenValidator
	withLogoutHandler     LogoutHandler
	withProfileDefinition ProfileDefinition
}

// profileCreatorDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func profileCreatorDefaults() profileCreatorOptions {
	return profileCreatorOptions{}
}

// getProfileCreatorOpts gets the defaults and applies the opt overrides
// passed in.
func getProfileCreatorOpts(opt ...Option) profileCreatorOptions {
	opts := profileCreatorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTokenValidator substitutes the validator used for ID tokens and
// access-token claims.  The default validator is the Provider itself.
func WithTokenValidator(v TokenValidator) Option {
	return func(o interface{}) {
		if o, ok := o.(*profileCreatorOptions); ok {
			o.withTokenValidator = v
		}
	}
}

// WithLogoutHandler provides the collaborator that records provider session
// ids for back-channel logout.
func WithLogoutHandler(h LogoutHandler) Option {
	return func(o interface{}) {
		if o, ok := o.(*profileCreatorOptions); ok {
			o.withLogoutHandler = h
		}
	}
}

// WithProfileDefinition substitutes the profile shape built during
// assembly.
func WithProfileDefinition(d ProfileDefinition) Option {
	return func(o interface{}) {
		if o, ok := o.(*profileCreatorOptions); ok {
			o.withProfileDefinition = d
		}
	}
}
