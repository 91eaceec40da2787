package oidc

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mloesch/pac4j/oidc/clientassertion"
)

// NegotiatedAuthentication is the immutable result of client authentication
// negotiation: the chosen method plus the material needed to perform it.  It
// is computed at most once per Authenticator, owned by it for its lifetime,
// and safe for concurrent reads by in-flight logins.
type NegotiatedAuthentication struct {
	method ClientAuthMethod

	// secret is set for the client_secret_basic and client_secret_post
	// methods.
	secret ClientSecret

	// assertion is set for the private_key_jwt method and produces a fresh
	// signed assertion per token request.
	assertion *clientassertion.JWT
}

// Method returns the chosen client authentication method.
func (n *NegotiatedAuthentication) Method() ClientAuthMethod {
	return n.method
}

// negotiateAuthMethod chooses the client authentication method from the
// configuration and the provider's declared capabilities.  It returns nil
// when no credential material is configured at all, meaning token requests
// carry only the client id.  It performs no network I/O.
func negotiateAuthMethod(c *Config, md *ProviderMetadata, logger hclog.Logger) (*NegotiatedAuthentication, error) {
	const op = "oidc.negotiateAuthMethod"
	if c.ClientSecret == "" && c.PrivateKeyJWT == nil {
		return nil, nil
	}
	if md == nil {
		md = &ProviderMetadata{}
	}

	preferred := c.PreferredAuthMethod
	if preferred != "" && !preferred.Supported() {
		return nil, fmt.Errorf("%s: configured authentication method (%s) is not supported: %w",
			op, preferred, ErrUnsupportedAuthMethod)
	}

	var chosen ClientAuthMethod
	switch {
	case len(md.AuthMethodsSupported) > 0:
		switch {
		case preferred != "":
			if !methodListContains(md.AuthMethodsSupported, preferred) {
				return nil, fmt.Errorf("%s: preferred authentication method (%s) not supported by provider according to provider metadata (%v): %w",
					op, preferred, md.AuthMethodsSupported, ErrUnsupportedAuthMethod)
			}
			chosen = preferred
		default:
			first, ok := firstSupportedMethod(md.AuthMethodsSupported)
			if !ok {
				return nil, fmt.Errorf("%s: none of the token endpoint provider metadata authentication methods are supported (%v): %w",
					op, md.AuthMethodsSupported, ErrUnsupportedAuthMethod)
			}
			chosen = first
		}
	default:
		if preferred != "" {
			chosen = preferred
		} else {
			chosen = DefaultAuthMethod
		}
		logger.Info("provider metadata does not declare token endpoint authentication methods", "using", chosen)
	}

	switch chosen {
	case ClientSecretPost, ClientSecretBasic:
		if c.ClientSecret == "" {
			return nil, fmt.Errorf("%s: client secret is required for method %s: %w", op, chosen, ErrConfiguration)
		}
		return &NegotiatedAuthentication{method: chosen, secret: c.ClientSecret}, nil

	case PrivateKeyJWT:
		pk := c.PrivateKeyJWT
		if pk == nil {
			return nil, fmt.Errorf("%s: private key JWT config is missing: %w", op, ErrConfiguration)
		}
		if pk.SigningAlg == "" {
			return nil, fmt.Errorf("%s: private key JWT signing algorithm is missing: %w", op, ErrConfiguration)
		}
		if pk.PrivateKey == nil {
			return nil, fmt.Errorf("%s: private key JWT private key is missing: %w", op, ErrConfiguration)
		}
		if pk.KeyID == "" {
			return nil, fmt.Errorf("%s: private key JWT key id is missing: %w", op, ErrConfiguration)
		}
		// the signed assertion is addressed to the token endpoint
		if md.TokenEndpoint == "" {
			return nil, fmt.Errorf("%s: token endpoint is required for private_key_jwt: %w", op, ErrConfiguration)
		}
		assertion, err := clientassertion.NewJWT(c.ClientID, []string{md.TokenEndpoint},
			clientassertion.WithSigningKey(string(pk.SigningAlg), pk.PrivateKey),
			clientassertion.WithKeyID(pk.KeyID),
		)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot instantiate private key JWT client authentication: %w: %w", op, ErrConfiguration, err)
		}
		return &NegotiatedAuthentication{method: chosen, assertion: assertion}, nil

	case AuthMethodNone:
		return &NegotiatedAuthentication{method: chosen}, nil

	default:
		return nil, fmt.Errorf("%s: unsupported client authentication method: %s: %w", op, chosen, ErrUnsupportedAuthMethod)
	}
}

func methodListContains(methods []ClientAuthMethod, m ClientAuthMethod) bool {
	for _, candidate := range methods {
		if candidate == m {
			return true
		}
	}
	return false
}

// firstSupportedMethod scans the provider-declared methods in the provider's
// own order and returns the first one in the locally supported set.
func firstSupportedMethod(methods []ClientAuthMethod) (ClientAuthMethod, bool) {
	for _, m := range methods {
		if m.Supported() {
			return m, true
		}
	}
	return "", false
}
