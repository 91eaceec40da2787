package clientassertion

import (
	"time"

	"github.com/go-jose/go-jose/v4"
)

// Option configures the JWT
type Option func(*JWT) error

// WithSigningKey sets the private key and algorithm to sign the JWT with.
// The key may be any private key type jose supports for the algorithm
// (*rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey).
func WithSigningKey(alg string, key interface{}) Option {
	return func(j *JWT) error {
		j.alg = jose.SignatureAlgorithm(alg)
		j.key = key
		return nil
	}
}

// WithKeyID sets the "kid" header that OIDC providers use to look up the
// public key to check the signed JWT
func WithKeyID(keyID string) Option {
	return func(j *JWT) error {
		j.headers["kid"] = keyID
		return nil
	}
}

// WithHeaders sets extra JWT headers
func WithHeaders(h map[string]string) Option {
	return func(j *JWT) error {
		for k, v := range h {
			j.headers[k] = v
		}
		return nil
	}
}

// WithLifetime overrides how far in the future generated assertions expire.
func WithLifetime(d time.Duration) Option {
	return func(j *JWT) error {
		j.lifetime = d
		return nil
	}
}

// WithIDAndNowFuncs sets the token id generator and clock, for tests.
func WithIDAndNowFuncs(genID func() (string, error), now func() time.Time) Option {
	return func(j *JWT) error {
		if genID != nil {
			j.genID = genID
		}
		if now != nil {
			j.now = now
		}
		return nil
	}
}
