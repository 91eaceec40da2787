package oidc

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys will generate a test ECDSA P-256 pub/priv key pair
func TestGenerateKeys(t *testing.T) (pub, priv string) {
	t.Helper()
	require := require.New(t)
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)

	{
		derBytes, err := x509.MarshalECPrivateKey(privateKey)
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "EC PRIVATE KEY",
			Bytes: derBytes,
		}
		priv = string(pem.EncodeToMemory(pemBlock))
	}
	{
		derBytes, err := x509.MarshalPKIXPublicKey(privateKey.Public())
		require.NoError(err)

		pemBlock := &pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: derBytes,
		}
		pub = string(pem.EncodeToMemory(pemBlock))
	}

	return pub, priv
}

// TestGenerateRSAKey will generate a test RSA key pair suitable for signing
// private_key_jwt client assertions.
func TestGenerateRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// TestSignJWT will bundle the provided claims into a test signed JWT. The
// provided key must be an ECDSA P-256 private key PEM.
func TestSignJWT(t *testing.T, ecdsaPrivKeyPEM string, claims jwt.Claims, privateClaims interface{}) string {
	t.Helper()
	require := require.New(t)
	var key *ecdsa.PrivateKey
	block, _ := pem.Decode([]byte(ecdsaPrivKeyPEM))
	if block != nil {
		var err error
		key, err = x509.ParseECPrivateKey(block.Bytes)
		require.NoError(err)
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).
		Claims(claims).
		Claims(privateClaims).
		Serialize()
	require.NoError(err)

	return raw
}

// TestSessionStore is an in-memory SessionStore for tests.  It is scoped to
// one simulated request/session.
type TestSessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewTestSessionStore creates an empty TestSessionStore.
func NewTestSessionStore() *TestSessionStore {
	return &TestSessionStore{values: map[string]string{}}
}

// Get implements SessionStore.
func (s *TestSessionStore) Get(_ context.Context, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set implements SessionStore.
func (s *TestSessionStore) Set(_ context.Context, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// TestLogoutRecorder is a LogoutHandler that captures recorded session ids.
type TestLogoutRecorder struct {
	mu         sync.Mutex
	SessionIDs []string
}

// NewTestLogoutRecorder creates an empty TestLogoutRecorder.
func NewTestLogoutRecorder() *TestLogoutRecorder {
	return &TestLogoutRecorder{}
}

// RecordSession implements LogoutHandler.
func (r *TestLogoutRecorder) RecordSession(_ context.Context, _ SessionStore, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SessionIDs = append(r.SessionIDs, sessionID)
}
