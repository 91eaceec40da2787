package clientassertion

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestNewJWT(t *testing.T) {
	t.Parallel()
	key := testRSAKey(t)

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		j, err := NewJWT("client-id", []string{"https://p/token"},
			WithSigningKey("RS256", key),
			WithKeyID("key-1"),
		)
		require.NoError(err)
		require.NotNil(j)
	})

	tests := []struct {
		name     string
		clientID string
		audience []string
		opts     []Option
		wantErr  error
	}{
		{
			name:     "missing-client-id",
			audience: []string{"https://p/token"},
			opts:     []Option{WithSigningKey("RS256", key)},
			wantErr:  ErrMissingClientID,
		},
		{
			name:     "missing-audience",
			clientID: "client-id",
			opts:     []Option{WithSigningKey("RS256", key)},
			wantErr:  ErrMissingAudience,
		},
		{
			name:     "missing-algorithm",
			clientID: "client-id",
			audience: []string{"https://p/token"},
			opts:     []Option{WithSigningKey("", key)},
			wantErr:  ErrMissingAlgorithm,
		},
		{
			name:     "missing-key",
			clientID: "client-id",
			audience: []string{"https://p/token"},
			opts:     []Option{WithSigningKey("RS256", nil)},
			wantErr:  ErrMissingKey,
		},
		{
			name:     "key-algorithm-mismatch",
			clientID: "client-id",
			audience: []string{"https://p/token"},
			opts:     []Option{WithSigningKey("ES256", key)},
			wantErr:  ErrCreatingSigner,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			_, err := NewJWT(tt.clientID, tt.audience, tt.opts...)
			assert.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestJWT_Serialize(t *testing.T) {
	t.Parallel()
	key := testRSAKey(t)
	now := time.Now().UTC().Truncate(time.Second)

	newJWT := func(t *testing.T, opts ...Option) *JWT {
		t.Helper()
		opts = append([]Option{WithSigningKey("RS256", key)}, opts...)
		j, err := NewJWT("client-id", []string{"https://p/token"}, opts...)
		require.NoError(t, err)
		return j
	}
	parse := func(t *testing.T, raw string) (jwt.Claims, jose.Header) {
		t.Helper()
		r := require.New(t)
		token, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
		r.NoError(err)
		var claims jwt.Claims
		r.NoError(token.Claims(key.Public(), &claims))
		r.Len(token.Headers, 1)
		return claims, token.Headers[0]
	}

	t.Run("claims", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		j := newJWT(t,
			WithKeyID("key-1"),
			WithIDAndNowFuncs(func() (string, error) { return "fixed-id", nil }, func() time.Time { return now }),
		)
		raw, err := j.Serialize()
		require.NoError(err)
		claims, header := parse(t, raw)

		assert.Equal("client-id", claims.Issuer)
		assert.Equal("client-id", claims.Subject)
		assert.Equal(jwt.Audience{"https://p/token"}, claims.Audience)
		assert.Equal("fixed-id", claims.ID)
		assert.Equal(now, claims.IssuedAt.Time().UTC())
		assert.Equal(now.Add(DefaultLifetime), claims.Expiry.Time().UTC())
		assert.Equal("key-1", header.KeyID)
		assert.Equal("JWT", header.ExtraHeaders["typ"])
	})
	t.Run("fresh-token-id-per-call", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		j := newJWT(t)
		first, err := j.Serialize()
		require.NoError(err)
		second, err := j.Serialize()
		require.NoError(err)

		c1, _ := parse(t, first)
		c2, _ := parse(t, second)
		assert.NotEmpty(c1.ID)
		assert.NotEqual(c1.ID, c2.ID)
	})
	t.Run("custom-lifetime", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		j := newJWT(t,
			WithLifetime(time.Minute),
			WithIDAndNowFuncs(nil, func() time.Time { return now }),
		)
		raw, err := j.Serialize()
		require.NoError(err)
		claims, _ := parse(t, raw)
		assert.Equal(now.Add(time.Minute), claims.Expiry.Time().UTC())
	})
	t.Run("extra-headers", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		j := newJWT(t, WithHeaders(map[string]string{"x5t": "thumbprint"}))
		raw, err := j.Serialize()
		require.NoError(err)
		_, header := parse(t, raw)
		assert.Equal("thumbprint", header.ExtraHeaders["x5t"])
	})
}
