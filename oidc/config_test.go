package oidc

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("client-id", "client-secret",
			WithPreferredAuthMethod(ClientSecretPost),
			WithUseNonce(),
			WithIncludeAccessTokenClaims(),
			WithTokenExpirationAdvance(time.Minute),
			WithScopes("profile", "email"),
			WithSupportedSigningAlgs(RS256, ES256),
			WithLogger(hclog.NewNullLogger()),
		)
		require.NoError(err)
		assert.Equal("client-id", c.ClientID)
		assert.Equal(ClientSecret("client-secret"), c.ClientSecret)
		assert.Equal(ClientSecretPost, c.PreferredAuthMethod)
		assert.True(c.UseNonce)
		assert.True(c.IncludeAccessTokenClaims)
		assert.Equal(time.Minute, c.TokenExpirationAdvance)
		assert.Equal([]string{"profile", "email"}, c.Scopes)
		assert.Equal([]Alg{RS256, ES256}, c.SupportedSigningAlgs)
	})
	t.Run("empty-secret-is-allowed", func(t *testing.T) {
		t.Parallel()
		_, err := NewConfig("client-id", "")
		require.NoError(t, err)
	})
	t.Run("private-key-jwt-option", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		key := TestGenerateRSAKey(t)
		c, err := NewConfig("client-id", "",
			WithPrivateKeyJWT(RS256, key, "key-1"),
		)
		require.NoError(err)
		require.NotNil(c.PrivateKeyJWT)
		assert.Equal(RS256, c.PrivateKeyJWT.SigningAlg)
		assert.Equal("key-1", c.PrivateKeyJWT.KeyID)
	})

	tests := []struct {
		name string
		opts []Option
		id   string
	}{
		{name: "empty-client-id", id: ""},
		{name: "negative-expiration-advance", id: "c", opts: []Option{WithTokenExpirationAdvance(-time.Second)}},
		{name: "unsupported-signing-alg", id: "c", opts: []Option{WithSupportedSigningAlgs("HS256")}},
		{name: "unsupported-assertion-alg", id: "c", opts: []Option{WithPrivateKeyJWT("HS256", nil, "k")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)
			_, err := NewConfig(tt.id, "secret", tt.opts...)
			assert.Error(err)
			assert.ErrorIs(err, ErrConfiguration)
			assert.ErrorIs(err, ErrInvalidParameter)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	var c *Config
	assert.ErrorIs(c.Validate(), ErrNilParameter)
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	t.Run("custom-ca", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		c, err := NewConfig("client-id", "secret", WithProviderCA(tp.CACert()))
		require.NoError(err)
		client, err := c.HTTPClient()
		require.NoError(err)
		tr, ok := client.Transport.(*http.Transport)
		require.True(ok)
		assert.NotNil(tr.TLSClientConfig.RootCAs)
	})
	t.Run("no-ca", func(t *testing.T) {
		t.Parallel()
		require := require.New(t)
		c, err := NewConfig("client-id", "secret")
		require.NoError(err)
		client, err := c.HTTPClient()
		require.NoError(err)
		tr, ok := client.Transport.(*http.Transport)
		require.True(ok)
		require.True(tr.TLSClientConfig == nil || tr.TLSClientConfig.RootCAs == nil)
	})
	t.Run("bad-ca-pem", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		c := &Config{ClientID: "client-id", ProviderCA: "not a pem"}
		_, err := c.HTTPClient()
		assert.ErrorIs(err, ErrInvalidCACert)
	})
}

func TestClientSecret_Redaction(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	secret := ClientSecret("super-secret")
	assert.Equal(RedactedClientSecret, secret.String())
	b, err := json.Marshal(secret)
	require.NoError(err)
	assert.Equal(`"`+RedactedClientSecret+`"`, string(b))
}
