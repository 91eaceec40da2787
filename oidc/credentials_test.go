package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials(t *testing.T) {
	t.Parallel()
	t.Run("token-set-shape", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		set := &TokenSet{AccessToken: "at", RefreshToken: "rt", IDToken: "idt"}
		creds, err := NewCredentials(set)
		require.NoError(err)

		got, ok := creds.TokenSet()
		assert.True(ok)
		assert.Same(set, got)
		_, ok = creds.BearerToken()
		assert.False(ok)
		assert.Equal(AccessToken("at"), creds.AccessToken())
	})
	t.Run("bearer-shape", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		creds, err := NewBearerCredentials("api-token")
		require.NoError(err)

		_, ok := creds.TokenSet()
		assert.False(ok)
		bearer, ok := creds.BearerToken()
		assert.True(ok)
		assert.Equal(AccessToken("api-token"), bearer)
		assert.Equal(AccessToken("api-token"), creds.AccessToken())
	})
	t.Run("constructor-errors", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		_, err := NewCredentials(nil)
		assert.ErrorIs(err, ErrNilParameter)
		_, err = NewBearerCredentials("")
		assert.ErrorIs(err, ErrInvalidParameter)
	})
	t.Run("nil-receiver", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		var creds *Credentials
		_, ok := creds.TokenSet()
		assert.False(ok)
		_, ok = creds.BearerToken()
		assert.False(ok)
		assert.Empty(creds.AccessToken())
	})
}
