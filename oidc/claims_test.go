package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_claimValueFrom(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	v := claimValueFrom("hello")
	s, ok := v.AsString()
	assert.True(ok)
	assert.Equal("hello", s)

	v = claimValueFrom(float64(42))
	n, ok := v.AsNumber()
	assert.True(ok)
	assert.Equal(float64(42), n)

	v = claimValueFrom(true)
	b, ok := v.AsBool()
	assert.True(ok)
	assert.True(b)

	v = claimValueFrom(nil)
	assert.True(v.IsNull())
	assert.Equal(KindNull, v.Kind())

	v = claimValueFrom([]interface{}{"a", float64(1)})
	list, ok := v.AsList()
	assert.True(ok)
	assert.Len(list, 2)

	v = claimValueFrom(map[string]interface{}{"k": "v"})
	obj, ok := v.AsObject()
	assert.True(ok)
	inner, _ := obj["k"].AsString()
	assert.Equal("v", inner)

	// unknown shapes degrade to strings
	v = claimValueFrom(struct{ X int }{X: 1})
	assert.Equal(KindString, v.Kind())
}

func TestClaimValue_String(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	assert.Equal("hello", StringValue("hello").String())
	assert.Equal("1.5", NumberValue(1.5).String())
	assert.Equal("true", BoolValue(true).String())
	assert.Equal("null", ClaimValue{}.String())
	assert.Equal("[a,b]", ListValue(StringValue("a"), StringValue("b")).String())
	assert.Equal("{a=1,b=2}", ObjectValue(map[string]ClaimValue{
		"b": NumberValue(2),
		"a": NumberValue(1),
	}).String())
}

func TestClaimValue_Interface(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	in := map[string]interface{}{
		"name":   "alice",
		"admin":  true,
		"level":  float64(3),
		"groups": []interface{}{"a", "b"},
		"nested": map[string]interface{}{"k": "v"},
	}
	assert.Equal(in, claimValueFrom(in).Interface())
}

func TestClaimsSet(t *testing.T) {
	t.Parallel()
	t.Run("insertion-order", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		c := NewClaimsSet()
		c.Set("z", StringValue("1"))
		c.Set("a", StringValue("2"))
		c.Set("m", StringValue("3"))
		assert.Equal([]string{"z", "a", "m"}, c.Names())

		// replacing keeps the original position
		c.Set("a", StringValue("updated"))
		assert.Equal([]string{"z", "a", "m"}, c.Names())
		assert.Equal(3, c.Len())
		v, ok := c.Get("a")
		assert.True(ok)
		s, _ := v.AsString()
		assert.Equal("updated", s)
	})
	t.Run("from-map-is-deterministic", func(t *testing.T) {
		t.Parallel()
		assert := assert.New(t)
		c := NewClaimsSetFromMap(map[string]interface{}{
			"sub": "alice", "aud": "rp", "iss": "https://p",
		})
		assert.Equal([]string{"aud", "iss", "sub"}, c.Names())
	})
	t.Run("subject", func(t *testing.T) {
		t.Parallel()
		assert, require := assert.New(t), require.New(t)
		c := NewClaimsSetFromMap(map[string]interface{}{"sub": "alice"})
		assert.Equal("alice", c.Subject())

		require.Empty(NewClaimsSet().Subject())

		// a non-string subject reads as absent
		c = NewClaimsSetFromMap(map[string]interface{}{"sub": float64(7)})
		assert.Empty(c.Subject())
	})
	t.Run("nil-len", func(t *testing.T) {
		t.Parallel()
		var c *ClaimsSet
		assert.Zero(t, c.Len())
	})
}
