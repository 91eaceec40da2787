package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_sanitizeIdentifier(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "alice@example.com", want: "alice@example.com"},
		{name: "surrounding-space", in: "  alice  ", want: "alice"},
		{name: "control-runes-are-stripped", in: "al\u0007ice\u200b", want: "alice"},
		{name: "compatibility-normalization", in: "ａlice", want: "alice"},
		{name: "only-invisible-runes", in: " \u200b\u0007 ", want: ""},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeIdentifier(tt.in))
		})
	}
}

func TestDefaultProfileDefinition(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	def := DefaultProfileDefinition()
	p := def.NewProfile()

	def.ConvertAndAdd(p, "role", StringValue("admin"))
	assert.Equal("admin", attrString(t, p, "role"))

	// overwrites by default; gap-filling is the caller's concern
	def.ConvertAndAdd(p, "role", StringValue("member"))
	assert.Equal("member", attrString(t, p, "role"))

	// null values and empty names are dropped
	def.ConvertAndAdd(p, "missing", ClaimValue{})
	assert.False(p.HasAttribute("missing"))
	def.ConvertAndAdd(p, "", StringValue("x"))
	assert.Empty(p.ID)
	assert.Equal([]string{"role"}, p.AttributeNames())
}

func TestProfile_Attributes(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	def := DefaultProfileDefinition()
	p := def.NewProfile()
	def.ConvertAndAdd(p, "b", StringValue("2"))
	def.ConvertAndAdd(p, "a", StringValue("1"))

	assert.True(p.HasAttribute("a"))
	assert.False(p.HasAttribute("z"))
	_, ok := p.Attribute("z")
	assert.False(ok)
	assert.Equal([]string{"a", "b"}, p.AttributeNames())
}
