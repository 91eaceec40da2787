package oidc

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Profile is the application-usable identity record assembled from a login
// attempt's tokens and claims.
type Profile struct {
	// ID is the sanitized subject identifier.  Never empty once assembly of
	// a validated ID token succeeds.
	ID string

	AccessToken  AccessToken
	RefreshToken RefreshToken

	// IDToken is the raw ID token string, kept for downstream use (e.g.
	// RP-initiated logout).
	IDToken IDToken

	// TokenExpirationAdvance is copied from the configuration so hosts can
	// expire sessions ahead of the tokens.
	TokenExpirationAdvance time.Duration

	attributes map[string]ClaimValue
}

// Attribute returns the named profile attribute.
func (p *Profile) Attribute(name string) (ClaimValue, bool) {
	v, ok := p.attributes[name]
	return v, ok
}

// HasAttribute reports whether the named attribute is present.
func (p *Profile) HasAttribute(name string) bool {
	_, ok := p.attributes[name]
	return ok
}

// AttributeNames returns the profile's attribute names, sorted.
func (p *Profile) AttributeNames() []string {
	names := make([]string, 0, len(p.attributes))
	for k := range p.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ProfileDefinition builds profiles and converts claim values into profile
// attributes.  One implementation exists per profile shape; hosts with their
// own shapes supply one via WithProfileDefinition.
type ProfileDefinition interface {
	// NewProfile creates an empty profile of this definition's shape.
	NewProfile() *Profile

	// ConvertAndAdd converts the claim value and stores it under name,
	// replacing any existing value.  Callers that only want to fill gaps
	// check HasAttribute first.
	ConvertAndAdd(p *Profile, name string, value ClaimValue)
}

// DefaultProfileDefinition returns the standard OIDC profile definition.
func DefaultProfileDefinition() ProfileDefinition {
	return oidcProfileDefinition{}
}

type oidcProfileDefinition struct{}

func (oidcProfileDefinition) NewProfile() *Profile {
	return &Profile{attributes: map[string]ClaimValue{}}
}

func (oidcProfileDefinition) ConvertAndAdd(p *Profile, name string, value ClaimValue) {
	if name == "" || value.IsNull() {
		return
	}
	p.attributes[name] = value
}

// identifierSanitizer normalizes an identifier and strips Unicode
// control/format runes.
var identifierSanitizer = transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.C)))

func sanitizeIdentifier(id string) string {
	sanitized, _, err := transform.String(identifierSanitizer, id)
	if err != nil {
		sanitized = id
	}
	return strings.TrimSpace(sanitized)
}
