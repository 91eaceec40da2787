package oidc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Well-known claim names this package treats specially.
const (
	// ClaimSubject is the distinguished subject claim; it becomes the
	// profile identifier and is never merged as a plain attribute.
	ClaimSubject = "sub"

	// ClaimSessionID is the provider's session id claim, recorded with the
	// LogoutHandler when present.
	ClaimSessionID = "sid"

	// ClaimNonce is the per-login replay-prevention value bound into the ID
	// token.
	ClaimNonce = "nonce"
)

// ValueKind enumerates the closed set of shapes a claim value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

// ClaimValue is a claim's value: one of a string, a number, a bool, a list
// of values or an object of named values.  The zero value is the null value.
type ClaimValue struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []ClaimValue
	obj  map[string]ClaimValue
}

func StringValue(s string) ClaimValue  { return ClaimValue{kind: KindString, str: s} }
func NumberValue(n float64) ClaimValue { return ClaimValue{kind: KindNumber, num: n} }
func BoolValue(b bool) ClaimValue      { return ClaimValue{kind: KindBool, b: b} }

func ListValue(vs ...ClaimValue) ClaimValue {
	return ClaimValue{kind: KindList, list: vs}
}

func ObjectValue(m map[string]ClaimValue) ClaimValue {
	return ClaimValue{kind: KindObject, obj: m}
}

// claimValueFrom converts a value decoded from a JSON claims document into a
// ClaimValue.  Unknown shapes degrade to their string representation.
func claimValueFrom(v interface{}) ClaimValue {
	switch t := v.(type) {
	case nil:
		return ClaimValue{}
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case int64:
		return NumberValue(float64(t))
	case []interface{}:
		list := make([]ClaimValue, 0, len(t))
		for _, e := range t {
			list = append(list, claimValueFrom(e))
		}
		return ListValue(list...)
	case map[string]interface{}:
		obj := make(map[string]ClaimValue, len(t))
		for k, e := range t {
			obj[k] = claimValueFrom(e)
		}
		return ObjectValue(obj)
	default:
		return StringValue(fmt.Sprintf("%v", t))
	}
}

// Kind returns the value's shape.
func (v ClaimValue) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is the null value.
func (v ClaimValue) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload, if the value is a string.
func (v ClaimValue) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the numeric payload, if the value is a number.
func (v ClaimValue) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsBool returns the boolean payload, if the value is a bool.
func (v ClaimValue) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsList returns the element values, if the value is a list.
func (v ClaimValue) AsList() ([]ClaimValue, bool) {
	return v.list, v.kind == KindList
}

// AsObject returns the named member values, if the value is an object.
func (v ClaimValue) AsObject() (map[string]ClaimValue, bool) {
	return v.obj, v.kind == KindObject
}

// String renders the value for logs and error messages.
func (v ClaimValue) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		elems := make([]string, 0, len(v.list))
		for _, e := range v.list {
			elems = append(elems, e.String())
		}
		return "[" + strings.Join(elems, ",") + "]"
	case KindObject:
		names := make([]string, 0, len(v.obj))
		for k := range v.obj {
			names = append(names, k)
		}
		sort.Strings(names)
		elems := make([]string, 0, len(names))
		for _, k := range names {
			elems = append(elems, k+"="+v.obj[k].String())
		}
		return "{" + strings.Join(elems, ",") + "}"
	default:
		return "null"
	}
}

// Interface converts the value back to the generic representation used by
// json decoding.
func (v ClaimValue) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		list := make([]interface{}, 0, len(v.list))
		for _, e := range v.list {
			list = append(list, e.Interface())
		}
		return list
	case KindObject:
		obj := make(map[string]interface{}, len(v.obj))
		for k, e := range v.obj {
			obj[k] = e.Interface()
		}
		return obj
	default:
		return nil
	}
}

// ClaimsSet is an insertion-ordered mapping from claim name to claim value.
type ClaimsSet struct {
	names  []string
	values map[string]ClaimValue
}

// NewClaimsSet creates an empty ClaimsSet.
func NewClaimsSet() *ClaimsSet {
	return &ClaimsSet{values: map[string]ClaimValue{}}
}

// NewClaimsSetFromMap converts a decoded JSON claims document.  Claims are
// inserted in sorted name order so the result is deterministic.
func NewClaimsSetFromMap(m map[string]interface{}) *ClaimsSet {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	c := NewClaimsSet()
	for _, k := range names {
		c.Set(k, claimValueFrom(m[k]))
	}
	return c
}

// Set inserts or replaces the named claim, preserving the original insertion
// position on replace.
func (c *ClaimsSet) Set(name string, v ClaimValue) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = v
}

// Get returns the named claim's value.
func (c *ClaimsSet) Get(name string) (ClaimValue, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the claim names in insertion order.
func (c *ClaimsSet) Names() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// Len returns the number of claims in the set.
func (c *ClaimsSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Subject returns the subject claim's string value, or "" when absent.
func (c *ClaimsSet) Subject() string {
	v, ok := c.values[ClaimSubject]
	if !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}
