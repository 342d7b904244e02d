package tokentree

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-tokentree/internal/clone"
)

// Kind discriminates the Meta variants.
type Kind string

const (
	KindGroup Kind = "token-group"
	KindToken Kind = "token"
)

// Meta is the node payload understood by the resolution engine. GroupMeta and
// TokenMeta are the only implementations.
type Meta interface {
	MetaName() string
	Kind() Kind
	isMeta()
}

// GroupMeta is a naming container for child groups and tokens.
type GroupMeta struct {
	Name        string         `json:"name"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Deprecated  Deprecation    `json:"deprecated,omitzero"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

func (g GroupMeta) MetaName() string { return g.Name }
func (g GroupMeta) Kind() Kind       { return KindGroup }
func (GroupMeta) isMeta()            {}

// TokenMeta is a leaf carrying either a direct Value or an Extends alias such
// as "{colors.primary}". A nil Value is treated as absent.
type TokenMeta struct {
	Name        string         `json:"name"`
	Type        string         `json:"type,omitempty"`
	Value       any            `json:"value,omitempty"`
	Extends     string         `json:"extends,omitempty"`
	Description string         `json:"description,omitempty"`
	Deprecated  Deprecation    `json:"deprecated,omitzero"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

func (t TokenMeta) MetaName() string { return t.Name }
func (t TokenMeta) Kind() Kind       { return KindToken }
func (TokenMeta) isMeta()            {}

// HasValue reports whether the token carries a direct value.
func (t TokenMeta) HasValue() bool {
	return t.Value != nil
}

// IsAlias reports whether the token points at another token.
func (t TokenMeta) IsAlias() bool {
	return t.Extends != ""
}

func (t TokenMeta) clone() TokenMeta {
	out := t
	out.Value = clone.Value(t.Value)
	out.Extensions = clone.Map(t.Extensions)
	return out
}

// Deprecation is encoded as a JSON boolean, or as the reason string when one
// is given.
type Deprecation struct {
	Deprecated bool
	Reason     string
}

// DeprecatedBecause returns a deprecation carrying reason.
func DeprecatedBecause(reason string) Deprecation {
	return Deprecation{Deprecated: true, Reason: reason}
}

// IsDeprecated reports whether the deprecation is set.
func (d Deprecation) IsDeprecated() bool {
	return d.Deprecated || d.Reason != ""
}

// Value returns the bool-or-string form used in token documents, or nil.
func (d Deprecation) Value() any {
	switch {
	case d.Reason != "":
		return d.Reason
	case d.Deprecated:
		return true
	default:
		return nil
	}
}

// ParseDeprecation accepts a bool or string.
func ParseDeprecation(value any) (Deprecation, error) {
	switch typed := value.(type) {
	case nil:
		return Deprecation{}, nil
	case bool:
		return Deprecation{Deprecated: typed}, nil
	case string:
		return DeprecatedBecause(typed), nil
	default:
		return Deprecation{}, fmt.Errorf("tokentree: deprecated must be bool or string, got %T", value)
	}
}

func (d Deprecation) MarshalJSON() ([]byte, error) {
	if d.Reason != "" {
		return json.Marshal(d.Reason)
	}
	return json.Marshal(d.Deprecated)
}

func (d *Deprecation) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDeprecation(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AsToken returns the token payload of meta, if it is one.
func AsToken(meta Meta) (TokenMeta, bool) {
	switch typed := meta.(type) {
	case TokenMeta:
		return typed, true
	case *TokenMeta:
		if typed == nil {
			return TokenMeta{}, false
		}
		return *typed, true
	default:
		return TokenMeta{}, false
	}
}

// AsGroup returns the group payload of meta, if it is one.
func AsGroup(meta Meta) (GroupMeta, bool) {
	switch typed := meta.(type) {
	case GroupMeta:
		return typed, true
	case *GroupMeta:
		if typed == nil {
			return GroupMeta{}, false
		}
		return *typed, true
	default:
		return GroupMeta{}, false
	}
}
