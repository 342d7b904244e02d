package tokentree

import (
	"encoding/json"
	"testing"
)

func TestDeprecationJSON(t *testing.T) {
	cases := []struct {
		name string
		in   Deprecation
		want string
	}{
		{name: "unset", in: Deprecation{}, want: `false`},
		{name: "flag", in: Deprecation{Deprecated: true}, want: `true`},
		{name: "reason", in: DeprecatedBecause("use brand.primary"), want: `"use brand.primary"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, data)
			}
			var back Deprecation
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.IsDeprecated() != tc.in.IsDeprecated() || back.Reason != tc.in.Reason {
				t.Fatalf("expected %+v, got %+v", tc.in, back)
			}
		})
	}

	var bad Deprecation
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Fatalf("expected number to be rejected")
	}
}

func TestTokenMetaOmitsUnsetDeprecation(t *testing.T) {
	data, err := json.Marshal(TokenMeta{Name: "primary", Value: "#f00"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"name":"primary","value":"#f00"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestMetaAccessors(t *testing.T) {
	var meta Meta = &TokenMeta{Name: "t", Extends: "{a.b}"}
	tok, ok := AsToken(meta)
	if !ok || !tok.IsAlias() || tok.HasValue() {
		t.Fatalf("unexpected token view: %+v ok=%v", tok, ok)
	}
	if _, ok := AsGroup(meta); ok {
		t.Fatalf("token must not read as group")
	}
	if _, ok := AsToken(GroupMeta{Name: "g"}); ok {
		t.Fatalf("group must not read as token")
	}
	if meta.Kind() != KindToken || (GroupMeta{}).Kind() != KindGroup {
		t.Fatalf("unexpected kinds")
	}
	var nilToken *TokenMeta
	if _, ok := AsToken(nilToken); ok {
		t.Fatalf("nil pointer must not read as token")
	}
}

func TestParseDeprecation(t *testing.T) {
	if d, err := ParseDeprecation(true); err != nil || !d.IsDeprecated() || d.Value() != true {
		t.Fatalf("unexpected bool parse: %+v err=%v", d, err)
	}
	if d, err := ParseDeprecation("old"); err != nil || d.Value() != "old" {
		t.Fatalf("unexpected string parse: %+v err=%v", d, err)
	}
	if d, err := ParseDeprecation(nil); err != nil || d.Value() != nil {
		t.Fatalf("unexpected nil parse: %+v err=%v", d, err)
	}
	if _, err := ParseDeprecation(1.5); err == nil {
		t.Fatalf("expected error for float")
	}
}
