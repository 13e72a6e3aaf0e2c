package format

import (
	"reflect"
	"slices"
	"testing"
)

func TestAttribute_Scope(t *testing.T) {
	cases := []struct {
		key  string
		want Scope
	}{
		{KeyBold, ScopeInline},
		{KeyLink, ScopeInline},
		{KeyHeader, ScopeBlock},
		{KeyList, ScopeBlock},
		{KeyCodeBlock, ScopeBlock},
		{KeyStyle, ScopeEmbed},
		// 未知键按 inline 处理
		{"no-such-key", ScopeInline},
	}
	for _, c := range cases {
		a := Attribute{Key: c.key}
		if got := a.Scope(); got != c.want {
			t.Fatalf("Scope(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}

func TestScope_String(t *testing.T) {
	if got := ScopeBlock.String(); got != "block" {
		t.Fatalf("ScopeBlock.String() = %q, want %q", got, "block")
	}
	if got := Scope(99).String(); got != "unknown" {
		t.Fatalf("Scope(99).String() = %q, want %q", got, "unknown")
	}
}

func TestAttribute_ToMap(t *testing.T) {
	a := Attribute{Key: KeyHeader, Value: 2}
	want := map[string]any{"header": 2}
	if got := a.ToMap(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ToMap() = %v, want %v", got, want)
	}

	// nil 值（移除属性）也要原样带上
	rm := Attribute{Key: KeyBold}
	if got := rm.ToMap(); got["bold"] != nil {
		t.Fatalf("ToMap() = %v, want bold -> nil", got)
	}
}

func TestExclusiveGroup(t *testing.T) {
	group := ExclusiveGroup(KeyHeader)
	if len(group) != 4 {
		t.Fatalf("len(group) = %d, want 4", len(group))
	}
	for _, k := range []string{KeyHeader, KeyList, KeyBlockquote, KeyCodeBlock} {
		if !slices.Contains(group, k) {
			t.Fatalf("group %v missing %q", group, k)
		}
	}

	// 互斥组外的键没有组
	if got := ExclusiveGroup(KeyBold); got != nil {
		t.Fatalf("ExclusiveGroup(bold) = %v, want nil", got)
	}
	if got := ExclusiveGroup(KeyAlign); got != nil {
		t.Fatalf("ExclusiveGroup(align) = %v, want nil", got)
	}
}
