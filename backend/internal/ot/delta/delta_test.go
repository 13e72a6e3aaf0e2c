package delta

import (
	"encoding/json"
	"testing"
)

func TestDelta_PushMergesAdjacentOps(t *testing.T) {
	d := New().
		Insert("Hel", nil).
		Insert("lo", nil). // 同属性相邻 insert 必须合并
		Delete(2).
		Delete(3).
		Retain(4, nil).
		Retain(1, nil)

	if got := len(*d); got != 3 {
		t.Fatalf("len(ops) = %d, want 3 (ops=%+v)", got, *d)
	}
	if got := (*d)[0].Text; got != "Hello" {
		t.Fatalf("ops[0].Text = %q, want %q", got, "Hello")
	}
	if got := (*d)[1].N; got != 5 {
		t.Fatalf("ops[1].N = %d, want 5", got)
	}
	if got := (*d)[2].N; got != 5 {
		t.Fatalf("ops[2].N = %d, want 5", got)
	}
}

func TestDelta_PushKeepsDifferentAttrsApart(t *testing.T) {
	d := New().
		Insert("a", map[string]any{"bold": true}).
		Insert("b", nil)
	if got := len(*d); got != 2 {
		t.Fatalf("len(ops) = %d, want 2 (不同属性不能合并)", got)
	}

	// 空属性表等价于 nil，应与无属性段合并
	d2 := New().
		Insert("a", nil).
		Insert("b", map[string]any{})
	if got := len(*d2); got != 1 {
		t.Fatalf("len(ops) = %d, want 1 (空属性表应视为 nil)", got)
	}
}

func TestDelta_ZeroLengthOpsAreNoOps(t *testing.T) {
	d := New().
		Insert("", nil).
		Retain(0, map[string]any{"bold": true}).
		Retain(-1, nil).
		Delete(0)
	if got := len(*d); got != 0 {
		t.Fatalf("len(ops) = %d, want 0", got)
	}
}

func TestOp_LengthCountsRunes(t *testing.T) {
	op := Op{Kind: KindInsert, Text: "你好a"}
	if got := op.Length(); got != 3 {
		t.Fatalf("Length() = %d, want 3 (按 rune 计数)", got)
	}

	embed := Op{Kind: KindInsert, Embed: map[string]any{"image": "x.png"}}
	if got := embed.Length(); got != 1 {
		t.Fatalf("embed Length() = %d, want 1", got)
	}
}

func TestDelta_Chop(t *testing.T) {
	d := New().Insert("ab", nil).Retain(3, nil)
	d.Chop()
	if got := len(*d); got != 1 {
		t.Fatalf("len(ops) = %d, want 1 (尾部裸 retain 应被去掉)", got)
	}

	// 带属性的尾 retain 不能去：它承载格式变更
	d2 := New().Insert("ab", nil).Retain(3, map[string]any{"bold": true})
	d2.Chop()
	if got := len(*d2); got != 2 {
		t.Fatalf("len(ops) = %d, want 2", got)
	}
}

func TestDelta_JSONWireFormat(t *testing.T) {
	d := New().
		Retain(2, nil).
		Insert("hi", map[string]any{"bold": true}).
		Delete(3)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `[{"retain":2},{"insert":"hi","attributes":{"bold":true}},{"delete":3}]`
	if string(b) != want {
		t.Fatalf("Marshal = %s, want %s", b, want)
	}

	var back Delta
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if got := back.Length(); got != d.Length() {
		t.Fatalf("round trip Length = %d, want %d", got, d.Length())
	}
}

func TestDelta_JSONEmbedRoundTrip(t *testing.T) {
	d := New().InsertEmbed(map[string]any{"image": "cat.png"}, map[string]any{"width": "100"})
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var back Delta
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(back) != 1 || back[0].Embed == nil {
		t.Fatalf("round trip = %+v, want single embed op", back)
	}
	if got := back[0].Embed["image"]; got != "cat.png" {
		t.Fatalf("embed payload = %v, want %q", got, "cat.png")
	}
}

func TestDelta_JSONRejectsNonPositiveLengths(t *testing.T) {
	cases := []string{
		`[{"retain":0}]`,
		`[{"retain":-2}]`,
		`[{"delete":0}]`,
		`[{}]`,
	}
	for _, in := range cases {
		var d Delta
		if err := json.Unmarshal([]byte(in), &d); err == nil {
			t.Fatalf("Unmarshal(%s) = nil error, want reject", in)
		}
	}
}

func TestOp_HasAttribute(t *testing.T) {
	op := Op{Kind: KindInsert, Text: "x", Attrs: map[string]any{"link": "http://a", "bold": nil}}
	if !op.HasAttribute("link") {
		t.Fatalf("HasAttribute(link) = false, want true")
	}
	// nil 值表示清除，不算“携带”
	if op.HasAttribute("bold") {
		t.Fatalf("HasAttribute(bold) = true, want false")
	}
	if op.HasAttribute("italic") {
		t.Fatalf("HasAttribute(italic) = true, want false")
	}
}
