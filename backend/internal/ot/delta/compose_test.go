package delta

import (
	"reflect"
	"testing"
)

func TestComposeAttributes(t *testing.T) {
	a := map[string]any{"bold": true, "italic": true}
	b := map[string]any{"bold": nil, "link": "http://x"}

	// 目标是 insert：nil 表示删掉属性
	got := ComposeAttributes(a, b, false)
	want := map[string]any{"italic": true, "link": "http://x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ComposeAttributes(keepNil=false) = %v, want %v", got, want)
	}

	// 目标是 retain：nil 要继续往下游传
	got = ComposeAttributes(a, b, true)
	want = map[string]any{"bold": nil, "italic": true, "link": "http://x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ComposeAttributes(keepNil=true) = %v, want %v", got, want)
	}

	if got := ComposeAttributes(nil, nil, false); got != nil {
		t.Fatalf("ComposeAttributes(nil, nil) = %v, want nil", got)
	}
}

func TestCompose_InsertThenFormat(t *testing.T) {
	doc := *New().Insert("Hello\n", nil)
	patch := *New().Retain(5, map[string]any{"bold": true})

	got := Compose(doc, patch)
	want := *New().
		Insert("Hello", map[string]any{"bold": true}).
		Insert("\n", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_PatchShorterThanBase(t *testing.T) {
	// 补丁比文档短：尾部隐含 retain，文档剩余部分原样保留
	doc := *New().Insert("abcdef\n", nil)
	patch := *New().Retain(2, nil).Insert("X", nil)

	got := Compose(doc, patch)
	want := *New().Insert("abXcdef\n", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_DeleteCancelsInsert(t *testing.T) {
	doc := *New().Insert("abc\n", nil)
	patch := *New().Retain(1, nil).Delete(1)

	got := Compose(doc, patch)
	want := *New().Insert("ac\n", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_InsertBeforeBase(t *testing.T) {
	// 补丁的 insert 优先：新内容插在当前位置之前
	doc := *New().Insert("world\n", nil)
	patch := *New().Insert("hello ", nil)

	got := Compose(doc, patch)
	want := *New().Insert("hello world\n", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_RetainOverRetainMergesAttrs(t *testing.T) {
	a := *New().Retain(4, map[string]any{"bold": true})
	b := *New().Retain(4, map[string]any{"bold": nil, "italic": true})

	got := Compose(a, b)
	want := *New().Retain(4, map[string]any{"bold": nil, "italic": true})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_ChopsTrailingRetain(t *testing.T) {
	a := *New().Insert("ab", nil)
	b := *New().Retain(2, nil).Retain(5, nil)

	got := Compose(a, b)
	want := *New().Insert("ab", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}

func TestCompose_EmbedSurvivesRetain(t *testing.T) {
	doc := *New().InsertEmbed(map[string]any{"image": "x.png"}, nil).Insert("\n", nil)
	patch := *New().Retain(1, map[string]any{"width": "80"})

	got := Compose(doc, patch)
	if len(got) != 2 || got[0].Embed == nil {
		t.Fatalf("Compose = %+v, want embed op first", got)
	}
	if v := got[0].Attrs["width"]; v != "80" {
		t.Fatalf("embed attrs = %v, want width=80", got[0].Attrs)
	}
}
