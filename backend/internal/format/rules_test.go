package format

import (
	"reflect"
	"testing"

	"richdocServer/backend/internal/ot/delta"
)

func TestFormat_BlockHeading(t *testing.T) {
	// 行级属性锚定在行尾换行符上：选区只盖住 "Hello"，
	// 补丁仍要带上这一行自己的终止符
	doc := *delta.New().Insert("Hello\nWorld\n", nil)
	got := Format(doc, 0, 5, Attribute{Key: KeyHeader, Value: 1}, nil)

	want := *delta.New().
		Retain(5, nil).
		Retain(1, map[string]any{"header": 1})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_BlockSpanningTwoLines(t *testing.T) {
	doc := *delta.New().Insert("Hello\nWorld\n", nil)
	got := Format(doc, 0, 8, Attribute{Key: KeyHeader, Value: 1}, nil)

	// 选区盖住第一行和第二行开头：两行的换行符都要挂属性
	want := *delta.New().
		Retain(5, nil).
		Retain(1, map[string]any{"header": 1}).
		Retain(5, nil).
		Retain(1, map[string]any{"header": 1})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_BlockExclusivityClearsGroup(t *testing.T) {
	// 换行符上已有 list：设置 header 时必须同时清掉 list
	doc := *delta.New().
		Insert("abc", nil).
		Insert("\n", map[string]any{"list": "ordered"})
	got := Format(doc, 0, 3, Attribute{Key: KeyHeader, Value: 2}, nil)

	want := *delta.New().
		Retain(3, nil).
		Retain(1, map[string]any{"header": 2, "list": nil})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_BlockDoesNotClearNonGroupKeys(t *testing.T) {
	// align 不在互斥组里，设置 align 不该清掉已有的 header
	doc := *delta.New().
		Insert("abc", nil).
		Insert("\n", map[string]any{"header": 1})
	got := Format(doc, 0, 3, Attribute{Key: KeyAlign, Value: "center"}, nil)

	want := *delta.New().
		Retain(3, nil).
		Retain(1, map[string]any{"align": "center"})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_InlineBoldSkipsNewline(t *testing.T) {
	// 选区盖住 "Hello\n"：换行符不携带 inline 属性，原样保留
	doc := *delta.New().Insert("Hello\nWorld\n", nil)
	got := Format(doc, 0, 6, Attribute{Key: KeyBold, Value: true}, nil)

	want := *delta.New().
		Retain(5, map[string]any{"bold": true}).
		Retain(1, nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_InlineAppliesToEmbeds(t *testing.T) {
	// 区间内的内嵌对象同样接受 inline 属性（比如给图片挂链接）
	doc := *delta.New().
		Insert("a", nil).
		InsertEmbed(map[string]any{"image": "cat.png"}, nil).
		Insert("\n", nil)
	got := Format(doc, 1, 1, Attribute{Key: KeyLink, Value: "http://x"}, nil)

	want := *delta.New().
		Retain(1, nil).
		Retain(1, map[string]any{"link": "http://x"})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_LinkAtCaretExtends(t *testing.T) {
	doc := *delta.New().
		Insert("ab", nil).
		Insert("link", map[string]any{"link": "http://x"}).
		Insert("cd\n", nil)

	// 光标落在链接段中间：起点向前扩到段首，长度盖过整段
	got := Format(doc, 4, 0, Attribute{Key: KeyLink, Value: "http://x"}, nil)
	want := *delta.New().
		Retain(2, nil).
		Retain(4, map[string]any{"link": "http://x"})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_LinkAtCaretDeclinesInPlainText(t *testing.T) {
	// 两侧都没有链接：请求退化成纯 retain 补丁，并入后文档不变
	doc := *delta.New().Insert("abc\n", nil)
	patch := Format(doc, 1, 0, Attribute{Key: KeyLink, Value: "http://x"}, nil)

	got := delta.Compose(doc, patch)
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("Compose(doc, patch) = %+v, want unchanged %+v", got, doc)
	}
}

func TestFormat_EmbedStyle(t *testing.T) {
	doc := *delta.New().
		Insert("a", nil).
		InsertEmbed(map[string]any{"image": "cat.png"}, nil).
		Insert("\n", nil)
	got := Format(doc, 1, 1, Attribute{Key: KeyStyle, Value: "width: 100px"}, nil)

	want := *delta.New().
		Retain(1, nil).
		Retain(1, map[string]any{"style": "width: 100px"})
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Format = %+v, want %+v", got, want)
	}
}

func TestFormat_EmbedStylePanicsOnBadRange(t *testing.T) {
	doc := *delta.New().Insert("ab\n", nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("embed style with length != 1 did not panic")
		}
	}()
	Format(doc, 0, 2, Attribute{Key: KeyStyle, Value: "x"}, nil)
}

func TestFormat_EmbedStylePanicsOnTextPayload(t *testing.T) {
	doc := *delta.New().Insert("ab\n", nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("embed style with text payload did not panic")
		}
	}()
	Format(doc, 0, 1, Attribute{Key: KeyStyle, Value: "x"}, "payload")
}

func TestFormat_NegativeRangePanics(t *testing.T) {
	doc := *delta.New().Insert("ab\n", nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("negative range did not panic")
		}
	}()
	Format(doc, -1, 2, Attribute{Key: KeyBold, Value: true}, nil)
}

func TestFormat_BlockIsIdempotent(t *testing.T) {
	doc := *delta.New().Insert("Hello\nWorld\n", nil)
	attr := Attribute{Key: KeyHeader, Value: 1}

	once := delta.Compose(doc, Format(doc, 0, 5, attr, nil))
	twice := delta.Compose(once, Format(once, 0, 5, attr, nil))
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("再次应用同一格式后文档发生变化: %+v vs %+v", once, twice)
	}
}

func TestFormat_RemoveAttribute(t *testing.T) {
	// value 为 nil 表示移除：并入后 bold 从文档上消失
	doc := *delta.New().
		Insert("Hi", map[string]any{"bold": true}).
		Insert("\n", nil)
	patch := Format(doc, 0, 2, Attribute{Key: KeyBold, Value: nil}, nil)

	got := delta.Compose(doc, patch)
	want := *delta.New().Insert("Hi\n", nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Compose = %+v, want %+v", got, want)
	}
}
