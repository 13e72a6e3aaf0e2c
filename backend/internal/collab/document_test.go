package collab

import (
	"errors"
	"testing"

	"richdocServer/backend/internal/format"
	"richdocServer/backend/internal/ot/delta"
)

func TestDeltaDocument_NewAppendsNewline(t *testing.T) {
	doc := NewDeltaDocument("Hello")
	if got := doc.String(); got != "Hello\n" {
		t.Fatalf("String() = %q, want %q", got, "Hello\n")
	}
	if got := doc.Len(); got != 6 {
		t.Fatalf("Len() = %d, want 6", got)
	}

	// 已带尾换行时不重复追加
	doc2 := NewDeltaDocument("Hello\n")
	if got := doc2.Len(); got != 6 {
		t.Fatalf("Len() = %d, want 6", got)
	}
}

func TestDeltaDocument_FromSnapshotValidatesShape(t *testing.T) {
	// 含非 insert 的快照不是合法文档
	bad := *delta.New().Insert("a\n", nil).Retain(1, nil)
	if _, err := NewDeltaDocumentFrom(bad); !errors.Is(err, ErrNotDocumentShaped) {
		t.Fatalf("err = %v, want ErrNotDocumentShaped", err)
	}

	// 缺尾换行的快照同样拒绝
	noNewline := *delta.New().Insert("abc", nil)
	if _, err := NewDeltaDocumentFrom(noNewline); !errors.Is(err, ErrMissingNewline) {
		t.Fatalf("err = %v, want ErrMissingNewline", err)
	}

	good := *delta.New().Insert("abc\n", nil)
	if _, err := NewDeltaDocumentFrom(good); err != nil {
		t.Fatalf("NewDeltaDocumentFrom() error = %v", err)
	}
}

func TestDeltaDocument_ApplyInsert(t *testing.T) {
	doc := NewDeltaDocument("Hello")
	patch := *delta.New().Retain(5, nil).Insert(" world", nil)
	if err := doc.Apply(patch); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := doc.String(); got != "Hello world\n" {
		t.Fatalf("String() = %q, want %q", got, "Hello world\n")
	}
}

func TestDeltaDocument_ApplyRejectsNewlineRemoval(t *testing.T) {
	doc := NewDeltaDocument("Hello")
	patch := *delta.New().Retain(5, nil).Delete(1)
	if err := doc.Apply(patch); !errors.Is(err, ErrMissingNewline) {
		t.Fatalf("Apply() error = %v, want ErrMissingNewline", err)
	}
	// 拒绝后文档保持原状
	if got := doc.String(); got != "Hello\n" {
		t.Fatalf("String() = %q, want %q", got, "Hello\n")
	}
}

func TestDeltaDocument_Format(t *testing.T) {
	doc := NewDeltaDocument("Hello\nWorld")
	patch, err := doc.Format(0, 5, format.Attribute{Key: format.KeyHeader, Value: 1}, nil)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if got := patch.Length(); got != 6 {
		t.Fatalf("patch.Length() = %d, want 6", got)
	}

	// 第一行的换行符上要出现 header
	var found bool
	for _, op := range doc.Delta() {
		if op.Text == "\n" && op.HasAttribute(format.KeyHeader) {
			found = true
		}
	}
	if !found {
		t.Fatalf("doc = %+v, want newline op with header attr", doc.Delta())
	}
}

func TestDeltaDocument_FormatOutOfBounds(t *testing.T) {
	doc := NewDeltaDocument("Hi")
	if _, err := doc.Format(0, 10, format.Attribute{Key: format.KeyBold, Value: true}, nil); err == nil {
		t.Fatalf("Format() out of bounds did not error")
	}
}

func TestDeltaDocument_StringRendersEmbeds(t *testing.T) {
	snapshot := *delta.New().
		Insert("a", nil).
		InsertEmbed(map[string]any{"image": "x.png"}, nil).
		Insert("b\n", nil)
	doc, err := NewDeltaDocumentFrom(snapshot)
	if err != nil {
		t.Fatalf("NewDeltaDocumentFrom() error = %v", err)
	}
	if got := doc.String(); got != "a\uFFFCb\n" {
		t.Fatalf("String() = %q, want %q", got, "a\uFFFCb\n")
	}
	if got := doc.Len(); got != 4 {
		t.Fatalf("Len() = %d, want 4", got)
	}
}
