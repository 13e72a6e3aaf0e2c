package collab

import (
	"errors"
	"fmt"
	"strings"

	"richdocServer/backend/internal/format"
	"richdocServer/backend/internal/ot/delta"
)

// DeltaDocument 是 Buffer 的 Delta 实现：权威内容就是一个全 insert 的
// Delta，恒以换行符结尾。补丁通过 Compose 并入，文档本身从不被原地修改。
type DeltaDocument struct {
	d delta.Delta
}

var (
	ErrNotDocumentShaped = errors.New("document delta must contain only inserts")
	ErrMissingNewline    = errors.New("document must end with a newline")
)

// NewDeltaDocument 用初始文本构造文档；没有尾换行时补上。
func NewDeltaDocument(initial string) *DeltaDocument {
	if !strings.HasSuffix(initial, "\n") {
		initial += "\n"
	}
	d := delta.New().Insert(initial, nil)
	return &DeltaDocument{d: *d}
}

// NewDeltaDocumentFrom 从已有快照 Delta 恢复文档（快照必须是合法文档形态）。
func NewDeltaDocumentFrom(snapshot delta.Delta) (*DeltaDocument, error) {
	if err := checkDocumentShape(snapshot); err != nil {
		return nil, err
	}
	doc := &DeltaDocument{d: make(delta.Delta, len(snapshot))}
	copy(doc.d, snapshot)
	return doc, nil
}

func checkDocumentShape(d delta.Delta) error {
	for _, op := range d {
		if !op.IsInsert() {
			return ErrNotDocumentShaped
		}
	}
	if len(d) == 0 {
		return ErrMissingNewline
	}
	last := d[len(d)-1]
	if last.Embed != nil || !strings.HasSuffix(last.Text, "\n") {
		return ErrMissingNewline
	}
	return nil
}

func (doc *DeltaDocument) Len() int {
	return doc.d.Length()
}

// Delta 返回权威内容（调用方按只读使用）。
func (doc *DeltaDocument) Delta() delta.Delta {
	return doc.d
}

// Apply 把一个补丁（retain/insert/delete 序列）并入文档。
// 合并结果必须仍是合法文档形态，否则拒绝并保持原状。
func (doc *DeltaDocument) Apply(patch delta.Delta) error {
	next := delta.Compose(doc.d, patch)
	if err := checkDocumentShape(next); err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}
	doc.d = next
	return nil
}

// Format 对 [index, index+length) 执行一次格式请求：先由规则引擎算出
// 最小补丁，再并入文档，返回补丁供广播/落盘。
func (doc *DeltaDocument) Format(index, length int, attr format.Attribute, data any) (delta.Delta, error) {
	if index < 0 || length < 0 || index+length > doc.Len() {
		return nil, fmt.Errorf("format range [%d, %d) out of bounds (doc len %d)", index, index+length, doc.Len())
	}
	patch := format.Format(doc.d, index, length, attr, data)
	if err := doc.Apply(patch); err != nil {
		return nil, err
	}
	return patch, nil
}

// String 拼出纯文本视图；内嵌对象用对象替换符 U+FFFC 占一个字符位。
func (doc *DeltaDocument) String() string {
	var sb strings.Builder
	for _, op := range doc.d {
		if op.Embed != nil {
			sb.WriteRune('\uFFFC')
			continue
		}
		sb.WriteString(op.Text)
	}
	return sb.String()
}
