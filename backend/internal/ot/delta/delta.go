package delta

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"
)

type Kind string

const (
	KindRetain Kind = "retain"
	KindInsert Kind = "insert"
	KindDelete Kind = "delete"
)

// Op 是变更日志中的一步：insert / retain / delete，可附带样式属性。
// 不变量：长度恒 > 0；Attrs 里 value 为 nil 表示“清除该属性”（用于互斥组清理）。
type Op struct {
	Kind  Kind           // "retain" / "insert" / "delete"
	N     int            // retain/delete 的长度
	Text  string         // insert 的文本
	Embed map[string]any // insert 的内嵌对象（图片等），长度恒为 1
	Attrs map[string]any // 样式属性（粗体/标题等）
}

// Length 返回该操作覆盖的长度单位数。
// insert 文本按 Unicode 字符（rune）计数，而不是字节；内嵌对象恒为 1。
func (o Op) Length() int {
	if o.Kind == KindInsert {
		if o.Embed != nil {
			return 1
		}
		return utf8.RuneCountInString(o.Text)
	}
	return o.N
}

func (o Op) IsInsert() bool { return o.Kind == KindInsert }
func (o Op) IsRetain() bool { return o.Kind == KindRetain }
func (o Op) IsDelete() bool { return o.Kind == KindDelete }

// HasAttribute 判断该操作是否携带指定键且值非 nil。
func (o Op) HasAttribute(key string) bool {
	if o.Attrs == nil {
		return false
	}
	v, ok := o.Attrs[key]
	return ok && v != nil
}

// opJSON 是线上格式（经典 "ops list"）：
// {"insert": "abc", "attributes": {...}} / {"retain": 5} / {"delete": 3}
// 快照存储、剪贴板、撤销栈都消费这个格式，必须无损往返。
type opJSON struct {
	Insert     json.RawMessage `json:"insert,omitempty"`
	Retain     *int            `json:"retain,omitempty"`
	Delete     *int            `json:"delete,omitempty"`
	Attributes map[string]any  `json:"attributes,omitempty"`
}

func (o Op) MarshalJSON() ([]byte, error) {
	var w opJSON
	switch o.Kind {
	case KindInsert:
		var payload any = o.Text
		if o.Embed != nil {
			payload = o.Embed
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		w.Insert = raw
		w.Attributes = o.Attrs
	case KindRetain:
		n := o.N
		w.Retain = &n
		w.Attributes = o.Attrs
	case KindDelete:
		n := o.N
		w.Delete = &n
	default:
		return nil, fmt.Errorf("delta: unknown op kind %q", o.Kind)
	}
	return json.Marshal(w)
}

func (o *Op) UnmarshalJSON(b []byte) error {
	var w opJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch {
	case w.Insert != nil:
		o.Kind = KindInsert
		// insert 载荷要么是字符串，要么是内嵌对象
		var text string
		if err := json.Unmarshal(w.Insert, &text); err == nil {
			o.Text = text
		} else {
			var embed map[string]any
			if err := json.Unmarshal(w.Insert, &embed); err != nil {
				return fmt.Errorf("delta: invalid insert payload: %w", err)
			}
			o.Embed = embed
		}
		o.Attrs = normalizeAttrs(w.Attributes)
	case w.Retain != nil:
		if *w.Retain <= 0 {
			return fmt.Errorf("delta: retain length must be positive, got %d", *w.Retain)
		}
		o.Kind = KindRetain
		o.N = *w.Retain
		o.Attrs = normalizeAttrs(w.Attributes)
	case w.Delete != nil:
		if *w.Delete <= 0 {
			return fmt.Errorf("delta: delete length must be positive, got %d", *w.Delete)
		}
		o.Kind = KindDelete
		o.N = *w.Delete
	default:
		return fmt.Errorf("delta: op has none of insert/retain/delete")
	}
	return nil
}

// Delta 是规范化后的操作序列：相邻且可合并（同类同属性）的操作必须已合并。
// 构建方法保证 append 时自动合并，引擎产出的 Delta 天然满足该不变量。
type Delta []Op

func New() *Delta {
	d := make(Delta, 0, 4)
	return &d
}

// Length 是所有操作长度之和。
func (d Delta) Length() int {
	n := 0
	for _, op := range d {
		n += op.Length()
	}
	return n
}

// 空属性表与 nil 等价（统一成 nil，便于合并判断）
func normalizeAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func attrsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || reflect.DeepEqual(a, b)
}

// push 追加一个操作并按规范化规则尝试与末尾合并。
// 长度为 0 的操作是无操作，直接丢弃。
func (d *Delta) push(op Op) *Delta {
	if op.Length() == 0 {
		return d
	}
	op.Attrs = normalizeAttrs(op.Attrs)
	if n := len(*d); n > 0 {
		last := &(*d)[n-1]
		switch {
		case op.Kind == KindDelete && last.Kind == KindDelete:
			last.N += op.N
			return d
		case op.Kind == KindRetain && last.Kind == KindRetain && attrsEqual(last.Attrs, op.Attrs):
			last.N += op.N
			return d
		case op.Kind == KindInsert && last.Kind == KindInsert &&
			op.Embed == nil && last.Embed == nil && attrsEqual(last.Attrs, op.Attrs):
			last.Text += op.Text
			return d
		}
	}
	*d = append(*d, op)
	return d
}

// Insert 追加一段文本插入。空文本是无操作。
func (d *Delta) Insert(text string, attrs map[string]any) *Delta {
	if text == "" {
		return d
	}
	return d.push(Op{Kind: KindInsert, Text: text, Attrs: attrs})
}

// InsertEmbed 追加一个内嵌对象插入（长度恒为 1）。
func (d *Delta) InsertEmbed(embed map[string]any, attrs map[string]any) *Delta {
	if len(embed) == 0 {
		return d
	}
	return d.push(Op{Kind: KindInsert, Embed: embed, Attrs: attrs})
}

// Retain 追加保留 n 个单位；attrs 为 nil 表示不改属性。n <= 0 是无操作。
func (d *Delta) Retain(n int, attrs map[string]any) *Delta {
	if n <= 0 {
		return d
	}
	return d.push(Op{Kind: KindRetain, N: n, Attrs: attrs})
}

// Delete 追加删除 n 个单位。n <= 0 是无操作。
func (d *Delta) Delete(n int) *Delta {
	if n <= 0 {
		return d
	}
	return d.push(Op{Kind: KindDelete, N: n})
}

// Concat 把另一个 Delta 的操作依次追加到当前序列，沿用同样的合并规则。
func (d *Delta) Concat(other Delta) *Delta {
	for _, op := range other {
		d.push(op)
	}
	return d
}

// Chop 去掉末尾不带属性的 retain（对后续组合没有意义）。
func (d *Delta) Chop() *Delta {
	if n := len(*d); n > 0 {
		last := (*d)[n-1]
		if last.Kind == KindRetain && last.Attrs == nil {
			*d = (*d)[:n-1]
		}
	}
	return d
}
