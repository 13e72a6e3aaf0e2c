package format

// Scope 标记属性作用域：行级（锚定在行尾换行符上）、字符级、内嵌对象级。
type Scope int

const (
	ScopeInline Scope = iota
	ScopeBlock
	ScopeEmbed
)

func (s Scope) String() string {
	switch s {
	case ScopeInline:
		return "inline"
	case ScopeBlock:
		return "block"
	case ScopeEmbed:
		return "embed"
	}
	return "unknown"
}

// 已知属性键
const (
	// inline（字符级）
	KeyBold       = "bold"
	KeyItalic     = "italic"
	KeyUnderline  = "underline"
	KeyStrike     = "strike"
	KeyCode       = "code"
	KeyLink       = "link"
	KeyColor      = "color"
	KeyBackground = "background"
	KeyFont       = "font"
	KeySize       = "size"
	KeyScript     = "script"

	// block（行级）
	KeyHeader     = "header"
	KeyList       = "list"
	KeyBlockquote = "blockquote"
	KeyCodeBlock  = "code-block"
	KeyAlign      = "align"
	KeyIndent     = "indent"
	KeyDirection  = "direction"

	// embed（内嵌对象级）
	KeyStyle = "style"
)

// Attribute 是一次格式请求的载荷。Value 为 nil 表示移除该属性。
type Attribute struct {
	Key   string
	Value any
}

// ToMap 转成可直接挂到 retain 上的属性表。
func (a Attribute) ToMap() map[string]any {
	return map[string]any{a.Key: a.Value}
}

// Scope 查目录返回该键的作用域；未知键按 inline 处理（走兜底规则）。
func (a Attribute) Scope() Scope {
	if s, ok := attributeScopes[a.Key]; ok {
		return s
	}
	return ScopeInline
}

// 属性目录：纯静态查表，只读。
var attributeScopes = map[string]Scope{
	KeyBold:       ScopeInline,
	KeyItalic:     ScopeInline,
	KeyUnderline:  ScopeInline,
	KeyStrike:     ScopeInline,
	KeyCode:       ScopeInline,
	KeyLink:       ScopeInline,
	KeyColor:      ScopeInline,
	KeyBackground: ScopeInline,
	KeyFont:       ScopeInline,
	KeySize:       ScopeInline,
	KeyScript:     ScopeInline,

	KeyHeader:     ScopeBlock,
	KeyList:       ScopeBlock,
	KeyBlockquote: ScopeBlock,
	KeyCodeBlock:  ScopeBlock,
	KeyAlign:      ScopeBlock,
	KeyIndent:     ScopeBlock,
	KeyDirection:  ScopeBlock,

	KeyStyle: ScopeEmbed,
}

// 行级结构属性互斥组：一行同时只能有其中一个生效。
// 设置组内某个键时必须把同组其它键清掉（value 置 nil）。
// 新增互斥组只改这张表，不动规则逻辑。
var exclusiveBlockKeys = map[string]struct{}{
	KeyHeader:     {},
	KeyList:       {},
	KeyBlockquote: {},
	KeyCodeBlock:  {},
}

// ExclusiveGroup 返回 key 所在互斥组的全部成员；不在任何组时返回 nil。
func ExclusiveGroup(key string) []string {
	if _, ok := exclusiveBlockKeys[key]; !ok {
		return nil
	}
	group := make([]string, 0, len(exclusiveBlockKeys))
	for k := range exclusiveBlockKeys {
		group = append(group, k)
	}
	return group
}

// sameExclusiveGroup 判断两个键是否同属一个互斥组。
func sameExclusiveGroup(a, b string) bool {
	_, okA := exclusiveBlockKeys[a]
	_, okB := exclusiveBlockKeys[b]
	return okA && okB
}
