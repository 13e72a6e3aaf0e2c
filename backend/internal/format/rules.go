package format

import (
	"fmt"

	"richdocServer/backend/internal/ot/delta"
)

// Rule 是一条格式化策略：接受请求时返回补丁，不归自己管时返回 nil
// 让引擎试下一条。规则只通过迭代器读文档，产出新 Delta，不改任何东西。
type Rule func(doc delta.Delta, index, length int, attr Attribute, data any) *delta.Delta

// 规则按固定优先级求值，第一个接受的胜出：
// 行级 -> 光标处链接 -> 字符级 -> 内嵌样式 -> 兜底
var rules = []Rule{
	resolveLineFormat,
	formatLinkAtCaret,
	resolveInlineFormat,
	formatEmbedStyle,
}

// Format 把一次高层格式请求 (index, length, attr) 解析成最小合法补丁。
// 调用方保证 index >= 0、length >= 0 且 index+length 不超过文档长度；
// 返回的补丁经 delta.Compose 并入权威文档。
func Format(doc delta.Delta, index, length int, attr Attribute, data any) delta.Delta {
	if index < 0 || length < 0 {
		panic(fmt.Sprintf("format: negative range (index=%d, length=%d)", index, length))
	}
	for _, rule := range rules {
		if patch := rule(doc, index, length, attr, data); patch != nil {
			return *patch
		}
	}
	// 兜底：没有任何专门规则接手时，直接把属性保留到整个区间上
	fallback := delta.New().Retain(index, nil).Retain(length, attr.ToMap())
	return *fallback
}

// lineAttrs 构造挂在换行符上的属性表：请求的属性本身，外加对该换行符
// 上已存在的同组互斥键的清除项（key -> nil）。
func lineAttrs(opAttrs map[string]any, attr Attribute) map[string]any {
	merged := attr.ToMap()
	if ExclusiveGroup(attr.Key) == nil {
		return merged
	}
	for k, v := range opAttrs {
		if k != attr.Key && v != nil && sameExclusiveGroup(k, attr.Key) {
			merged[k] = nil
		}
	}
	return merged
}

// resolveLineFormat 处理行级属性：属性锚定在每行的换行符上。
// 扫完请求区间后还要继续找区间外的第一个换行符：调用方的 length 常常
// 只盖住行内文本，行自己的终止符也得带上（只命中一次就停）。
func resolveLineFormat(doc delta.Delta, index, length int, attr Attribute, _ any) *delta.Delta {
	if attr.Scope() != ScopeBlock {
		return nil
	}
	result := delta.New().Retain(index, nil)
	itr := delta.NewIterator(doc)
	itr.Skip(index)

	// 区间内：对每个换行符 retain(1) 挂属性，其余原样保留
	offset := 0
	for itr.HasNext() && offset < length {
		op := itr.Next(length - offset)
		opLen := op.Length()
		if op.Kind != delta.KindInsert || op.Embed != nil {
			result.Retain(opLen, nil)
			offset += opLen
			continue
		}
		text := []rune(op.Text)
		pos := 0
		lineBreak := indexOfNewline(text, 0)
		for lineBreak >= 0 {
			result.Retain(lineBreak-pos, nil)
			result.Retain(1, lineAttrs(op.Attrs, attr))
			pos = lineBreak + 1
			lineBreak = indexOfNewline(text, pos)
		}
		if pos < opLen {
			result.Retain(opLen-pos, nil)
		}
		offset += opLen
	}

	// 区间外：继续扫到第一个换行符为止（首个命中即停）
	for itr.HasNext() {
		op := itr.NextOp()
		opLen := op.Length()
		if op.Kind != delta.KindInsert || op.Embed != nil {
			result.Retain(opLen, nil)
			continue
		}
		text := []rune(op.Text)
		lineBreak := indexOfNewline(text, 0)
		if lineBreak < 0 {
			result.Retain(opLen, nil)
			continue
		}
		result.Retain(lineBreak, nil)
		result.Retain(1, lineAttrs(op.Attrs, attr))
		break
	}
	return result
}

// resolveInlineFormat 处理字符级属性：属性只挂在非换行文本段上，
// 换行符永远不携带 inline 属性，原样 retain。区间内的内嵌对象同样
// 接受属性（比如给图片加链接）。
func resolveInlineFormat(doc delta.Delta, index, length int, attr Attribute, _ any) *delta.Delta {
	if attr.Scope() != ScopeInline {
		return nil
	}
	result := delta.New().Retain(index, nil)
	itr := delta.NewIterator(doc)
	itr.Skip(index)

	current := 0
	for itr.HasNext() && current < length {
		op := itr.Next(length - current)
		opLen := op.Length()
		if op.Kind != delta.KindInsert || op.Embed != nil {
			result.Retain(opLen, attr.ToMap())
			current += opLen
			continue
		}
		text := []rune(op.Text)
		pos := 0
		lineBreak := indexOfNewline(text, 0)
		for lineBreak >= 0 {
			result.Retain(lineBreak-pos, attr.ToMap())
			result.Retain(1, nil)
			pos = lineBreak + 1
			lineBreak = indexOfNewline(text, pos)
		}
		if pos < opLen {
			result.Retain(opLen-pos, attr.ToMap())
		}
		current += opLen
	}
	return result
}

// formatLinkAtCaret 处理折叠光标（length == 0）上的链接请求：
// 光标前一段已带链接就把起点向前扩到这一段的开头，后一段也带链接
// 就把长度再盖过去；两侧都没有链接时拒绝：空区间又无可扩展的
// 相邻链接，这个请求没有意义。
func formatLinkAtCaret(doc delta.Delta, index, length int, attr Attribute, _ any) *delta.Delta {
	if attr.Key != KeyLink || length != 0 {
		return nil
	}
	itr := delta.NewIterator(doc)
	before := itr.Skip(index)
	var after *delta.Op
	if itr.HasNext() {
		op := itr.NextOp()
		after = &op
	}

	beg, retain := index, 0
	if before != nil && before.HasAttribute(KeyLink) {
		beg -= before.Length()
		retain = before.Length()
	}
	if after != nil && after.HasAttribute(KeyLink) {
		retain += after.Length()
	}
	if retain == 0 {
		return nil
	}
	return delta.New().Retain(beg, nil).Retain(retain, attr.ToMap())
}

// formatEmbedStyle 处理内嵌对象的样式。前置条件是硬约束而非软拒绝：
// length 必须恰好为 1 且不得附带文本载荷，违反者是调用方编程错误，
// 必须响亮失败，静默继续会把文档改坏。
func formatEmbedStyle(doc delta.Delta, index, length int, attr Attribute, data any) *delta.Delta {
	if attr.Key != KeyStyle {
		return nil
	}
	if length != 1 {
		panic(fmt.Sprintf("format: embed style requires length == 1, got %d", length))
	}
	if data != nil {
		panic("format: embed style must not carry a text payload")
	}
	return delta.New().Retain(index, nil).Retain(1, attr.ToMap())
}

// indexOfNewline 返回从 from 开始的第一个换行符下标（rune 坐标），没有返回 -1。
func indexOfNewline(text []rune, from int) int {
	for i := from; i < len(text); i++ {
		if text[i] == '\n' {
			return i
		}
	}
	return -1
}
