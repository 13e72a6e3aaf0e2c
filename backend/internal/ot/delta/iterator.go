package delta

import "math"

// Iterator 是 Delta 上的一次性游标：记录操作下标和操作内偏移，
// 支持按长度单位向前消费，落在操作中间时自动拆分。
// 每次遍历新建一个，用完即弃，不要跨调用持有。
type Iterator struct {
	d      Delta
	index  int // 当前操作下标
	offset int // 当前操作内已消费的长度（部分消费用）
}

func NewIterator(d Delta) *Iterator {
	return &Iterator{d: d}
}

// HasNext 报告是否还有未消费的长度。
func (it *Iterator) HasNext() bool {
	return it.index < len(it.d)
}

// PeekLength 返回当前操作剩余可消费的长度；已耗尽时返回 MaxInt
// （这样 min(a.PeekLength(), b.PeekLength()) 总能取到有限的一侧）。
func (it *Iterator) PeekLength() int {
	if !it.HasNext() {
		return math.MaxInt
	}
	return it.d[it.index].Length() - it.offset
}

// PeekKind 返回当前操作的类型；已耗尽时按 retain 处理。
func (it *Iterator) PeekKind() Kind {
	if !it.HasNext() {
		return KindRetain
	}
	return it.d[it.index].Kind
}

// Next 消费当前操作最多 n 个长度单位并返回这一段（前缀）。
// 操作比 n 长时拆分：返回前缀，剩余部分留给后续 Next/Skip。
// 迭代器耗尽后继续调用属于调用方错误，直接 panic，
// 不能静默吞掉，带错的游标继续走会把文档改坏。
func (it *Iterator) Next(n int) Op {
	if !it.HasNext() {
		panic("delta: iterator exhausted")
	}
	if n <= 0 {
		panic("delta: Next requires a positive length")
	}
	op := it.d[it.index]
	remaining := op.Length() - it.offset
	take := n
	if take > remaining {
		take = remaining
	}

	var out Op
	switch op.Kind {
	case KindDelete:
		out = Op{Kind: KindDelete, N: take}
	case KindRetain:
		out = Op{Kind: KindRetain, N: take, Attrs: op.Attrs}
	case KindInsert:
		if op.Embed != nil {
			// 内嵌对象长度恒为 1，不可拆分
			out = Op{Kind: KindInsert, Embed: op.Embed, Attrs: op.Attrs}
		} else {
			r := []rune(op.Text)
			out = Op{Kind: KindInsert, Text: string(r[it.offset : it.offset+take]), Attrs: op.Attrs}
		}
	}

	it.offset += take
	if it.offset >= op.Length() {
		it.index++
		it.offset = 0
	}
	return out
}

// NextOp 消费并返回当前操作的全部剩余部分。
func (it *Iterator) NextOp() Op {
	return it.Next(it.PeekLength())
}

// Skip 向前跳过恰好 n 个长度单位，返回最后消费的那段操作（可能是拆分
// 出来的部分）；n == 0 时没有触及任何操作，返回 nil。
func (it *Iterator) Skip(n int) *Op {
	var last *Op
	skipped := 0
	for skipped < n && it.HasNext() {
		take := n - skipped
		if r := it.PeekLength(); take > r {
			take = r
		}
		op := it.Next(take)
		last = &op
		skipped += op.Length()
	}
	return last
}
