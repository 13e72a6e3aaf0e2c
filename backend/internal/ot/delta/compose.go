package delta

// ComposeAttributes 合并两个属性表：b 覆盖 a。
// keepNil 为 false 时丢掉 nil 值（目标是 insert，nil 就是“删掉该属性”）；
// 为 true 时保留 nil（目标是 retain，“删除”还要继续往下游传）。
func ComposeAttributes(a, b map[string]any, keepNil bool) map[string]any {
	merged := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	if !keepNil {
		for k, v := range merged {
			if v == nil {
				delete(merged, k)
			}
		}
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// 迭代器耗尽后继续取长度 n，等价于“保留剩余全部”
func nextLen(it *Iterator, n int) Op {
	if !it.HasNext() {
		return Op{Kind: KindRetain, N: n}
	}
	return it.Next(n)
}

// Compose 把补丁 b 合并进基础序列 a，满足：
//
//	apply(apply(doc, a), b) == apply(doc, compose(a, b))
//
// b 允许比 a 短（尾部隐含 retain）。这是调用方把格式补丁并入
// 权威文档 Delta 的唯一入口。
func Compose(a, b Delta) Delta {
	itA := NewIterator(a)
	itB := NewIterator(b)
	result := New()
	for itA.HasNext() || itB.HasNext() {
		if itB.PeekKind() == KindInsert {
			// b 的 insert 优先：新内容插在当前位置
			result.push(itB.NextOp())
			continue
		}
		if itA.PeekKind() == KindDelete {
			// a 的 delete 优先：b 的坐标看不到这些内容
			result.push(itA.NextOp())
			continue
		}
		n := itA.PeekLength()
		if m := itB.PeekLength(); m < n {
			n = m
		}
		opA := nextLen(itA, n)
		opB := nextLen(itB, n)
		switch {
		case opB.Kind == KindRetain:
			out := opA
			// 目标是 insert 时 nil 值直接清掉属性
			out.Attrs = ComposeAttributes(opA.Attrs, opB.Attrs, opA.Kind == KindRetain)
			result.push(out)
		case opB.Kind == KindDelete && opA.Kind == KindRetain:
			result.push(opB)
		default:
			// delete 作用在 insert 上：两者抵消，什么都不输出
		}
	}
	return *result.Chop()
}
