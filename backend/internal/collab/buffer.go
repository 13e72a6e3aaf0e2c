package collab

import (
	"richdocServer/backend/internal/ot/delta"
)

// 抽象文档内容缓冲区接口
type Buffer interface {
	Len() int
	Apply(d delta.Delta) error
	Delta() delta.Delta
	String() string
}
