package entity

import "time"

// DocStats 按文档累计的使用统计。
// EditCount/FormatCount 由协作链路异步累加，ViewCount 在内容读取时累加。
type DocStats struct {
	DocID       string `gorm:"primaryKey;type:varchar(64)"`
	ViewCount   uint64 `gorm:"default:0"`
	EditCount   uint64 `gorm:"default:0"`
	FormatCount uint64 `gorm:"default:0"`
	LikeCount   uint64 `gorm:"default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
