package store

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"richdocServer/backend/internal/entity"
)

// InitGorm 打开 gorm 连接并迁移统计表。
// 文档/用户/快照表走原生 database/sql，统计表走 gorm。
func InitGorm(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entity.DocStats{}); err != nil {
		return nil, err
	}
	return db, nil
}
