package mysqldb

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"richdocServer/backend/internal/entity"
)

// DocStatsRepo 文档统计的读写接口。
// 计数路径都是 upsert：首次访问自动建行，之后原子自增。
type DocStatsRepo interface {
	GetDocStats(ctx context.Context, docID string) (*entity.DocStats, error)
	AddView(ctx context.Context, docID string) error
	AddEdit(ctx context.Context, docID string) error
	AddFormat(ctx context.Context, docID string) error
	AddLike(ctx context.Context, docID string) error
}

type mysqlDocStatsRepo struct {
	db *gorm.DB
}

func NewMySQLDocStatsRepo(db *gorm.DB) DocStatsRepo {
	return &mysqlDocStatsRepo{db: db}
}

func (r *mysqlDocStatsRepo) GetDocStats(ctx context.Context, docID string) (*entity.DocStats, error) {
	var stats entity.DocStats
	err := r.db.WithContext(ctx).Where("doc_id = ?", docID).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 没有任何计数也算正常，返回 nil, nil
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// incr 对指定列做 INSERT ... ON DUPLICATE KEY UPDATE col = col + 1。
func (r *mysqlDocStatsRepo) incr(ctx context.Context, docID string, column string) error {
	seed := entity.DocStats{DocID: docID}
	switch column {
	case "view_count":
		seed.ViewCount = 1
	case "edit_count":
		seed.EditCount = 1
	case "format_count":
		seed.FormatCount = 1
	case "like_count":
		seed.LikeCount = 1
	default:
		return errors.New("unknown stats column: " + column)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doc_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column: gorm.Expr(column+" + ?", 1),
		}),
	}).Create(&seed).Error
}

func (r *mysqlDocStatsRepo) AddView(ctx context.Context, docID string) error {
	return r.incr(ctx, docID, "view_count")
}

func (r *mysqlDocStatsRepo) AddEdit(ctx context.Context, docID string) error {
	return r.incr(ctx, docID, "edit_count")
}

func (r *mysqlDocStatsRepo) AddFormat(ctx context.Context, docID string) error {
	return r.incr(ctx, docID, "format_count")
}

func (r *mysqlDocStatsRepo) AddLike(ctx context.Context, docID string) error {
	return r.incr(ctx, docID, "like_count")
}
