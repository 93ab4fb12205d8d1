package repository

import (
	"context"

	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
)

// ==================== SyncLogRepository 同步日志仓库 ====================

// SyncLogRepository 同步日志仓库接口
// 只追加，不提供更新与删除
type SyncLogRepository interface {
	Create(ctx context.Context, entry *model.SyncLogEntry) error
	ListByStore(ctx context.Context, storeID int64, limit int) ([]model.SyncLogEntry, error)
	CountByStore(ctx context.Context, storeID int64) (int64, error)
}

type syncLogRepository struct {
	db *gorm.DB
}

// NewSyncLogRepository 创建同步日志仓库
func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &syncLogRepository{db: db}
}

func (r *syncLogRepository) Create(ctx context.Context, entry *model.SyncLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *syncLogRepository) ListByStore(ctx context.Context, storeID int64, limit int) ([]model.SyncLogEntry, error) {
	var entries []model.SyncLogEntry
	if limit <= 0 {
		limit = 50
	}
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("started_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *syncLogRepository) CountByStore(ctx context.Context, storeID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SyncLogEntry{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	return count, err
}
