package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
)

// ==================== StoreRepository 店铺仓库 ====================

// StoreRepository 店铺仓库接口
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	ListActive(ctx context.Context) ([]model.Store, error)
	Update(ctx context.Context, store *model.Store) error
	// AdvanceWatermark 推进同步水位线，每轮同步结束只调用一次
	AdvanceWatermark(ctx context.Context, id int64, ts time.Time) error
}

type storeRepository struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓库
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *storeRepository) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).First(&store, id).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) ListActive(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StoreStatusActive).
		Order("id ASC").
		Find(&stores).Error
	return stores, err
}

func (r *storeRepository) Update(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *storeRepository) AdvanceWatermark(ctx context.Context, id int64, ts time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Store{}).
		Where("id = ?", id).
		Update("last_sync_at", ts).Error
}
