package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
)

// ==================== ProductConfigRepository 商品配置仓库 ====================

// ProductConfigRepository 商品配置仓库接口
type ProductConfigRepository interface {
	Create(ctx context.Context, cfg *model.ProductConfiguration) error
	// GetBySKU 软查找，未配置返回 (nil, nil)
	GetBySKU(ctx context.Context, sku string) (*model.ProductConfiguration, error)
	List(ctx context.Context, page, pageSize int) ([]model.ProductConfiguration, int64, error)
	Update(ctx context.Context, cfg *model.ProductConfiguration) error
}

type productConfigRepository struct {
	db *gorm.DB
}

// NewProductConfigRepository 创建商品配置仓库
func NewProductConfigRepository(db *gorm.DB) ProductConfigRepository {
	return &productConfigRepository{db: db}
}

func (r *productConfigRepository) Create(ctx context.Context, cfg *model.ProductConfiguration) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *productConfigRepository) GetBySKU(ctx context.Context, sku string) (*model.ProductConfiguration, error) {
	var cfg model.ProductConfiguration
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *productConfigRepository) List(ctx context.Context, page, pageSize int) ([]model.ProductConfiguration, int64, error) {
	var configs []model.ProductConfiguration
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ProductConfiguration{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	err := db.Order("sku ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&configs).Error
	return configs, total, err
}

func (r *productConfigRepository) Update(ctx context.Context, cfg *model.ProductConfiguration) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}
