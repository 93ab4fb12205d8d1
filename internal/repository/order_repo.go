package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
)

// ==================== 过滤条件 ====================

// OrderFilter 订单过滤条件
type OrderFilter struct {
	StoreID   int64
	Platform  model.Platform
	Status    model.OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
	Keyword   string
	Page      int
	PageSize  int
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByIDWithItems(ctx context.Context, id int64) (*model.Order, error)
	// FindByExternalID 按同步幂等键查找，未找到返回 (nil, nil)
	FindByExternalID(ctx context.Context, platform model.Platform, externalOrderID string) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error

	// 订单项
	UpsertItem(ctx context.Context, item *model.OrderItem) error
	GetItemsByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	UpdateItemFields(ctx context.Context, itemID int64, fields map[string]interface{}) error

	// 同步与任务相关
	ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error)
	ListPendingTrackingPush(ctx context.Context, limit int) ([]model.Order, error)

	// 统计
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
}

// IsDuplicateKey 判断插入是否撞了唯一索引
// 并发同步同一订单时以此作为后到重复信号
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite / postgres 驱动未翻译时的兜底
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// ==================== 实现 ====================

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByIDWithItems(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByExternalID(ctx context.Context, platform model.Platform, externalOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_order_id = ?", platform, externalOrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Order{})

	// 应用过滤条件
	if filter.StoreID > 0 {
		db = db.Where("store_id = ?", filter.StoreID)
	}
	if filter.Platform != "" {
		db = db.Where("platform = ?", filter.Platform)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		db = db.Where("created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("created_at <= ?", filter.EndDate)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("customer_name LIKE ? OR customer_email LIKE ? OR external_order_id LIKE ? OR order_number LIKE ?",
			keyword, keyword, keyword, keyword)
	}

	// 计算总数
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	err := db.
		Preload("Items").
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&orders).Error

	return orders, total, err
}

func (r *orderRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) UpsertItem(ctx context.Context, item *model.OrderItem) error {
	var existing model.OrderItem
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_item_id = ?", item.Platform, item.ExternalItemID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(item).Error
	}
	if err != nil {
		return err
	}

	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	// 设计稿由工作流维护，同步不得覆盖
	item.DesignFileURL = existing.DesignFileURL
	item.DesignUploadedAt = existing.DesignUploadedAt
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *orderRepository) GetItemsByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

func (r *orderRepository) UpdateItemFields(ctx context.Context, itemID int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.OrderItem{}).Where("id = ?", itemID).Updates(fields).Error
}

func (r *orderRepository) ListByStatus(ctx context.Context, status model.OrderStatus, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	type row struct {
		Status model.OrderStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[model.OrderStatus]int64, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}

func (r *orderRepository) ListPendingTrackingPush(ctx context.Context, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("tracking_number <> ''").
		Where("tracking_pushed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
