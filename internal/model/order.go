package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 平台常量 ====================

// Platform 来源平台
type Platform string

const (
	PlatformEtsy    Platform = "etsy"
	PlatformShopify Platform = "shopify"
)

// ==================== 订单状态常量 ====================

// OrderStatus 履约流程状态
type OrderStatus string

const (
	StatusPendingEnrichment  OrderStatus = "pending_enrichment"  // 待补充定制信息
	StatusReadyForDesign     OrderStatus = "ready_for_design"    // 可开始设计
	StatusDesignComplete     OrderStatus = "design_complete"     // 设计完成
	StatusPendingFulfillment OrderStatus = "pending_fulfillment" // 生产中
	StatusLabelsGenerated    OrderStatus = "labels_generated"    // 已出面单
	StatusLoadedForShipment  OrderStatus = "loaded_for_shipment" // 已装车
	StatusInTransit          OrderStatus = "in_transit"          // 运输中
	StatusDelivered          OrderStatus = "delivered"           // 已签收
	StatusNeedsReview        OrderStatus = "needs_review"        // 人工复核
)

// statusRank 正向链路的顺序，needs_review 不在链上
var statusRank = map[OrderStatus]int{
	StatusPendingEnrichment:  0,
	StatusReadyForDesign:     1,
	StatusDesignComplete:     2,
	StatusPendingFulfillment: 3,
	StatusLabelsGenerated:    4,
	StatusLoadedForShipment:  5,
	StatusInTransit:          6,
	StatusDelivered:          7,
}

// StatusRank 返回状态在正向链路中的序号，needs_review 返回 -1
func StatusRank(s OrderStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsValid 校验状态是否合法
func (s OrderStatus) IsValid() bool {
	if s == StatusNeedsReview {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// transitions 状态转移表，不在表中的转移一律拒绝
var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingEnrichment:  {StatusReadyForDesign, StatusNeedsReview},
	StatusReadyForDesign:     {StatusDesignComplete, StatusNeedsReview},
	StatusDesignComplete:     {StatusPendingFulfillment, StatusReadyForDesign, StatusNeedsReview},
	StatusPendingFulfillment: {StatusLabelsGenerated, StatusReadyForDesign, StatusNeedsReview},
	StatusLabelsGenerated:    {StatusLoadedForShipment, StatusInTransit, StatusNeedsReview},
	StatusLoadedForShipment:  {StatusInTransit, StatusNeedsReview},
	StatusInTransit:          {StatusDelivered, StatusNeedsReview},
	StatusDelivered:          {},
	// needs_review 可由操作员恢复到任一正向状态
	StatusNeedsReview: {
		StatusPendingEnrichment, StatusReadyForDesign, StatusDesignComplete,
		StatusPendingFulfillment, StatusLabelsGenerated, StatusLoadedForShipment,
		StatusInTransit, StatusDelivered,
	},
}

// CanTransition 校验状态转移是否在转移表中
func CanTransition(from, to OrderStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ==================== Order 订单主表 ====================

// Order 订单
// (platform, external_order_id) 是同步幂等键，入库后不可变更
type Order struct {
	ID              int64    `gorm:"primaryKey;autoIncrement"`
	Platform        Platform `gorm:"size:20;not null;uniqueIndex:idx_platform_external_order"`
	ExternalOrderID string   `gorm:"size:64;not null;uniqueIndex:idx_platform_external_order"`
	StoreID         int64    `gorm:"index;not null"`
	OrderNumber     string   `gorm:"size:64"`

	// 买家信息
	CustomerName  string `gorm:"size:255"`
	CustomerEmail string `gorm:"size:255"`

	// 收货地址（PostgreSQL JSONB，逐字段合并）
	ShippingAddress datatypes.JSONMap `gorm:"type:jsonb"`

	// 商品信息（取首个订单项）
	ProductSKU string `gorm:"size:100;index"`
	Quantity   int    `gorm:"default:1"`

	// 履约状态
	Status       OrderStatus `gorm:"size:32;index;default:pending_enrichment"`
	ReviewReason string      `gorm:"type:text"`

	// 面单与物流
	TrackingNumber string `gorm:"size:64;index"`
	Carrier        string `gorm:"size:32"`
	LabelURL       string `gorm:"size:500"`
	// TrackingPushed 面单号是否已回传到平台
	TrackingPushed   bool `gorm:"default:false"`
	TrackingPushedAt *time.Time

	// 生命周期时间戳
	ProductionStartedAt *time.Time // 设置后设计文件锁定，仅改稿转移可清除
	LoadedAt            *time.Time
	DeliveredAt         *time.Time

	// 平台原始快照（审计用，逐字保留）
	RawExternal datatypes.JSON `gorm:"type:jsonb"`

	// 备注
	InternalNotes string `gorm:"type:text"`

	// 平台侧时间
	ExternalCreatedAt *time.Time
	ExternalUpdatedAt *time.Time
	SyncedAt          *time.Time

	// 审计字段
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	// 关联
	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (*Order) TableName() string {
	return "orders"
}

// GetShippingAddressField 获取收货地址字段
func (o *Order) GetShippingAddressField(key string) string {
	if o.ShippingAddress == nil {
		return ""
	}
	if v, ok := o.ShippingAddress[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ProductionLocked 生产开始后设计文件锁定
func (o *Order) ProductionLocked() bool {
	return o.ProductionStartedAt != nil
}

// AllItemsDesigned 每个订单项都已上传设计稿
func (o *Order) AllItemsDesigned() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if item.DesignFileURL == "" {
			return false
		}
	}
	return true
}

// ==================== OrderItem 订单项 ====================

// OrderItem 订单项
type OrderItem struct {
	ID             int64    `gorm:"primaryKey;autoIncrement"`
	OrderID        int64    `gorm:"index;not null"`
	Platform       Platform `gorm:"size:20;not null;uniqueIndex:idx_platform_external_item"`
	ExternalItemID string   `gorm:"size:64;not null;uniqueIndex:idx_platform_external_item"`

	// 商品信息
	Title    string `gorm:"size:500"`
	SKU      string `gorm:"size:100;index"`
	Quantity int    `gorm:"default:1"`

	// 变体信息（含 Personalization，PostgreSQL JSONB）
	Variations datatypes.JSONMap `gorm:"type:jsonb"`

	// 设计稿
	DesignFileURL    string `gorm:"size:500"`
	DesignUploadedAt *time.Time

	// 审计
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (*OrderItem) TableName() string {
	return "order_items"
}

// PersonalizationValue 读取买家填写的定制文本
func (i *OrderItem) PersonalizationValue() string {
	if i.Variations == nil {
		return ""
	}
	if v, ok := i.Variations["Personalization"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
