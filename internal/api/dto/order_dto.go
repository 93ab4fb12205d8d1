package dto

import "time"

// ==================== 订单列表查询 ====================

// ListOrdersRequest 订单列表请求
type ListOrdersRequest struct {
	StoreID   int64  `form:"store_id"`
	Platform  string `form:"platform"` // etsy, shopify
	Status    string `form:"status"`
	StartDate string `form:"start_date"` // 2026-01-01
	EndDate   string `form:"end_date"`
	Keyword   string `form:"keyword"` // 搜索：订单号、买家名
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
}

// ListOrdersResponse 订单列表响应
type ListOrdersResponse struct {
	Total int64           `json:"total"`
	List  []OrderListItem `json:"list"`
}

// OrderListItem 订单列表项
type OrderListItem struct {
	ID              int64      `json:"id"`
	Platform        string     `json:"platform"`
	ExternalOrderID string     `json:"external_order_id"`
	OrderNumber     string     `json:"order_number"`
	StoreID         int64      `json:"store_id"`
	CustomerName    string     `json:"customer_name"`
	ProductSKU      string     `json:"product_sku"`
	Quantity        int        `json:"quantity"`
	Status          string     `json:"status"`
	TrackingNumber  string     `json:"tracking_number,omitempty"`
	ShippingCountry string     `json:"shipping_country,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	SyncedAt        *time.Time `json:"synced_at,omitempty"`
}

// ==================== 订单详情 ====================

// OrderDetailResponse 订单详情响应
type OrderDetailResponse struct {
	Order           *OrderVO           `json:"order"`
	Items           []OrderItemVO      `json:"items"`
	ShippingAddress *ShippingAddressVO `json:"shipping_address"`
}

// OrderVO 订单视图对象
type OrderVO struct {
	ID                  int64      `json:"id"`
	Platform            string     `json:"platform"`
	ExternalOrderID     string     `json:"external_order_id"`
	OrderNumber         string     `json:"order_number"`
	StoreID             int64      `json:"store_id"`
	CustomerName        string     `json:"customer_name"`
	CustomerEmail       string     `json:"customer_email"`
	ProductSKU          string     `json:"product_sku"`
	Quantity            int        `json:"quantity"`
	Status              string     `json:"status"`
	ReviewReason        string     `json:"review_reason,omitempty"`
	TrackingNumber      string     `json:"tracking_number,omitempty"`
	Carrier             string     `json:"carrier,omitempty"`
	LabelURL            string     `json:"label_url,omitempty"`
	TrackingPushed      bool       `json:"tracking_pushed"`
	InternalNotes       string     `json:"internal_notes,omitempty"`
	ProductionStartedAt *time.Time `json:"production_started_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty"`
	ExternalCreatedAt   *time.Time `json:"external_created_at,omitempty"`
	SyncedAt            *time.Time `json:"synced_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// OrderItemVO 订单项视图对象
type OrderItemVO struct {
	ID             int64             `json:"id"`
	ExternalItemID string            `json:"external_item_id"`
	Title          string            `json:"title"`
	SKU            string            `json:"sku,omitempty"`
	Quantity       int               `json:"quantity"`
	Variations     map[string]string `json:"variations,omitempty"`
	DesignFileURL  string            `json:"design_file_url,omitempty"`
	DesignLocked   bool              `json:"design_locked"`
}

// ShippingAddressVO 收货地址视图对象
type ShippingAddressVO struct {
	Name        string `json:"name"`
	FirstLine   string `json:"first_line"`
	SecondLine  string `json:"second_line,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

// ==================== 状态流转请求 ====================

// TransitionRequest 状态流转请求
type TransitionRequest struct {
	To     string `json:"to" binding:"required"`
	Reason string `json:"reason"` // needs_review 时必填
}

// AttachDesignRequest 上传设计稿请求
type AttachDesignRequest struct {
	ItemID  int64  `json:"item_id" binding:"required"`
	FileURL string `json:"file_url" binding:"required"`
}

// UpdateNotesRequest 更新内部备注请求
type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

// EnrichOrderRequest 补充定制信息请求，空字段表示不提供
type EnrichOrderRequest struct {
	ProductSKU      string `json:"product_sku"`
	CustomerEmail   string `json:"customer_email"`
	Personalization string `json:"personalization"`
}

// BatchTransitionRequest 批量状态流转请求
type BatchTransitionRequest struct {
	OrderIDs []int64 `json:"order_ids" binding:"required"`
	To       string  `json:"to" binding:"required"`
	Reason   string  `json:"reason"`
}

// BatchOperationResponse 批量操作响应
type BatchOperationResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
