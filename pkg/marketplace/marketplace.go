package marketplace

import (
	"context"
	"encoding/json"
	"time"

	"fulfill_dev_v1_202608/internal/model"
)

// ==================== 凭证 ====================

// Credentials 平台调用凭证
// 由调用方按店铺显式传入，适配器不持有任何店铺状态
type Credentials struct {
	APIKey         string
	AccessToken    string
	ExternalShopID int64
	ShopDomain     string // Shopify 专用
}

// ==================== 归一化订单快照 ====================

// Address 归一化地址
type Address struct {
	Name        string `json:"name"`
	FirstLine   string `json:"first_line"`
	SecondLine  string `json:"second_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

// IsZero 地址是否为空
func (a *Address) IsZero() bool {
	return a == nil || *a == Address{}
}

// ToMap 转为逐字段合并用的 map
func (a *Address) ToMap() map[string]interface{} {
	if a == nil {
		return nil
	}
	return map[string]interface{}{
		"name":         a.Name,
		"first_line":   a.FirstLine,
		"second_line":  a.SecondLine,
		"city":         a.City,
		"state":        a.State,
		"postal_code":  a.PostalCode,
		"country_code": a.CountryCode,
		"phone":        a.Phone,
	}
}

// LineItem 归一化订单项
type LineItem struct {
	ExternalItemID string            `json:"external_item_id"`
	Title          string            `json:"title"`
	SKU            string            `json:"sku"`
	Quantity       int               `json:"quantity"`
	Variations     map[string]string `json:"variations"` // 含买家填写的 Personalization
}

// FulfillmentRecord 归一化发货记录
type FulfillmentRecord struct {
	ExternalID     string     `json:"external_id"`
	TrackingNumber string     `json:"tracking_number"`
	Carrier        string     `json:"carrier"`
	LabelURL       string     `json:"label_url"`
	Cancelled      bool       `json:"cancelled"`
	NotifiedAt     *time.Time `json:"notified_at"`
	// 发货时填写的地址，通常比下单时的地址更准确
	ShipTo *Address `json:"ship_to,omitempty"`
}

// OrderSnapshot 归一化订单快照
// 平台私有结构不得越过适配器边界，进入引擎前必须转成本结构
type OrderSnapshot struct {
	Platform        model.Platform      `json:"platform"`
	ExternalOrderID string              `json:"external_order_id"`
	OrderNumber     string              `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ReceiptAddress  *Address            `json:"receipt_address,omitempty"`
	CreatedAt       *time.Time          `json:"created_at,omitempty"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
	IsShipped       bool                `json:"is_shipped"`
	Items           []LineItem          `json:"items"`
	Fulfillments    []FulfillmentRecord `json:"fulfillments"`
	// 平台原始报文，逐字落库供审计
	Raw json.RawMessage `json:"raw,omitempty"`
}

// ShipmentAddress 首个未取消发货记录上的地址，没有则返回 nil
func (s *OrderSnapshot) ShipmentAddress() *Address {
	for i := range s.Fulfillments {
		f := &s.Fulfillments[i]
		if f.Cancelled {
			continue
		}
		if !f.ShipTo.IsZero() {
			return f.ShipTo
		}
	}
	return nil
}

// FirstItem 首个订单项，没有则返回 nil
func (s *OrderSnapshot) FirstItem() *LineItem {
	if len(s.Items) == 0 {
		return nil
	}
	return &s.Items[0]
}

// ==================== Adapter 平台适配器 ====================

// Adapter 平台适配器
// 只做协议转换与数据归一化，不含业务规则
type Adapter interface {
	Platform() model.Platform

	// ListOrders 拉取 since 之后有更新的订单，分页由调用方驱动
	// 返回本页快照与平台报告的总数
	ListOrders(ctx context.Context, creds Credentials, since time.Time, limit, offset int) ([]OrderSnapshot, int, error)

	// GetFulfillments 拉取单个订单的发货记录
	GetFulfillments(ctx context.Context, creds Credentials, externalOrderID string) ([]FulfillmentRecord, error)

	// PushTracking 回传面单号到平台
	PushTracking(ctx context.Context, creds Credentials, externalOrderID, trackingNumber, carrier string) error
}
