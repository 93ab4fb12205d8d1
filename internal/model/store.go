package model

import (
	"time"
)

// Store 店铺状态常量
const (
	StoreStatusPending  = 0 // 待授权
	StoreStatusActive   = 1 // 正常
	StoreStatusInactive = 2 // 已停用
)

// Store 店铺
// 凭证以字段值显式下发给适配器，不做全局状态
type Store struct {
	BaseModel
	Platform Platform `gorm:"size:20;not null;index"`
	Name     string   `gorm:"size:100"`

	// 平台侧店铺标识
	ExternalShopID int64  `gorm:"index"`
	ShopDomain     string `gorm:"size:255"` // Shopify 店铺域名，Etsy 留空

	// 凭证
	APIKey      string `gorm:"size:255"`
	AccessToken string `gorm:"size:512"`

	// 状态
	Status int `gorm:"default:0;comment:状态 0-待授权 1-正常 2-已停用"`

	// 同步水位线：仅在一轮同步完整跑完后推进，用于圈定下次拉取窗口
	LastSyncAt *time.Time
}

func (*Store) TableName() string {
	return "stores"
}

// IsActive 店铺是否参与同步
func (s *Store) IsActive() bool {
	return s.Status == StoreStatusActive
}
