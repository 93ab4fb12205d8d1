package model

import (
	"time"
)

// ==================== 同步结果常量 ====================

const (
	SyncLogStatusSuccess = "success" // 无任何错误
	SyncLogStatusPartial = "partial" // 部分订单失败，本轮跑完
	SyncLogStatusFailed  = "failed"  // 列表调用失败，整轮中止
)

// ==================== SyncLogEntry 同步审计日志 ====================

// SyncLogEntry 同步审计日志
// 只追加，每个店铺每轮一条
type SyncLogEntry struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	PassID  string `gorm:"size:36;index"` // 本轮同步的 UUID
	StoreID int64  `gorm:"index;not null"`

	StartedAt  time.Time
	FinishedAt time.Time

	// 计数
	Fetched  int `gorm:"default:0"`
	Imported int `gorm:"default:0"` // 新增 + 更新（与既有工具口径一致）
	Skipped  int `gorm:"default:0"`

	// 细分计数，供更严格的报表使用
	NewOrders     int `gorm:"default:0"`
	UpdatedOrders int `gorm:"default:0"`

	Status string `gorm:"size:16;index"`

	// 截断后的错误摘要，供运维排查，不含内部细节
	ErrorDetail string `gorm:"type:text"`

	CreatedAt time.Time
}

func (*SyncLogEntry) TableName() string {
	return "sync_log_entries"
}
