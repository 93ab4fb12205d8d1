package dto

import "time"

// ==================== 同步结果 ====================

// SyncResult 单店铺一轮同步的结果
// Imported 维持"新增+更新"的合并口径以兼容既有工具，
// NewOrders / UpdatedOrders 单独给出细分值
type SyncResult struct {
	StoreID  int64  `json:"store_id"`
	PassID   string `json:"pass_id"`
	Fetched  int    `json:"fetched"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`

	NewOrders     int `json:"new_orders"`
	UpdatedOrders int `json:"updated_orders"`

	Errors []SyncOrderError `json:"errors,omitempty"`
}

// SyncOrderError 单个订单的同步错误
type SyncOrderError struct {
	ExternalOrderID string `json:"external_order_id"`
	Message         string `json:"message"`
}

// ==================== 全店铺汇总 ====================

// SyncAllResult 全部店铺一轮同步的汇总
// 所有店铺都失败也不算整体失败，每个失败单独可见
type SyncAllResult struct {
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Stores     []StoreSyncOutcome `json:"stores"`
}

// StoreSyncOutcome 单店铺在汇总中的结果
type StoreSyncOutcome struct {
	StoreID int64       `json:"store_id"`
	Name    string      `json:"name"`
	Result  *SyncResult `json:"result,omitempty"`
	// Error 店铺级失败（列表调用失败），NeedsReauth 标记需要重新授权
	Error       string `json:"error,omitempty"`
	NeedsReauth bool   `json:"needs_reauth,omitempty"`
}
