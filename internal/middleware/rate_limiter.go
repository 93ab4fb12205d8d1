package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncCooldown 同步冷却器 ====================

// SyncCooldown 手动同步冷却器
// 防止操作员反复点同步把平台配额打穿，定时任务不走这里
type SyncCooldown struct {
	locks sync.Map // key -> *cooldownEntry
}

type cooldownEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

var globalCooldown = &SyncCooldown{}

// GetCooldown 获取全局冷却器
func GetCooldown() *SyncCooldown {
	return globalCooldown
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查并占用冷却窗口
// key 形如 "store:123:order" 或 "global:order"
func (r *SyncCooldown) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &cooldownEntry{})
	entry := actual.(*cooldownEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的冷却
func (r *SyncCooldown) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 与间隔 ====================

// SyncKind 手动触发的同步种类
type SyncKind string

const (
	SyncKindOrder    SyncKind = "order"
	SyncKindTracking SyncKind = "tracking"
)

// StoreSyncKey 店铺级冷却 Key
func StoreSyncKey(storeID int64, kind SyncKind) string {
	return fmt.Sprintf("store:%d:%s", storeID, kind)
}

// GlobalSyncKey 全局冷却 Key
func GlobalSyncKey(kind SyncKind) string {
	return fmt.Sprintf("global:%s", kind)
}

// 默认冷却间隔
var defaultIntervals = map[SyncKind]time.Duration{
	SyncKindOrder:    5 * time.Minute,
	SyncKindTracking: 3 * time.Minute,
}

// GetInterval 获取同步种类的默认冷却间隔
func GetInterval(kind SyncKind) time.Duration {
	if interval, ok := defaultIntervals[kind]; ok {
		return interval
	}
	return 5 * time.Minute
}
