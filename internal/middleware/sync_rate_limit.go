package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 同步冷却中间件 ====================

// SyncRateLimit 按店铺 + 同步种类冷却手动触发
//
// 使用示例:
//
//	router.POST("/api/v1/stores/:id/sync",
//	    middleware.SyncRateLimit(middleware.SyncKindOrder, 0),
//	    syncCtl.TriggerStoreSync,
//	)
//
// interval 为 0 时使用种类默认值
func SyncRateLimit(kind SyncKind, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(kind)
	}

	return func(c *gin.Context) {
		storeIDStr := c.Param("id")
		if storeIDStr == "" {
			storeIDStr = c.Query("store_id")
		}

		var key string
		if storeIDStr != "" {
			storeID, err := strconv.ParseInt(storeIDStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    400,
					"message": "无效的店铺 ID",
				})
				c.Abort()
				return
			}
			key = StoreSyncKey(storeID, kind)
		} else {
			key = GlobalSyncKey(kind)
		}

		rejectIfCooling(c, key, interval, kind)
	}
}

// GlobalSyncRateLimit 全局冷却，用于"同步所有店铺"入口
func GlobalSyncRateLimit(kind SyncKind, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(kind)
	}

	return func(c *gin.Context) {
		rejectIfCooling(c, GlobalSyncKey(kind), interval, kind)
	}
}

// rejectIfCooling 冷却未过返回 429，否则放行
func rejectIfCooling(c *gin.Context, key string, interval time.Duration, kind SyncKind) {
	result := GetCooldown().Check(key, interval)
	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":    429,
			"message": formatRetryMessage(result.RetryAfter),
			"data": gin.H{
				"retry_after": int(result.RetryAfter.Seconds()),
				"sync_kind":   kind,
			},
		})
		c.Abort()
		return
	}
	c.Next()
}

// formatRetryMessage 格式化重试提示
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remaining := seconds % 60
	if remaining == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", minutes)
	}
	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", minutes, remaining)
}
