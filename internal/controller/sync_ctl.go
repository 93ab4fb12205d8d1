package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/internal/service"
	"fulfill_dev_v1_202608/pkg/apperr"
)

// SyncController 同步控制器
type SyncController struct {
	syncSvc     *service.SyncService
	storeRepo   repository.StoreRepository
	syncLogRepo repository.SyncLogRepository
}

// NewSyncController 创建同步控制器
func NewSyncController(
	syncSvc *service.SyncService,
	storeRepo repository.StoreRepository,
	syncLogRepo repository.SyncLogRepository,
) *SyncController {
	return &SyncController{
		syncSvc:     syncSvc,
		storeRepo:   storeRepo,
		syncLogRepo: syncLogRepo,
	}
}

// ==================== Handler 实现 ====================

// SyncStore 同步单个店铺
// POST /api/v1/sync/stores/:id
func (c *SyncController) SyncStore(ctx *gin.Context) {
	storeID := parseID(ctx, "id")
	if storeID == 0 {
		return
	}

	store, err := c.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "店铺不存在"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}
	if !store.IsActive() {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "店铺未启用，无法同步"})
		return
	}

	result, err := c.syncSvc.Synchronize(ctx.Request.Context(), store)
	if err != nil {
		status := http.StatusInternalServerError
		resp := gin.H{"code": 500, "message": err.Error()}
		// 凭证失效单独提示，引导重新授权
		if apperr.IsUpstreamAuth(err) {
			status = http.StatusUnauthorized
			resp = gin.H{"code": 401, "message": err.Error(), "needs_reauth": true}
		}
		ctx.JSON(status, resp)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "店铺同步完成",
		"data":    result,
	})
}

// SyncAllStores 同步所有店铺
// POST /api/v1/sync/stores
func (c *SyncController) SyncAllStores(ctx *gin.Context) {
	result, err := c.syncSvc.SyncAll(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "所有店铺同步完成",
		"data":    result,
	})
}

// ListSyncLogs 查询店铺同步日志
// GET /api/v1/sync/stores/:id/logs
func (c *SyncController) ListSyncLogs(ctx *gin.Context) {
	storeID := parseID(ctx, "id")
	if storeID == 0 {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	entries, err := c.syncLogRepo.ListByStore(ctx, storeID, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	total, err := c.syncLogRepo.CountByStore(ctx, storeID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"total": total,
			"list":  entries,
		},
	})
}
