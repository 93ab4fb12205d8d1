package router

import (
	"github.com/gin-gonic/gin"

	"fulfill_dev_v1_202608/internal/controller"
	"fulfill_dev_v1_202608/internal/middleware"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	orderCtl *controller.OrderController,
	syncCtl *controller.SyncController) {

	api := r.Group("/api/v1")
	{
		// orders 订单管理
		orders := api.Group("/orders")
		{
			// GET /api/v1/orders
			orders.GET("", orderCtl.List)
			orders.GET("/stats", orderCtl.Stats)
			orders.GET("/:id", orderCtl.GetByID)

			// 状态流转
			orders.POST("/:id/transition", orderCtl.Transition)
			orders.POST("/:id/revision", orderCtl.RequestRevision)
			orders.POST("/batch/transition", orderCtl.BatchTransition)
			orders.POST("/promote", orderCtl.PromoteEligible)

			// 设计稿、定制信息与备注
			orders.POST("/:id/design", orderCtl.AttachDesign)
			orders.POST("/:id/enrich", orderCtl.Enrich)
			orders.PUT("/:id/notes", orderCtl.UpdateNotes)
		}

		// sync 同步触发与审计
		sync := api.Group("/sync")
		{
			// 手动触发走冷却中间件，定时任务不受影响
			sync.POST("/stores/:id",
				middleware.SyncRateLimit(middleware.SyncKindOrder, 0),
				syncCtl.SyncStore)
			sync.POST("/stores",
				middleware.GlobalSyncRateLimit(middleware.SyncKindOrder, 0),
				syncCtl.SyncAllStores)

			// GET /api/v1/sync/stores/:id/logs
			sync.GET("/stores/:id/logs", syncCtl.ListSyncLogs)
		}
	}
}
