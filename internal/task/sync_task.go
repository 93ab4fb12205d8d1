package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"fulfill_dev_v1_202608/internal/api/dto"
	"fulfill_dev_v1_202608/internal/service"
)

// ==================== OrderSyncTask 订单同步任务 ====================

// OrderSyncTask 定时拉取各平台订单
// 店铺之间严格串行：平台限流预算按店铺划分，并发只会互相挤兑
type OrderSyncTask struct {
	syncSvc *service.SyncService
	cron    *cron.Cron

	timeout time.Duration
}

// NewOrderSyncTask 创建订单同步任务
func NewOrderSyncTask(syncSvc *service.SyncService) *OrderSyncTask {
	return &OrderSyncTask{
		syncSvc: syncSvc,
		cron:    cron.New(cron.WithSeconds()),
		timeout: 10 * time.Minute,
	}
}

// Start 启动定时任务
func (t *OrderSyncTask) Start() {
	// 每10分钟一轮
	_, err := t.cron.AddFunc("0 0/10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.syncJob(ctx)
	})
	if err != nil {
		log.Fatalf("[OrderSyncTask] 无法启动订单同步任务: %v", err)
	}

	t.cron.Start()
	log.Println("[OrderSyncTask] 订单同步任务已启动 (每10分钟)")
}

// Stop 停止定时任务
func (t *OrderSyncTask) Stop() {
	t.cron.Stop()
	log.Println("[OrderSyncTask] 已停止")
}

// RunOnce 立即执行一轮，手动触发入口
func (t *OrderSyncTask) RunOnce(ctx context.Context) (*dto.SyncAllResult, error) {
	return t.syncSvc.SyncAll(ctx)
}

// syncJob 执行一轮全店铺同步
func (t *OrderSyncTask) syncJob(ctx context.Context) {
	log.Println("[OrderSyncTask] 开始同步各店铺订单")

	result, err := t.syncSvc.SyncAll(ctx)
	if err != nil {
		log.Printf("[OrderSyncTask] 同步执行失败: %v", err)
		return
	}

	for _, outcome := range result.Stores {
		if outcome.Error != "" {
			if outcome.NeedsReauth {
				log.Printf("[OrderSyncTask] 店铺 %d(%s) 凭证失效，需重新授权: %s",
					outcome.StoreID, outcome.Name, outcome.Error)
			} else {
				log.Printf("[OrderSyncTask] 店铺 %d(%s) 同步失败: %s",
					outcome.StoreID, outcome.Name, outcome.Error)
			}
			continue
		}
		r := outcome.Result
		log.Printf("[OrderSyncTask] 店铺 %d(%s) 完成: 拉取 %d, 入库 %d (新 %d / 更 %d), 跳过 %d, 错误 %d",
			outcome.StoreID, outcome.Name,
			r.Fetched, r.Imported, r.NewOrders, r.UpdatedOrders, r.Skipped, len(r.Errors))
	}

	log.Printf("[OrderSyncTask] 本轮同步结束, 耗时 %s", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
}
