package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/internal/service"
	"fulfill_dev_v1_202608/pkg/carrier"
)

// ==================== TrackingTask 面单回传与轨迹刷新任务 ====================

// TrackingTask 两件事：把本地出的面单号回传平台，
// 以及按承运商轨迹推进已出库订单的状态
type TrackingTask struct {
	orderRepo   repository.OrderRepository
	trackingSvc *service.TrackingService
	workflowSvc *service.WorkflowService
	probe       carrier.Probe
	cron        *cron.Cron

	concurrencyLimit int
	sleepTime        time.Duration
}

// NewTrackingTask 创建任务
func NewTrackingTask(
	orderRepo repository.OrderRepository,
	trackingSvc *service.TrackingService,
	workflowSvc *service.WorkflowService,
	probe carrier.Probe,
) *TrackingTask {
	return &TrackingTask{
		orderRepo:        orderRepo,
		trackingSvc:      trackingSvc,
		workflowSvc:      workflowSvc,
		probe:            probe,
		cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 10,
		sleepTime:        100 * time.Millisecond,
	}
}

// Start 启动定时任务
func (t *TrackingTask) Start() {
	// 面单回传（每15分钟）
	_, err := t.cron.AddFunc("0 0/15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.pushTrackingJob(ctx)
	})
	if err != nil {
		log.Fatalf("[TrackingTask] 无法启动面单回传任务: %v", err)
	}

	// 轨迹刷新（每30分钟）
	_, err = t.cron.AddFunc("0 0/30 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.refreshMovementJob(ctx)
	})
	if err != nil {
		log.Fatalf("[TrackingTask] 无法启动轨迹刷新任务: %v", err)
	}

	t.cron.Start()
	log.Println("[TrackingTask] 面单回传与轨迹刷新任务已启动")
}

// Stop 停止定时任务
func (t *TrackingTask) Stop() {
	t.cron.Stop()
	log.Println("[TrackingTask] 已停止")
}

// pushTrackingJob 回传未同步的面单号
func (t *TrackingTask) pushTrackingJob(ctx context.Context) {
	orders, err := t.orderRepo.ListPendingTrackingPush(ctx, 50)
	if err != nil {
		log.Printf("[TrackingTask] 获取待回传订单失败: %v", err)
		return
	}

	if len(orders) == 0 {
		return
	}

	log.Printf("[TrackingTask] 开始回传 %d 条面单号", len(orders))

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup
	var successCount, failCount int32
	var mu sync.Mutex

	for _, order := range orders {
		select {
		case <-ctx.Done():
			log.Println("[TrackingTask] 面单回传任务超时停止")
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		time.Sleep(t.sleepTime)

		go func(o model.Order) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.trackingSvc.PushTracking(ctx, o.ID); err != nil {
				log.Printf("[TrackingTask] 订单 %d 面单回传失败: %v", o.ID, err)
				mu.Lock()
				failCount++
				mu.Unlock()
			} else {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}(order)
	}

	wg.Wait()
	log.Printf("[TrackingTask] 面单回传完成: 成功 %d, 失败 %d", successCount, failCount)
}

// refreshMovementJob 按承运商轨迹推进出库后订单
// 已出面单 / 已装车的订单一旦有轨迹即转运输中，运输中的订单签收事件转已签收
func (t *TrackingTask) refreshMovementJob(ctx context.Context) {
	if t.probe == nil {
		return
	}

	statuses := []model.OrderStatus{
		model.StatusLabelsGenerated,
		model.StatusLoadedForShipment,
		model.StatusInTransit,
	}

	var probed, advanced int
	for _, status := range statuses {
		orders, err := t.orderRepo.ListByStatus(ctx, status, 100)
		if err != nil {
			log.Printf("[TrackingTask] 获取 %s 订单失败: %v", status, err)
			continue
		}

		for i := range orders {
			select {
			case <-ctx.Done():
				log.Println("[TrackingTask] 轨迹刷新任务超时停止")
				return
			default:
			}

			order := &orders[i]
			if order.TrackingNumber == "" {
				continue
			}

			movement, err := t.probe.Query(ctx, order.TrackingNumber, order.Carrier)
			if err != nil {
				log.Printf("[TrackingTask] 订单 %d 轨迹查询失败: %v", order.ID, err)
				continue
			}
			probed++

			if next := nextByMovement(order.Status, movement); next != "" {
				if _, err := t.workflowSvc.Transition(ctx, order.ID, next, ""); err != nil {
					log.Printf("[TrackingTask] 订单 %d 推进到 %s 失败: %v", order.ID, next, err)
					continue
				}
				advanced++
			}

			time.Sleep(t.sleepTime)
		}
	}

	if probed > 0 {
		log.Printf("[TrackingTask] 轨迹刷新完成: 查询 %d, 推进 %d", probed, advanced)
	}
}

// nextByMovement 由轨迹结果决定下一个状态，无需推进返回空
func nextByMovement(current model.OrderStatus, m *carrier.Movement) model.OrderStatus {
	switch current {
	case model.StatusLabelsGenerated, model.StatusLoadedForShipment:
		// 承运商有任何扫描记录即视为已揽收
		if m.Delivered || m.LastEventAt != nil {
			return model.StatusInTransit
		}
	case model.StatusInTransit:
		if m.Delivered {
			return model.StatusDelivered
		}
	}
	return ""
}
