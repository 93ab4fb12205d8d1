package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"fulfill_dev_v1_202608/internal/api/dto"
	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/pkg/apperr"
	"fulfill_dev_v1_202608/pkg/marketplace"
)

const (
	syncPageSize = 100
	// 错误摘要截断上限，审计日志面向运维排查，不塞原始内部细节
	maxLoggedErrors   = 10
	maxErrorDetailLen = 2000
)

// ==================== SyncService 订单同步引擎 ====================

// SyncService 订单同步引擎
// 每个店铺一轮：拉取窗口内的上游订单，逐单对账入库，
// 结束时推进水位线并写一条审计日志
type SyncService struct {
	orderRepo   repository.OrderRepository
	storeRepo   repository.StoreRepository
	syncLogRepo repository.SyncLogRepository
	adapters    map[model.Platform]marketplace.Adapter
	resolver    *StatusResolver
	logger      *zap.Logger
}

// NewSyncService 创建同步引擎
func NewSyncService(
	orderRepo repository.OrderRepository,
	storeRepo repository.StoreRepository,
	syncLogRepo repository.SyncLogRepository,
	adapters map[model.Platform]marketplace.Adapter,
	resolver *StatusResolver,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		orderRepo:   orderRepo,
		storeRepo:   storeRepo,
		syncLogRepo: syncLogRepo,
		adapters:    adapters,
		resolver:    resolver,
		logger:      logger,
	}
}

// ==================== 单店铺同步 ====================

// Synchronize 同步单个店铺
// 列表调用失败中止整轮（failed）；单个订单失败只记录，继续处理。
// 水位线推进到本轮开始时刻：失败的订单会落在下次的窗口里重新拉到。
// 注意：同一店铺的并发两轮由调用方保证互斥，引擎本身不加锁，
// (platform, external_order_id) 唯一索引是最后一道防线。
func (s *SyncService) Synchronize(ctx context.Context, store *model.Store) (*dto.SyncResult, error) {
	passStart := time.Now()
	result := &dto.SyncResult{
		StoreID: store.ID,
		PassID:  uuid.NewString(),
	}

	adapter, ok := s.adapters[store.Platform]
	if !ok {
		err := fmt.Errorf("平台 %s 无适配器", store.Platform)
		s.writeSyncLog(ctx, store, passStart, result, model.SyncLogStatusFailed, err)
		return nil, err
	}

	var since time.Time
	if store.LastSyncAt != nil {
		since = *store.LastSyncAt
	}
	creds := storeCredentials(store)

	s.logger.Info("开始同步店铺订单",
		zap.Int64("store_id", store.ID),
		zap.String("platform", string(store.Platform)),
		zap.Time("since", since))

	// 分页拉取，调用方驱动翻页
	offset := 0
	for {
		snaps, total, err := adapter.ListOrders(ctx, creds, since, syncPageSize, offset)
		if err != nil {
			// 列表调用失败中止整轮，水位线不动，下一轮调度自然重试
			s.writeSyncLog(ctx, store, passStart, result, model.SyncLogStatusFailed, err)
			return nil, err
		}

		result.Fetched += len(snaps)
		for i := range snaps {
			s.reconcileOne(ctx, store, &snaps[i], result)
		}

		offset += len(snaps)
		if len(snaps) == 0 || offset >= total {
			break
		}
	}

	// 水位线每轮只推进一次，推进到本轮开始时刻
	if err := s.storeRepo.AdvanceWatermark(ctx, store.ID, passStart); err != nil {
		s.logger.Error("推进水位线失败", zap.Int64("store_id", store.ID), zap.Error(err))
	}

	status := model.SyncLogStatusSuccess
	if len(result.Errors) > 0 {
		status = model.SyncLogStatusPartial
	}
	s.writeSyncLog(ctx, store, passStart, result, status, nil)

	s.logger.Info("店铺同步完成",
		zap.Int64("store_id", store.ID),
		zap.Int("fetched", result.Fetched),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// ==================== 全店铺编排 ====================

// SyncAll 顺序同步所有正常店铺
// 平台限流决定了跨店铺并发得不偿失；单店铺失败不影响其他店铺，
// 即便全部失败整体也返回成功，失败明细逐店铺可见
func (s *SyncService) SyncAll(ctx context.Context) (*dto.SyncAllResult, error) {
	overall := &dto.SyncAllResult{StartedAt: time.Now()}

	stores, err := s.storeRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取店铺列表失败: %w", err)
	}

	for i := range stores {
		store := stores[i]
		outcome := dto.StoreSyncOutcome{StoreID: store.ID, Name: store.Name}

		res, err := s.Synchronize(ctx, &store)
		if err != nil {
			outcome.Error = err.Error()
			// 凭证失效单独标记，触发方引导重新授权而不是盲目重试
			outcome.NeedsReauth = apperr.IsUpstreamAuth(err)
		} else {
			outcome.Result = res
		}
		overall.Stores = append(overall.Stores, outcome)

		if ctx.Err() != nil {
			break
		}
	}

	overall.FinishedAt = time.Now()
	return overall, nil
}

// ==================== 单订单对账 ====================

// reconcileOne 对账单个快照，错误记入 result 不向外抛
func (s *SyncService) reconcileOne(ctx context.Context, store *model.Store, snap *marketplace.OrderSnapshot, result *dto.SyncResult) {
	if err := s.syncSnapshot(ctx, store, snap, result); err != nil {
		s.logger.Warn("订单同步失败",
			zap.Int64("store_id", store.ID),
			zap.String("external_order_id", snap.ExternalOrderID),
			zap.Error(err))
		result.Errors = append(result.Errors, dto.SyncOrderError{
			ExternalOrderID: snap.ExternalOrderID,
			Message:         err.Error(),
		})
	}
}

// syncSnapshot 把一个上游快照落到账本：新订单插入，已有订单打补丁
func (s *SyncService) syncSnapshot(ctx context.Context, store *model.Store, snap *marketplace.OrderSnapshot, result *dto.SyncResult) error {
	existing, err := s.orderRepo.FindByExternalID(ctx, snap.Platform, snap.ExternalOrderID)
	if err != nil {
		return fmt.Errorf("查询账本失败: %w", err)
	}

	if existing == nil {
		order := s.buildOrder(ctx, store, snap)
		if err := s.orderRepo.Create(ctx, order); err != nil {
			if !repository.IsDuplicateKey(err) {
				return fmt.Errorf("插入订单失败: %w", err)
			}
			// 唯一索引挡下了并发后到的同一订单：按已存在重新走补丁路径
			existing, err = s.orderRepo.FindByExternalID(ctx, snap.Platform, snap.ExternalOrderID)
			if err != nil || existing == nil {
				return fmt.Errorf("重复订单复查失败: %v", err)
			}
			return s.patchExisting(ctx, store, existing, snap, result)
		}

		if err := s.syncItems(ctx, order.ID, snap); err != nil {
			return err
		}
		result.Imported++
		result.NewOrders++
		return nil
	}

	return s.patchExisting(ctx, store, existing, snap, result)
}

// buildOrder 从快照构建新订单
func (s *SyncService) buildOrder(ctx context.Context, store *model.Store, snap *marketplace.OrderSnapshot) *model.Order {
	now := time.Now()
	order := &model.Order{
		Platform:          snap.Platform,
		ExternalOrderID:   snap.ExternalOrderID,
		StoreID:           store.ID,
		OrderNumber:       snap.OrderNumber,
		CustomerName:      snap.CustomerName,
		CustomerEmail:     snap.CustomerEmail,
		ExternalCreatedAt: snap.CreatedAt,
		ExternalUpdatedAt: snap.UpdatedAt,
		SyncedAt:          &now,
	}

	// 发货级地址优先：离履约更近，卖家的修正大多在那里
	if addr := preferredAddress(snap); addr != nil {
		order.ShippingAddress = datatypes.JSONMap(addr.ToMap())
	}

	var variations map[string]string
	if item := snap.FirstItem(); item != nil {
		order.ProductSKU = item.SKU
		order.Quantity = item.Quantity
		variations = item.Variations
	}

	// 初始状态由解析器决定，解析器永不报错
	order.Status = s.resolver.Resolve(ctx, order.ProductSKU, variations)

	// 上游已发货的历史订单：提取面单并直接落到已出面单状态
	if snap.IsShipped {
		if info := ExtractTracking(snap.Fulfillments); info != nil {
			order.TrackingNumber = info.TrackingNumber
			order.Carrier = info.Carrier
			order.LabelURL = info.LabelURL
			order.TrackingPushed = true // 面单来自平台本身，无需回传
			order.Status = model.StatusLabelsGenerated
		}
	}

	// 原始快照逐字嵌入，审计用
	if len(snap.Raw) > 0 {
		order.RawExternal = datatypes.JSON(snap.Raw)
	} else if rawData, err := json.Marshal(snap); err == nil {
		order.RawExternal = rawData
	}

	return order
}

// patchExisting 对已有订单计算并应用非破坏性补丁
func (s *SyncService) patchExisting(ctx context.Context, store *model.Store, existing *model.Order, snap *marketplace.OrderSnapshot, result *dto.SyncResult) error {
	patch := buildPatch(existing, snap)

	// 补回 sku 后重新解析初始状态，解析结果并入补丁而不是重建记录
	if newSKU, ok := patch["product_sku"].(string); ok && existing.ProductSKU == "" {
		var variations map[string]string
		if item := snap.FirstItem(); item != nil {
			variations = item.Variations
		}
		if existing.Status == model.StatusPendingEnrichment {
			resolved := s.resolver.Resolve(ctx, newSKU, variations)
			if resolved != existing.Status {
				patch["status"] = resolved
			}
		}
	}

	// 上游已发货：提取面单，推进落后的本地状态
	if snap.IsShipped {
		s.mergeTracking(existing, snap.Fulfillments, patch)
	}

	// 订单项先落库：变化可能只发生在订单项的变体里
	// （买家事后补填定制文本），订单级补丁为空也要带上
	if err := s.syncItems(ctx, existing.ID, snap); err != nil {
		return err
	}

	if len(patch) == 0 {
		result.Skipped++
		return nil
	}

	now := time.Now()
	patch["synced_at"] = &now
	// 原始快照跟随最新一次有效合并
	if len(snap.Raw) > 0 {
		patch["raw_external"] = datatypes.JSON(snap.Raw)
	}

	if err := s.orderRepo.UpdateFields(ctx, existing.ID, patch); err != nil {
		return fmt.Errorf("更新订单失败: %w", err)
	}

	result.Imported++
	result.UpdatedOrders++
	return nil
}

// mergeTracking 上游报告已发货时的状态推进
// 本地状态在"生产中"及之前且面单可提取时，推进到已出面单——
// 卖家直接在平台上买面单时，本地状态靠这里保持一致
func (s *SyncService) mergeTracking(existing *model.Order, records []marketplace.FulfillmentRecord, patch map[string]interface{}) {
	info := ExtractTracking(records)
	if info == nil {
		return
	}

	if existing.TrackingNumber == "" {
		patch["tracking_number"] = info.TrackingNumber
		if info.Carrier != "" {
			patch["carrier"] = info.Carrier
		}
		if info.LabelURL != "" {
			patch["label_url"] = info.LabelURL
		}
		patch["tracking_pushed"] = true
	}

	rank := model.StatusRank(existing.Status)
	if rank >= 0 && rank <= model.StatusRank(model.StatusPendingFulfillment) {
		patch["status"] = model.StatusLabelsGenerated
	}
}

// syncItems 同步订单项，设计稿字段由仓库保护不被覆盖
func (s *SyncService) syncItems(ctx context.Context, orderID int64, snap *marketplace.OrderSnapshot) error {
	for _, li := range snap.Items {
		item := &model.OrderItem{
			OrderID:        orderID,
			Platform:       snap.Platform,
			ExternalItemID: li.ExternalItemID,
			Title:          li.Title,
			SKU:            li.SKU,
			Quantity:       li.Quantity,
		}
		if len(li.Variations) > 0 {
			variations := make(datatypes.JSONMap, len(li.Variations))
			for k, v := range li.Variations {
				variations[k] = v
			}
			item.Variations = variations
		}
		if err := s.orderRepo.UpsertItem(ctx, item); err != nil {
			return fmt.Errorf("同步订单项 %s 失败: %w", li.ExternalItemID, err)
		}
	}
	return nil
}

// ==================== 审计日志 ====================

// writeSyncLog 每轮写一条审计日志，只追加
func (s *SyncService) writeSyncLog(ctx context.Context, store *model.Store, startedAt time.Time, result *dto.SyncResult, status string, passErr error) {
	entry := &model.SyncLogEntry{
		PassID:        result.PassID,
		StoreID:       store.ID,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Fetched:       result.Fetched,
		Imported:      result.Imported,
		Skipped:       result.Skipped,
		NewOrders:     result.NewOrders,
		UpdatedOrders: result.UpdatedOrders,
		Status:        status,
		ErrorDetail:   summarizeErrors(result.Errors, passErr),
	}

	if err := s.syncLogRepo.Create(ctx, entry); err != nil {
		s.logger.Error("写入同步日志失败", zap.Int64("store_id", store.ID), zap.Error(err))
	}
}

// summarizeErrors 错误摘要：截断后的列表，供运维排查
func summarizeErrors(orderErrs []dto.SyncOrderError, passErr error) string {
	var parts []string
	if passErr != nil {
		parts = append(parts, passErr.Error())
	}
	for i, e := range orderErrs {
		if i >= maxLoggedErrors {
			parts = append(parts, fmt.Sprintf("... 以及另外 %d 个错误", len(orderErrs)-maxLoggedErrors))
			break
		}
		parts = append(parts, fmt.Sprintf("订单 %s: %s", e.ExternalOrderID, e.Message))
	}

	detail := strings.Join(parts, "; ")
	if len(detail) > maxErrorDetailLen {
		detail = detail[:maxErrorDetailLen]
	}
	return detail
}
