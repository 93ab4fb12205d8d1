package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/pkg/marketplace"
)

// ==================== 发货信息提取 ====================

// TrackingInfo 从上游发货记录提取出的物流信息
type TrackingInfo struct {
	TrackingNumber string
	Carrier        string
	LabelURL       string
}

// ExtractTracking 从上游发货记录提取面单信息
// 跳过已取消的记录，按列出顺序取首个携带面单号的——多发货订单极少，
// 靠后的记录通常是卖家已自行核对过的手工修正
func ExtractTracking(records []marketplace.FulfillmentRecord) *TrackingInfo {
	for i := range records {
		rec := &records[i]
		if rec.Cancelled {
			continue
		}
		if rec.TrackingNumber == "" {
			continue
		}
		return &TrackingInfo{
			TrackingNumber: rec.TrackingNumber,
			Carrier:        rec.Carrier,
			LabelURL:       rec.LabelURL,
		}
	}
	return nil
}

// ==================== TrackingService 物流同步服务 ====================

// TrackingService 面单回传与到货推进
type TrackingService struct {
	orderRepo repository.OrderRepository
	storeRepo repository.StoreRepository
	adapters  map[model.Platform]marketplace.Adapter
	logger    *zap.Logger
}

// NewTrackingService 创建物流同步服务
func NewTrackingService(
	orderRepo repository.OrderRepository,
	storeRepo repository.StoreRepository,
	adapters map[model.Platform]marketplace.Adapter,
	logger *zap.Logger,
) *TrackingService {
	return &TrackingService{
		orderRepo: orderRepo,
		storeRepo: storeRepo,
		adapters:  adapters,
		logger:    logger,
	}
}

// PushTracking 把本地面单号回传到订单来源平台
func (s *TrackingService) PushTracking(ctx context.Context, orderID int64) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("订单不存在: %w", err)
	}

	if order.TrackingNumber == "" {
		return fmt.Errorf("订单 %d 尚无面单号", orderID)
	}
	if order.TrackingPushed {
		return nil // 已回传
	}

	store, err := s.storeRepo.GetByID(ctx, order.StoreID)
	if err != nil {
		return fmt.Errorf("获取店铺信息失败: %w", err)
	}

	adapter, ok := s.adapters[order.Platform]
	if !ok {
		return fmt.Errorf("平台 %s 无适配器", order.Platform)
	}

	creds := storeCredentials(store)
	if err := adapter.PushTracking(ctx, creds, order.ExternalOrderID, order.TrackingNumber, order.Carrier); err != nil {
		return err
	}

	now := time.Now()
	return s.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"tracking_pushed":    true,
		"tracking_pushed_at": &now,
	})
}

// storeCredentials 把店铺凭证展开成显式参数
func storeCredentials(store *model.Store) marketplace.Credentials {
	return marketplace.Credentials{
		APIKey:         store.APIKey,
		AccessToken:    store.AccessToken,
		ExternalShopID: store.ExternalShopID,
		ShopDomain:     store.ShopDomain,
	}
}
