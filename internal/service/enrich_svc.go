package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/pkg/apperr"
)

// ==================== EnrichmentService 定制信息补充 ====================

// Enrichment 外部来源的补充信息
// 买家留言、客服沟通等渠道拿到的定制内容，字段为空表示不提供
type Enrichment struct {
	ProductSKU      string
	CustomerEmail   string
	Personalization string
}

// EnrichmentService 定制信息补充服务
// 与同步引擎同样的合并纪律：只填空白，不覆盖已有值，
// 补充成功后对仍在待补充状态的订单重新解析一次
type EnrichmentService struct {
	orderRepo repository.OrderRepository
	resolver  *StatusResolver
	logger    *zap.Logger
}

// NewEnrichmentService 创建补充服务
func NewEnrichmentService(orderRepo repository.OrderRepository, resolver *StatusResolver, logger *zap.Logger) *EnrichmentService {
	return &EnrichmentService{
		orderRepo: orderRepo,
		resolver:  resolver,
		logger:    logger,
	}
}

// Apply 应用一次补充
func (s *EnrichmentService) Apply(ctx context.Context, orderID int64, in *Enrichment) (*model.Order, error) {
	order, err := s.orderRepo.GetByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.ErrNotFound{Resource: "订单", ID: strconv.FormatInt(orderID, 10)}
		}
		return nil, err
	}

	patch := map[string]interface{}{}
	if order.ProductSKU == "" && strings.TrimSpace(in.ProductSKU) != "" {
		patch["product_sku"] = strings.TrimSpace(in.ProductSKU)
	}
	if order.CustomerEmail == "" && strings.TrimSpace(in.CustomerEmail) != "" {
		patch["customer_email"] = strings.TrimSpace(in.CustomerEmail)
	}

	// 定制文本落到首个订单项的变体里，已有内容不动
	personalization := strings.TrimSpace(in.Personalization)
	if personalization != "" && len(order.Items) > 0 {
		item := &order.Items[0]
		if item.PersonalizationValue() == "" {
			variations := item.Variations
			if variations == nil {
				variations = datatypes.JSONMap{}
			}
			variations["Personalization"] = personalization
			if err := s.orderRepo.UpdateItemFields(ctx, item.ID, map[string]interface{}{
				"variations": variations,
			}); err != nil {
				return nil, fmt.Errorf("写入定制文本失败: %w", err)
			}
		}
	}

	// 补充后重判初始状态
	if order.Status == model.StatusPendingEnrichment {
		sku := order.ProductSKU
		if v, ok := patch["product_sku"].(string); ok {
			sku = v
		}
		var variations map[string]string
		if item := s.firstItemVariations(ctx, order); item != nil {
			variations = item
		}
		if resolved := s.resolver.Resolve(ctx, sku, variations); resolved != order.Status {
			patch["status"] = resolved
		}
	}

	if len(patch) > 0 {
		if err := s.orderRepo.UpdateFields(ctx, order.ID, patch); err != nil {
			return nil, fmt.Errorf("应用补充失败: %w", err)
		}
		s.logger.Info("订单补充完成", zap.Int64("order_id", order.ID), zap.Int("fields", len(patch)))
	}

	return s.orderRepo.GetByIDWithItems(ctx, order.ID)
}

// firstItemVariations 重新读首个订单项的变体，补充可能刚写入
func (s *EnrichmentService) firstItemVariations(ctx context.Context, order *model.Order) map[string]string {
	items, err := s.orderRepo.GetItemsByOrderID(ctx, order.ID)
	if err != nil || len(items) == 0 || items[0].Variations == nil {
		return nil
	}
	variations := make(map[string]string, len(items[0].Variations))
	for k, v := range items[0].Variations {
		if sv, ok := v.(string); ok {
			variations[k] = sv
		}
	}
	return variations
}
