package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
)

// 平台在买家留空定制栏时下发的占位文本，大小写不限
// Etsy 的原文是 "Not requested on this item."
const notRequestedPhrase = "not requested"

// personalizationKey 定制文本所在的变体键
const personalizationKey = "Personalization"

// ==================== StatusResolver 初始状态解析器 ====================

// StatusResolver 初始状态解析器
// 永不报错：目录缺失、查询失败一律落到保守默认值 pending_enrichment
type StatusResolver struct {
	configRepo repository.ProductConfigRepository
	logger     *zap.Logger
}

// NewStatusResolver 创建状态解析器
func NewStatusResolver(configRepo repository.ProductConfigRepository, logger *zap.Logger) *StatusResolver {
	return &StatusResolver{configRepo: configRepo, logger: logger}
}

// Resolve 按商品配置与定制数据解析初始履约状态
// 新订单入库时调用一次；目录变更后的批量重推也走这里
func (r *StatusResolver) Resolve(ctx context.Context, sku string, variations map[string]string) model.OrderStatus {
	if sku == "" {
		return model.StatusPendingEnrichment
	}

	cfg, err := r.configRepo.GetBySKU(ctx, sku)
	if err != nil {
		r.logger.Warn("商品配置查询失败，按待补充处理",
			zap.String("sku", sku), zap.Error(err))
		return model.StatusPendingEnrichment
	}

	return resolveWithConfig(cfg, variations)
}

// resolveWithConfig 纯函数核心，无副作用
func resolveWithConfig(cfg *model.ProductConfiguration, variations map[string]string) model.OrderStatus {
	if cfg == nil {
		return model.StatusPendingEnrichment
	}

	if cfg.PersonalizationType == model.PersonalizationNone {
		return model.StatusReadyForDesign
	}

	if cfg.PersonalizationType == model.PersonalizationNotes && personalizationPresent(variations) {
		return model.StatusReadyForDesign
	}

	// image / both / notes 但买家未填写，都需人工补充素材
	return model.StatusPendingEnrichment
}

// personalizationPresent 定制文本是否真实存在
// 去掉首尾空白后非空，且不是平台的"未填写"占位文本
func personalizationPresent(variations map[string]string) bool {
	v, ok := variations[personalizationKey]
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return !strings.Contains(strings.ToLower(v), notRequestedPhrase)
}
