package service

import (
	"gorm.io/datatypes"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/pkg/marketplace"
)

// ==================== 非破坏性字段合并 ====================

// buildPatch 计算已存在订单与新快照之间的字段级补丁
// 原则：上游的空值永远不覆盖本地已有值；手工修正的字段不回退
func buildPatch(existing *model.Order, snap *marketplace.OrderSnapshot) map[string]interface{} {
	patch := map[string]interface{}{}

	setIfUpgrade(patch, "order_number", existing.OrderNumber, snap.OrderNumber)
	setIfUpgrade(patch, "customer_name", existing.CustomerName, snap.CustomerName)
	setIfUpgrade(patch, "customer_email", existing.CustomerEmail, snap.CustomerEmail)

	// 商品字段取首个订单项
	if item := snap.FirstItem(); item != nil {
		setIfUpgrade(patch, "product_sku", existing.ProductSKU, item.SKU)
		if item.Quantity > 0 && existing.Quantity != item.Quantity {
			patch["quantity"] = item.Quantity
		}
	}

	// 地址逐字段合并，允许上游只修正其中一项
	if merged, changed := mergeAddress(existing.ShippingAddress, preferredAddress(snap)); changed {
		patch["shipping_address"] = merged
	}

	if snap.UpdatedAt != nil &&
		(existing.ExternalUpdatedAt == nil || snap.UpdatedAt.After(*existing.ExternalUpdatedAt)) {
		patch["external_updated_at"] = snap.UpdatedAt
	}

	return patch
}

// setIfUpgrade 仅当入参非空且与现值不同才写入补丁
func setIfUpgrade(patch map[string]interface{}, column, oldVal, newVal string) {
	if newVal == "" {
		return
	}
	if newVal == oldVal {
		return
	}
	patch[column] = newVal
}

// preferredAddress 发货级地址优先于下单级地址
// 发货地址更接近履约时刻，卖家的手工修正大多体现在那里
func preferredAddress(snap *marketplace.OrderSnapshot) *marketplace.Address {
	if addr := snap.ShipmentAddress(); addr != nil {
		return addr
	}
	return snap.ReceiptAddress
}

// mergeAddress 地址逐字段合并
// 入参空字段不动本地值；返回值 changed 标记是否有实际变化
func mergeAddress(current datatypes.JSONMap, incoming *marketplace.Address) (datatypes.JSONMap, bool) {
	if incoming == nil {
		return current, false
	}

	merged := datatypes.JSONMap{}
	for k, v := range current {
		merged[k] = v
	}

	changed := false
	for k, v := range incoming.ToMap() {
		s, _ := v.(string)
		if s == "" {
			continue
		}
		if cur, ok := merged[k]; ok {
			if curStr, ok := cur.(string); ok && curStr == s {
				continue
			}
		}
		merged[k] = s
		changed = true
	}

	return merged, changed
}
