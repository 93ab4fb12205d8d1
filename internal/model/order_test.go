package model

import "testing"

// ==================== 状态机测试 ====================

func TestCanTransition_ForwardChain(t *testing.T) {
	chain := []OrderStatus{
		StatusPendingEnrichment,
		StatusReadyForDesign,
		StatusDesignComplete,
		StatusPendingFulfillment,
		StatusLabelsGenerated,
		StatusLoadedForShipment,
		StatusInTransit,
		StatusDelivered,
	}

	for i := 0; i < len(chain)-1; i++ {
		if !CanTransition(chain[i], chain[i+1]) {
			t.Errorf("正向链路 %s -> %s 应当允许", chain[i], chain[i+1])
		}
	}
}

func TestCanTransition_SkippingForbidden(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
	}{
		{StatusPendingEnrichment, StatusDesignComplete},
		{StatusReadyForDesign, StatusPendingFulfillment},
		{StatusDesignComplete, StatusLabelsGenerated},
		{StatusPendingFulfillment, StatusDelivered},
		{StatusLabelsGenerated, StatusDelivered},
	}
	for _, c := range cases {
		if CanTransition(c.from, c.to) {
			t.Errorf("跳级转移 %s -> %s 应当拒绝", c.from, c.to)
		}
	}
}

func TestCanTransition_LabelsCanSkipLoading(t *testing.T) {
	// 已出面单可以不经装车直接进入运输中（承运商先扫描的场景）
	if !CanTransition(StatusLabelsGenerated, StatusInTransit) {
		t.Error("labels_generated -> in_transit 应当允许")
	}
}

func TestCanTransition_RevisionEdges(t *testing.T) {
	if !CanTransition(StatusDesignComplete, StatusReadyForDesign) {
		t.Error("design_complete -> ready_for_design 改稿回退应当允许")
	}
	if !CanTransition(StatusPendingFulfillment, StatusReadyForDesign) {
		t.Error("pending_fulfillment -> ready_for_design 改稿回退应当允许")
	}
	// 出面单之后不允许再回退改稿
	if CanTransition(StatusLabelsGenerated, StatusReadyForDesign) {
		t.Error("labels_generated -> ready_for_design 应当拒绝")
	}
}

func TestCanTransition_NeedsReview(t *testing.T) {
	forward := []OrderStatus{
		StatusPendingEnrichment, StatusReadyForDesign, StatusDesignComplete,
		StatusPendingFulfillment, StatusLabelsGenerated, StatusLoadedForShipment,
		StatusInTransit,
	}
	for _, from := range forward {
		if !CanTransition(from, StatusNeedsReview) {
			t.Errorf("%s -> needs_review 应当允许", from)
		}
		if !CanTransition(StatusNeedsReview, from) {
			t.Errorf("needs_review -> %s 恢复应当允许", from)
		}
	}

	// 已签收是终态，不再进入复核
	if CanTransition(StatusDelivered, StatusNeedsReview) {
		t.Error("delivered -> needs_review 应当拒绝")
	}
}

func TestCanTransition_DeliveredIsTerminal(t *testing.T) {
	all := []OrderStatus{
		StatusPendingEnrichment, StatusReadyForDesign, StatusDesignComplete,
		StatusPendingFulfillment, StatusLabelsGenerated, StatusLoadedForShipment,
		StatusInTransit, StatusNeedsReview,
	}
	for _, to := range all {
		if CanTransition(StatusDelivered, to) {
			t.Errorf("delivered -> %s 应当拒绝", to)
		}
	}
}

func TestStatusRank(t *testing.T) {
	if StatusRank(StatusPendingEnrichment) != 0 {
		t.Error("pending_enrichment 序号应为 0")
	}
	if StatusRank(StatusDelivered) != 7 {
		t.Error("delivered 序号应为 7")
	}
	if StatusRank(StatusNeedsReview) != -1 {
		t.Error("needs_review 不在正向链路上，序号应为 -1")
	}
	if StatusRank(OrderStatus("unknown")) != -1 {
		t.Error("未知状态序号应为 -1")
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	if !StatusNeedsReview.IsValid() {
		t.Error("needs_review 应为合法状态")
	}
	if OrderStatus("shipped").IsValid() {
		t.Error("未定义状态应判定非法")
	}
}

// ==================== Order 辅助方法测试 ====================

func TestOrder_AllItemsDesigned(t *testing.T) {
	order := &Order{}
	if order.AllItemsDesigned() {
		t.Error("无订单项时不应判定齐稿")
	}

	order.Items = []OrderItem{
		{DesignFileURL: "https://cdn.example.com/a.png"},
		{DesignFileURL: ""},
	}
	if order.AllItemsDesigned() {
		t.Error("存在未上传设计稿的订单项时不应判定齐稿")
	}

	order.Items[1].DesignFileURL = "https://cdn.example.com/b.png"
	if !order.AllItemsDesigned() {
		t.Error("全部订单项有设计稿时应判定齐稿")
	}
}

func TestOrderItem_PersonalizationValue(t *testing.T) {
	item := &OrderItem{}
	if item.PersonalizationValue() != "" {
		t.Error("无变体时定制文本应为空")
	}

	item.Variations = map[string]interface{}{"Personalization": "To Dad, love Emma"}
	if item.PersonalizationValue() != "To Dad, love Emma" {
		t.Error("应读取 Personalization 变体值")
	}
}
