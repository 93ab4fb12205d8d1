package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
	"fulfill_dev_v1_202608/pkg/apperr"
	"fulfill_dev_v1_202608/pkg/marketplace"
)

// ==================== 假适配器 ====================

// fakeAdapter 受控的平台适配器，按预置快照分页返回
type fakeAdapter struct {
	platform  model.Platform
	snapshots []marketplace.OrderSnapshot
	listErr   error
	listCalls int
}

func (f *fakeAdapter) Platform() model.Platform {
	return f.platform
}

func (f *fakeAdapter) ListOrders(_ context.Context, _ marketplace.Credentials, _ time.Time, limit, offset int) ([]marketplace.OrderSnapshot, int, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	total := len(f.snapshots)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return f.snapshots[offset:end], total, nil
}

func (f *fakeAdapter) GetFulfillments(_ context.Context, _ marketplace.Credentials, externalOrderID string) ([]marketplace.FulfillmentRecord, error) {
	for i := range f.snapshots {
		if f.snapshots[i].ExternalOrderID == externalOrderID {
			return f.snapshots[i].Fulfillments, nil
		}
	}
	return nil, nil
}

func (f *fakeAdapter) PushTracking(_ context.Context, _ marketplace.Credentials, _, _, _ string) error {
	return nil
}

// ==================== 测试装配 ====================

type syncFixture struct {
	db      *gorm.DB
	store   *model.Store
	adapter *fakeAdapter
	svc     *SyncService

	orderRepo   repository.OrderRepository
	storeRepo   repository.StoreRepository
	syncLogRepo repository.SyncLogRepository
}

func setupSyncFixture(t *testing.T) *syncFixture {
	db := setupServiceTestDB(t)

	store := &model.Store{
		Platform:       model.PlatformEtsy,
		Name:           "测试店铺",
		ExternalShopID: 10001,
		AccessToken:    "token",
		Status:         model.StoreStatusActive,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("准备店铺失败: %v", err)
	}

	adapter := &fakeAdapter{platform: model.PlatformEtsy}
	orderRepo := repository.NewOrderRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)
	resolver := newTestResolver(t, db)

	svc := NewSyncService(orderRepo, storeRepo, syncLogRepo,
		map[model.Platform]marketplace.Adapter{model.PlatformEtsy: adapter},
		resolver, zap.NewNop())

	return &syncFixture{
		db: db, store: store, adapter: adapter, svc: svc,
		orderRepo: orderRepo, storeRepo: storeRepo, syncLogRepo: syncLogRepo,
	}
}

func plainSnapshot(id string) marketplace.OrderSnapshot {
	return marketplace.OrderSnapshot{
		Platform:        model.PlatformEtsy,
		ExternalOrderID: id,
		OrderNumber:     "E-" + id,
		CustomerName:    "Alice",
		ReceiptAddress: &marketplace.Address{
			Name: "Alice", FirstLine: "1 Main St", City: "Boston",
			PostalCode: "02101", CountryCode: "US",
		},
		Items: []marketplace.LineItem{
			{ExternalItemID: id + "-1", Title: "Plain Mug", SKU: "MUG-PLAIN", Quantity: 1},
		},
	}
}

// ==================== 首轮入库 ====================

func TestSynchronize_ImportsNewOrders(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.db.Create(&model.ProductConfiguration{SKU: "MUG-PLAIN", PersonalizationType: model.PersonalizationNone})
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001"), plainSnapshot("1002")}

	result, err := fx.svc.Synchronize(context.Background(), fx.store)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	if result.Fetched != 2 || result.Imported != 2 || result.NewOrders != 2 {
		t.Errorf("期望拉取 2 入库 2 新增 2，实际 %+v", result)
	}
	if result.Imported != result.NewOrders+result.UpdatedOrders {
		t.Error("Imported 应等于新增与更新之和")
	}

	order, err := fx.orderRepo.FindByExternalID(context.Background(), model.PlatformEtsy, "1001")
	if err != nil || order == nil {
		t.Fatalf("入库订单查询失败: %v", err)
	}
	if order.Status != model.StatusReadyForDesign {
		t.Errorf("无需定制的商品应判定可设计，实际 %s", order.Status)
	}
	if order.GetShippingAddressField("city") != "Boston" {
		t.Error("收货地址应落库")
	}

	items, _ := fx.orderRepo.GetItemsByOrderID(context.Background(), order.ID)
	if len(items) != 1 {
		t.Errorf("订单项应入库，实际 %d 条", len(items))
	}
}

// ==================== 幂等重放 ====================

func TestSynchronize_ReplayIsIdempotent(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001")}

	ctx := context.Background()
	if _, err := fx.svc.Synchronize(ctx, fx.store); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	// 同一快照重放：不得新增，计为跳过
	result, err := fx.svc.Synchronize(ctx, fx.store)
	if err != nil {
		t.Fatalf("重放同步失败: %v", err)
	}
	if result.NewOrders != 0 {
		t.Errorf("重放不应新增订单，实际 %d", result.NewOrders)
	}
	if result.Skipped != 1 {
		t.Errorf("无变化快照应计为跳过，实际 %d", result.Skipped)
	}

	var count int64
	fx.db.Model(&model.Order{}).Count(&count)
	if count != 1 {
		t.Errorf("账本应只有一条订单，实际 %d", count)
	}

	// 审计日志只追加：两轮各一条
	var logCount int64
	fx.db.Model(&model.SyncLogEntry{}).Count(&logCount)
	if logCount != 2 {
		t.Errorf("两轮同步应各写一条审计日志，实际 %d", logCount)
	}
}

// ==================== 订单项层面的更新 ====================

func TestSynchronize_ItemVariationChangePersistsWhenPatchEmpty(t *testing.T) {
	fx := setupSyncFixture(t)
	snap := plainSnapshot("1001")
	fx.adapter.snapshots = []marketplace.OrderSnapshot{snap}

	ctx := context.Background()
	if _, err := fx.svc.Synchronize(ctx, fx.store); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	// 买家事后补填定制文本：订单级字段没有任何变化，变化只在订单项的变体里
	snap.Items[0].Variations = map[string]string{"Personalization": "Bella the dog"}
	fx.adapter.snapshots = []marketplace.OrderSnapshot{snap}

	result, err := fx.svc.Synchronize(ctx, fx.store)
	if err != nil {
		t.Fatalf("重放同步失败: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("订单级补丁为空应计为跳过，实际 %+v", result)
	}

	order, _ := fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	items, _ := fx.orderRepo.GetItemsByOrderID(ctx, order.ID)
	if len(items) != 1 {
		t.Fatalf("期望 1 条订单项，实际 %d 条", len(items))
	}
	if items[0].PersonalizationValue() != "Bella the dog" {
		t.Errorf("订单项变体更新应落库，实际 %q", items[0].PersonalizationValue())
	}
}

// ==================== 非破坏性更新 ====================

func TestSynchronize_PatchDoesNotClobberLocalEdits(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001")}

	ctx := context.Background()
	if _, err := fx.svc.Synchronize(ctx, fx.store); err != nil {
		t.Fatalf("首轮同步失败: %v", err)
	}

	order, _ := fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	// 本地人工推进状态并加了备注
	fx.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"status":         model.StatusDesignComplete,
		"internal_notes": "客户确认了字体",
	})

	// 上游修正了买家姓名，其余照旧
	fx.adapter.snapshots[0].CustomerName = "Alice Smith"
	if _, err := fx.svc.Synchronize(ctx, fx.store); err != nil {
		t.Fatalf("二次同步失败: %v", err)
	}

	order, _ = fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	if order.CustomerName != "Alice Smith" {
		t.Error("上游修正的姓名应合并进来")
	}
	if order.Status != model.StatusDesignComplete {
		t.Errorf("本地推进的状态不应被同步回退，实际 %s", order.Status)
	}
	if order.InternalNotes != "客户确认了字体" {
		t.Error("本地备注不应被同步覆盖")
	}
}

// ==================== SKU 补回后的状态重判 ====================

func TestSynchronize_SKUBackfillReResolves(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.db.Create(&model.ProductConfiguration{SKU: "MUG-PLAIN", PersonalizationType: model.PersonalizationNone})

	// 首轮快照缺 SKU
	snap := plainSnapshot("1001")
	snap.Items[0].SKU = ""
	fx.adapter.snapshots = []marketplace.OrderSnapshot{snap}

	ctx := context.Background()
	fx.svc.Synchronize(ctx, fx.store)

	order, _ := fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	if order.Status != model.StatusPendingEnrichment {
		t.Fatalf("缺 SKU 的订单应停在待补充，实际 %s", order.Status)
	}

	// 上游补回 SKU 后重新同步
	fx.adapter.snapshots[0].Items[0].SKU = "MUG-PLAIN"
	fx.svc.Synchronize(ctx, fx.store)

	order, _ = fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	if order.ProductSKU != "MUG-PLAIN" {
		t.Error("SKU 应补回")
	}
	if order.Status != model.StatusReadyForDesign {
		t.Errorf("SKU 补回后应重判为可设计，实际 %s", order.Status)
	}
}

// ==================== 上游已发货 ====================

func TestSynchronize_UpstreamShippedAdvancesStatus(t *testing.T) {
	fx := setupSyncFixture(t)

	snap := plainSnapshot("1001")
	snap.IsShipped = true
	snap.Fulfillments = []marketplace.FulfillmentRecord{
		{ExternalID: "f-0", Cancelled: true, TrackingNumber: "CANCELLED-TN"},
		{ExternalID: "f-1", TrackingNumber: "TN-123", Carrier: "usps"},
	}
	fx.adapter.snapshots = []marketplace.OrderSnapshot{snap}

	ctx := context.Background()
	fx.svc.Synchronize(ctx, fx.store)

	order, _ := fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	if order.Status != model.StatusLabelsGenerated {
		t.Errorf("上游已发货的新订单应落到已出面单，实际 %s", order.Status)
	}
	if order.TrackingNumber != "TN-123" {
		t.Errorf("应跳过已取消记录取首个有效面单号，实际 %q", order.TrackingNumber)
	}
	if !order.TrackingPushed {
		t.Error("面单来自平台，应视为已回传")
	}
}

func TestSynchronize_ShippedNeverOverwritesLocalTracking(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001")}

	ctx := context.Background()
	fx.svc.Synchronize(ctx, fx.store)

	order, _ := fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	// 本地已出过面单并进入运输中
	fx.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
		"status":          model.StatusInTransit,
		"tracking_number": "LOCAL-TN",
		"carrier":         "dhl",
	})

	fx.adapter.snapshots[0].IsShipped = true
	fx.adapter.snapshots[0].Fulfillments = []marketplace.FulfillmentRecord{
		{ExternalID: "f-1", TrackingNumber: "UPSTREAM-TN", Carrier: "usps"},
	}
	fx.svc.Synchronize(ctx, fx.store)

	order, _ = fx.orderRepo.FindByExternalID(ctx, model.PlatformEtsy, "1001")
	if order.TrackingNumber != "LOCAL-TN" {
		t.Errorf("本地已有面单号不得被上游覆盖，实际 %q", order.TrackingNumber)
	}
	if order.Status != model.StatusInTransit {
		t.Errorf("运输中的订单不应被拉回已出面单，实际 %s", order.Status)
	}
}

// ==================== 水位线 ====================

func TestSynchronize_AdvancesWatermarkToPassStart(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001")}

	before := time.Now()
	if _, err := fx.svc.Synchronize(context.Background(), fx.store); err != nil {
		t.Fatalf("同步失败: %v", err)
	}
	after := time.Now()

	store, _ := fx.storeRepo.GetByID(context.Background(), fx.store.ID)
	if store.LastSyncAt == nil {
		t.Fatal("水位线应被推进")
	}
	if store.LastSyncAt.Before(before.Add(-time.Second)) || store.LastSyncAt.After(after) {
		t.Errorf("水位线应落在本轮开始时刻附近，实际 %v", store.LastSyncAt)
	}
}

func TestSynchronize_ListFailureKeepsWatermark(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.listErr = apperr.NewUpstreamError("etsy", "getReceipts", 500, errors.New("boom"))

	_, err := fx.svc.Synchronize(context.Background(), fx.store)
	if err == nil {
		t.Fatal("列表调用失败应中止整轮并返回错误")
	}

	store, _ := fx.storeRepo.GetByID(context.Background(), fx.store.ID)
	if store.LastSyncAt != nil {
		t.Error("整轮失败时水位线不得推进")
	}

	// 审计日志记一条 failed
	entries, _ := fx.syncLogRepo.ListByStore(context.Background(), fx.store.ID, 10)
	if len(entries) != 1 || entries[0].Status != model.SyncLogStatusFailed {
		t.Errorf("应写入一条 failed 审计日志，实际 %+v", entries)
	}
}

// ==================== 审计日志 ====================

func TestSynchronize_WritesSyncLog(t *testing.T) {
	fx := setupSyncFixture(t)
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001"), plainSnapshot("1002")}

	ctx := context.Background()
	result, err := fx.svc.Synchronize(ctx, fx.store)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}

	entries, err := fx.syncLogRepo.ListByStore(ctx, fx.store.ID, 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("应写入一条审计日志，实际 %d 条", len(entries))
	}

	entry := entries[0]
	if entry.PassID != result.PassID {
		t.Error("审计日志应携带本轮 PassID")
	}
	if entry.Status != model.SyncLogStatusSuccess {
		t.Errorf("无错误轮次应记 success，实际 %s", entry.Status)
	}
	if entry.Fetched != 2 || entry.Imported != 2 || entry.NewOrders != 2 {
		t.Errorf("审计计数与结果不一致: %+v", entry)
	}
	if entry.FinishedAt.Before(entry.StartedAt) {
		t.Error("结束时间不应早于开始时间")
	}
}

// ==================== 分页 ====================

func TestSynchronize_WalksAllPages(t *testing.T) {
	fx := setupSyncFixture(t)
	// 超过一页的量
	for i := 0; i < 250; i++ {
		fx.adapter.snapshots = append(fx.adapter.snapshots, plainSnapshot("ORD-"+itoa(i)))
	}

	result, err := fx.svc.Synchronize(context.Background(), fx.store)
	if err != nil {
		t.Fatalf("同步失败: %v", err)
	}
	if result.Fetched != 250 {
		t.Errorf("应拉完全部 250 条，实际 %d", result.Fetched)
	}
	if fx.adapter.listCalls < 3 {
		t.Errorf("250 条按每页 100 至少翻 3 页，实际 %d 次", fx.adapter.listCalls)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	return string(buf)
}

// ==================== 全店铺编排 ====================

func TestSyncAll_IsolatesStoreFailures(t *testing.T) {
	fx := setupSyncFixture(t)

	// 第二家店铺挂在一个总是 401 的平台上
	badStore := &model.Store{
		Platform:       model.PlatformShopify,
		Name:           "失效店铺",
		ExternalShopID: 20001,
		Status:         model.StoreStatusActive,
	}
	fx.db.Create(badStore)

	badAdapter := &fakeAdapter{
		platform: model.PlatformShopify,
		listErr:  apperr.NewUpstreamError("shopify", "ordersSince", 401, errors.New("invalid token")),
	}
	fx.adapter.snapshots = []marketplace.OrderSnapshot{plainSnapshot("1001")}

	svc := NewSyncService(fx.orderRepo, fx.storeRepo, fx.syncLogRepo,
		map[model.Platform]marketplace.Adapter{
			model.PlatformEtsy:    fx.adapter,
			model.PlatformShopify: badAdapter,
		},
		newTestResolver(t, fx.db), zap.NewNop())

	result, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("编排不应因单店铺失败而失败: %v", err)
	}
	if len(result.Stores) != 2 {
		t.Fatalf("应覆盖两家店铺，实际 %d", len(result.Stores))
	}

	for _, outcome := range result.Stores {
		switch outcome.StoreID {
		case fx.store.ID:
			if outcome.Error != "" || outcome.Result == nil || outcome.Result.NewOrders != 1 {
				t.Errorf("正常店铺应同步成功: %+v", outcome)
			}
		case badStore.ID:
			if outcome.Error == "" {
				t.Error("失效店铺应记录错误")
			}
			if !outcome.NeedsReauth {
				t.Error("401 失败应标记需要重新授权")
			}
		}
	}
}
