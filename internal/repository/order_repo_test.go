package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fulfill_dev_v1_202608/internal/model"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Order{}, &model.OrderItem{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// ==================== 幂等键测试 ====================

func TestOrderRepo_UniqueExternalID(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	first := &model.Order{Platform: model.PlatformEtsy, ExternalOrderID: "1001", StoreID: 1}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("首次插入失败: %v", err)
	}

	// 同平台同外部单号撞唯一索引
	dup := &model.Order{Platform: model.PlatformEtsy, ExternalOrderID: "1001", StoreID: 1}
	err := repo.Create(ctx, dup)
	if err == nil {
		t.Fatal("重复幂等键应报错")
	}
	if !IsDuplicateKey(err) {
		t.Errorf("应识别为唯一索引冲突: %v", err)
	}

	// 不同平台的同一单号可以共存
	other := &model.Order{Platform: model.PlatformShopify, ExternalOrderID: "1001", StoreID: 2}
	if err := repo.Create(ctx, other); err != nil {
		t.Errorf("不同平台的同号订单应允许: %v", err)
	}
}

func TestOrderRepo_FindByExternalID_Absent(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewOrderRepository(db)

	order, err := repo.FindByExternalID(context.Background(), model.PlatformEtsy, "nope")
	if err != nil {
		t.Fatalf("未找到不应报错: %v", err)
	}
	if order != nil {
		t.Error("未找到应返回 nil")
	}
}

// ==================== 订单项 upsert 测试 ====================

func TestOrderRepo_UpsertItemPreservesDesign(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	item := &model.OrderItem{
		OrderID: 1, Platform: model.PlatformEtsy, ExternalItemID: "i-1",
		Title: "Mug", Quantity: 1,
	}
	if err := repo.UpsertItem(ctx, item); err != nil {
		t.Fatalf("插入订单项失败: %v", err)
	}

	// 工作流挂了设计稿
	now := time.Now()
	repo.UpdateItemFields(ctx, item.ID, map[string]interface{}{
		"design_file_url":    "https://cdn.example.com/a.png",
		"design_uploaded_at": &now,
	})

	// 同步重放同一订单项，标题有更新
	replay := &model.OrderItem{
		OrderID: 1, Platform: model.PlatformEtsy, ExternalItemID: "i-1",
		Title: "Custom Mug", Quantity: 2,
	}
	if err := repo.UpsertItem(ctx, replay); err != nil {
		t.Fatalf("重放订单项失败: %v", err)
	}

	items, _ := repo.GetItemsByOrderID(ctx, 1)
	if len(items) != 1 {
		t.Fatalf("订单项不应重复，实际 %d 条", len(items))
	}
	if items[0].Title != "Custom Mug" || items[0].Quantity != 2 {
		t.Error("商品字段应随同步更新")
	}
	if items[0].DesignFileURL != "https://cdn.example.com/a.png" {
		t.Error("设计稿字段不得被同步覆盖")
	}
}

// ==================== 统计与任务查询 ====================

func TestOrderRepo_CountByStatus(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	for i, status := range []model.OrderStatus{
		model.StatusReadyForDesign, model.StatusReadyForDesign, model.StatusInTransit,
	} {
		repo.Create(ctx, &model.Order{
			Platform: model.PlatformEtsy, ExternalOrderID: "s-" + string(rune('a'+i)),
			StoreID: 1, Status: status,
		})
	}

	stats, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats[model.StatusReadyForDesign] != 2 || stats[model.StatusInTransit] != 1 {
		t.Errorf("统计结果不对: %v", stats)
	}
}

func TestOrderRepo_ListPendingTrackingPush(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	repo.Create(ctx, &model.Order{
		Platform: model.PlatformEtsy, ExternalOrderID: "p-1", StoreID: 1,
		TrackingNumber: "TN-1", TrackingPushed: false,
	})
	repo.Create(ctx, &model.Order{
		Platform: model.PlatformEtsy, ExternalOrderID: "p-2", StoreID: 1,
		TrackingNumber: "TN-2", TrackingPushed: true,
	})
	repo.Create(ctx, &model.Order{
		Platform: model.PlatformEtsy, ExternalOrderID: "p-3", StoreID: 1,
	})

	orders, err := repo.ListPendingTrackingPush(ctx, 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(orders) != 1 || orders[0].ExternalOrderID != "p-1" {
		t.Errorf("应只返回有面单且未回传的订单: %+v", orders)
	}
}
