package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fulfill_dev_v1_202608/internal/model"
	"fulfill_dev_v1_202608/internal/repository"
)

// ==================== 测试辅助 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.Store{},
		&model.Order{}, &model.OrderItem{},
		&model.ProductConfiguration{},
		&model.SyncLogEntry{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T, db *gorm.DB) *StatusResolver {
	return NewStatusResolver(repository.NewProductConfigRepository(db), zap.NewNop())
}

// ==================== 解析器测试 ====================

func TestStatusResolver_Resolve(t *testing.T) {
	db := setupServiceTestDB(t)
	ctx := context.Background()

	configs := []model.ProductConfiguration{
		{SKU: "MUG-PLAIN", PersonalizationType: model.PersonalizationNone},
		{SKU: "MUG-TEXT", PersonalizationType: model.PersonalizationNotes},
		{SKU: "MUG-PHOTO", PersonalizationType: model.PersonalizationImage},
		{SKU: "MUG-BOTH", PersonalizationType: model.PersonalizationBoth},
	}
	for i := range configs {
		if err := db.Create(&configs[i]).Error; err != nil {
			t.Fatalf("准备商品配置失败: %v", err)
		}
	}

	resolver := newTestResolver(t, db)

	cases := []struct {
		name       string
		sku        string
		variations map[string]string
		want       model.OrderStatus
	}{
		{"SKU 为空", "", nil, model.StatusPendingEnrichment},
		{"目录无此 SKU", "MUG-UNKNOWN", nil, model.StatusPendingEnrichment},
		{"无需定制", "MUG-PLAIN", nil, model.StatusReadyForDesign},
		{"文字定制且买家已填写", "MUG-TEXT",
			map[string]string{"Personalization": "To Dad"}, model.StatusReadyForDesign},
		{"文字定制但买家未填写", "MUG-TEXT", nil, model.StatusPendingEnrichment},
		{"文字定制但只有空白", "MUG-TEXT",
			map[string]string{"Personalization": "   "}, model.StatusPendingEnrichment},
		{"文字定制但是占位文本", "MUG-TEXT",
			map[string]string{"Personalization": "Not requested on this item."}, model.StatusPendingEnrichment},
		{"占位文本大小写不限", "MUG-TEXT",
			map[string]string{"Personalization": "NOT REQUESTED"}, model.StatusPendingEnrichment},
		{"需要图片素材", "MUG-PHOTO",
			map[string]string{"Personalization": "To Dad"}, model.StatusPendingEnrichment},
		{"文字加图片", "MUG-BOTH",
			map[string]string{"Personalization": "To Dad"}, model.StatusPendingEnrichment},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := resolver.Resolve(ctx, c.sku, c.variations)
			if got != c.want {
				t.Errorf("期望 %s，实际 %s", c.want, got)
			}
		})
	}
}

func TestResolveWithConfig_NilConfig(t *testing.T) {
	if got := resolveWithConfig(nil, nil); got != model.StatusPendingEnrichment {
		t.Errorf("缺失配置应落到待补充，实际 %s", got)
	}
}

func TestPersonalizationPresent(t *testing.T) {
	cases := []struct {
		name       string
		variations map[string]string
		want       bool
	}{
		{"无变体", nil, false},
		{"无定制键", map[string]string{"Color": "Red"}, false},
		{"正常文本", map[string]string{"Personalization": "Emma"}, true},
		{"首尾空白", map[string]string{"Personalization": "  Emma  "}, true},
		{"纯空白", map[string]string{"Personalization": " \t "}, false},
		{"占位文本夹在句子里", map[string]string{"Personalization": "Personalization was not requested."}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := personalizationPresent(c.variations); got != c.want {
				t.Errorf("期望 %v，实际 %v", c.want, got)
			}
		})
	}
}
