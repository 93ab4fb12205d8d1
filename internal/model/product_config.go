package model

// ==================== 定制类型常量 ====================

// PersonalizationType 商品定制类型
type PersonalizationType string

const (
	PersonalizationNone  PersonalizationType = "none"  // 无需定制
	PersonalizationNotes PersonalizationType = "notes" // 仅文字定制
	PersonalizationImage PersonalizationType = "image" // 需要图片素材
	PersonalizationBoth  PersonalizationType = "both"  // 文字 + 图片
)

// ==================== ProductConfiguration 商品配置 ====================

// ProductConfiguration 商品配置
// 状态解析器的只读输入；缺失配置是合法状态，不按外键约束处理
type ProductConfiguration struct {
	BaseModel
	SKU                 string              `gorm:"size:100;uniqueIndex;not null"`
	PersonalizationType PersonalizationType `gorm:"size:20;default:none"`

	// 发货默认值
	DefaultCarrier string  `gorm:"size:32"`
	DefaultWeight  float64 `gorm:"default:0"`
	WeightUnit     string  `gorm:"size:10;default:KG"`
}

func (*ProductConfiguration) TableName() string {
	return "product_configurations"
}
