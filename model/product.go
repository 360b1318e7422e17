package model

import "github.com/shopspring/decimal"

// Product size classes estimated by the vision pipeline.
const (
	SizeSmallBox  = "small_box"
	SizeMediumBox = "medium_box"
	SizeLargeBox  = "large_box"
	SizePallet    = "pallet"
	SizeUnknown   = "unknown"
)

// ProductCategory groups products in the catalog.
type ProductCategory struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}

// Product is a catalog entry identified by barcode and SKU.
type Product struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Barcode          string          `gorm:"uniqueIndex;size:100;not null" json:"barcode"`
	Name             string          `gorm:"size:200;not null" json:"name"`
	SKU              string          `gorm:"uniqueIndex;size:50;not null" json:"sku"`
	Description      string          `gorm:"type:text" json:"description"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	SizeClass        string          `gorm:"size:50;default:unknown" json:"size_class"`
	ExpectedLocation string          `gorm:"size:100" json:"expected_location"`
	CategoryID       *int64          `gorm:"index" json:"category_id"`
}
