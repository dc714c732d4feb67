package models

import "time"

// StockEntry holds the quantity on hand for one (material, category) pair.
type StockEntry struct {
	ID         uint     `gorm:"primaryKey"`
	MaterialID uint     `gorm:"uniqueIndex:idx_stock_material_category;not null"`
	Material   Material `gorm:"constraint:OnDelete:CASCADE"`
	CategoryID uint     `gorm:"uniqueIndex:idx_stock_material_category;index;not null"`
	Category   Category `gorm:"constraint:OnDelete:CASCADE"`
	Quantity   int      `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
