package stock

import (
	"context"
	"errors"
	"fmt"

	"ppe-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficient  = errors.New("insufficient stock")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
)

// Ledger is the only writer of stock quantities. Build it on a transaction handle to make its
// calls part of that transaction.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Ensure returns the (material, category) row, creating it with quantity 0 when absent.
func (l *Ledger) Ensure(ctx context.Context, materialID, categoryID uint) (*models.StockEntry, error) {
	db := l.db.WithContext(ctx)

	entry := models.StockEntry{MaterialID: materialID, CategoryID: categoryID, Quantity: 0}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "material_id"}, {Name: "category_id"}},
		DoNothing: true,
	}).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}

	var row models.StockEntry
	if err := db.Where("material_id = ? AND category_id = ?", materialID, categoryID).First(&row).Error; err != nil {
		return nil, fmt.Errorf("load stock row: %w", err)
	}
	return &row, nil
}

// Add increases the quantity by amount and returns the updated row.
func (l *Ledger) Add(ctx context.Context, materialID, categoryID uint, amount int) (*models.StockEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var out *models.StockEntry
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txl := NewLedger(tx)
		row, err := txl.Ensure(ctx, materialID, categoryID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.StockEntry{}).
			Where("id = ?", row.ID).
			Update("quantity", gorm.Expr("quantity + ?", amount)).Error; err != nil {
			return fmt.Errorf("increment stock: %w", err)
		}
		if err := tx.First(row, row.ID).Error; err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decrement removes exactly one unit with a compare-and-swap update, so two concurrent
// callers can never take the quantity below zero. It returns the remaining quantity.
func (l *Ledger) Decrement(ctx context.Context, materialID, categoryID uint) (int, error) {
	db := l.db.WithContext(ctx)

	res := db.Model(&models.StockEntry{}).
		Where("material_id = ? AND category_id = ? AND quantity >= 1", materialID, categoryID).
		Update("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("decrement stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficient
	}

	return l.Quantity(ctx, materialID, categoryID)
}

// Quantity returns the quantity on hand, 0 when no row exists.
func (l *Ledger) Quantity(ctx context.Context, materialID, categoryID uint) (int, error) {
	var row models.StockEntry
	err := l.db.WithContext(ctx).
		Where("material_id = ? AND category_id = ?", materialID, categoryID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Quantity, nil
}

type Filter struct {
	MaterialID uint
	CategoryID uint
}

// List returns stock rows with material and category loaded, ordered by material then category.
func (l *Ledger) List(ctx context.Context, f Filter) ([]models.StockEntry, error) {
	q := l.db.WithContext(ctx).Preload("Material").Preload("Category")
	if f.MaterialID != 0 {
		q = q.Where("material_id = ?", f.MaterialID)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}

	var rows []models.StockEntry
	if err := q.Order("material_id ASC, category_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Critical returns rows whose quantity is below threshold.
func (l *Ledger) Critical(ctx context.Context, threshold int) ([]models.StockEntry, error) {
	var rows []models.StockEntry
	err := l.db.WithContext(ctx).
		Preload("Material").Preload("Category").
		Where("quantity < ?", threshold).
		Order("quantity ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// ByMaterial returns every category row holding the material.
func (l *Ledger) ByMaterial(ctx context.Context, materialID uint) ([]models.StockEntry, error) {
	return l.List(ctx, Filter{MaterialID: materialID})
}
