// Package inventory implements the decrement-on-preparation side effect.
// Stock deduction is best-effort: failures and low-stock conditions surface
// as warnings, never as hard errors.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mesa-system/internal/database/models"
	"mesa-system/internal/sideeffect"
)

type Line struct {
	ItemName string
	Quantity int32
}

type Deductor struct {
	db *gorm.DB
}

func NewDeductor(db *gorm.DB) *Deductor {
	return &Deductor{db: db}
}

// DeductForItems decrements stock for every ingredient of every line,
// multiplied by the line quantity. Items without a catalog mapping are
// skipped silently; stock at or below its minimum after deduction produces a
// low-stock warning.
func (d *Deductor) DeductForItems(ctx context.Context, tenantID int64, lines []Line) []sideeffect.Warning {
	var warnings []sideeffect.Warning

	for _, line := range lines {
		var mappings []models.MenuItemIngredient
		err := d.db.WithContext(ctx).
			Where("tenant_id = ? AND item_name = ?", tenantID, line.ItemName).
			Find(&mappings).Error
		if err != nil {
			warnings = append(warnings, sideeffect.Warning{
				Effect:  "inventory.deduct",
				Message: fmt.Sprintf("ingredient lookup for %q failed: %v", line.ItemName, err),
			})
			continue
		}

		for _, m := range mappings {
			if w := d.deductStock(ctx, m, line.Quantity); w != nil {
				warnings = append(warnings, *w)
			}
		}
	}
	return warnings
}

func (d *Deductor) deductStock(ctx context.Context, m models.MenuItemIngredient, qty int32) *sideeffect.Warning {
	var stock models.StockItem
	err := d.db.WithContext(ctx).Where("id = ?", m.StockItemID).First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &sideeffect.Warning{
			Effect:  "inventory.deduct",
			Message: fmt.Sprintf("stock item %d missing for %q", m.StockItemID, m.ItemName),
		}
	}
	if err != nil {
		return &sideeffect.Warning{Effect: "inventory.deduct", Message: err.Error()}
	}

	perUnit, err := decimal.NewFromString(m.QuantityPerUnit)
	if err != nil {
		return &sideeffect.Warning{
			Effect:  "inventory.deduct",
			Message: fmt.Sprintf("bad quantity_per_unit for stock %d: %v", stock.ID, err),
		}
	}
	current, err := decimal.NewFromString(stock.Quantity)
	if err != nil {
		current = decimal.Zero
	}

	needed := perUnit.Mul(decimal.NewFromInt32(qty))
	remaining := current.Sub(needed)

	if err := d.db.WithContext(ctx).Model(&models.StockItem{}).
		Where("id = ?", stock.ID).
		Update("quantity", remaining.StringFixed(3)).Error; err != nil {
		return &sideeffect.Warning{Effect: "inventory.deduct", Message: err.Error()}
	}

	minLevel, err := decimal.NewFromString(stock.MinLevel)
	if err == nil && remaining.LessThanOrEqual(minLevel) {
		log.Printf("low stock: %s at %s (min %s)", stock.Name, remaining.StringFixed(3), minLevel.StringFixed(3))
		return &sideeffect.Warning{
			Effect:  "inventory.low_stock",
			Message: fmt.Sprintf("%s at %s, minimum %s", stock.Name, remaining.StringFixed(3), minLevel.StringFixed(3)),
		}
	}
	return nil
}
