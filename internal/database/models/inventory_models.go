package models

import "time"

// StockItem is the tenant's on-hand inventory for one ingredient. Only the
// decrement-on-preparation side effect mutates Quantity here; catalog CRUD
// is out of scope.
type StockItem struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(128);uniqueIndex:idx_tenant_stock;not null"`
	TenantID  int64  `gorm:"uniqueIndex:idx_tenant_stock;index;not null"`
	Unit      string `gorm:"type:varchar(32);not null"`
	Quantity  string `gorm:"type:decimal(18,3);not null;default:'0'"`
	MinLevel  string `gorm:"type:decimal(18,3);not null;default:'0'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MenuItemIngredient maps a menu item name to the stock it consumes per
// unit. Read-only catalog collaborator data from the workflow's view.
type MenuItemIngredient struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	TenantID        int64  `gorm:"index;not null"`
	ItemName        string `gorm:"type:varchar(128);index;not null"`
	StockItemID     int64  `gorm:"index;not null"`
	QuantityPerUnit string `gorm:"type:decimal(18,3);not null"`
	CreatedAt       time.Time

	StockItem *StockItem `gorm:"foreignKey:StockItemID"`
}
