package models

import "time"

// DiningTable is a physical seating resource. TableNumber is unique per
// tenant, not globally.
type DiningTable struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	TableNumber    int32  `gorm:"uniqueIndex:idx_tenant_table;not null"`
	TenantID       int64  `gorm:"uniqueIndex:idx_tenant_table;index;not null"`
	Capacity       int32  `gorm:"not null;default:2"`
	Status         string `gorm:"type:varchar(32);index;not null"`
	CurrentOrderID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OrderNumber string `gorm:"uniqueIndex;not null"`
	Source      string `gorm:"type:varchar(16);not null"`
	TableNumber *int32
	Status      string `gorm:"type:varchar(32);index;not null"`

	Subtotal       string  `gorm:"type:decimal(18,2);not null"`
	DiscountType   *string `gorm:"type:varchar(16)"`
	DiscountValue  string  `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	DiscountAmount string  `gorm:"type:decimal(18,2);not null"`
	TaxAmount      string  `gorm:"type:decimal(18,2);not null"`
	TotalAmount    string  `gorm:"type:decimal(18,2);not null"`

	TenantID    int64  `gorm:"index;not null"`
	CreatedBy   int64  `gorm:"not null"`
	ConfirmedBy *int64

	CustomerName    *string `gorm:"type:varchar(128)"`
	CustomerPhone   *string `gorm:"type:varchar(32)"`
	DeliveryAddress *string `gorm:"type:text"`

	CancelledAt  *time.Time
	CancelledBy  *int64
	CancelReason *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	OrderID      int64   `gorm:"index;not null"`
	ItemName     string  `gorm:"type:varchar(128);not null"`
	Quantity     int32   `gorm:"not null"`
	UnitPrice    string  `gorm:"type:decimal(18,2);not null"`
	LineTotal    string  `gorm:"type:decimal(18,2);not null"`
	Instructions *string `gorm:"type:text"`
	CreatedAt    time.Time
}

// ProductionTicket routes a station-specific subset of an order to
// kitchen/bar/beverage. Its tenant id must equal the parent order's.
type ProductionTicket struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	TicketNumber string `gorm:"uniqueIndex;not null"`
	OrderID      int64  `gorm:"index;not null"`
	Station      string `gorm:"type:varchar(16);not null"`
	Status       string `gorm:"type:varchar(32);index;not null"`
	AssignedTo   *int64
	StartedAt    *time.Time
	CompletedAt  *time.Time

	IsPrinted bool `gorm:"not null;default:false"`
	PrintedBy *int64
	PrintedAt *time.Time
	PrinterID *string `gorm:"type:varchar(64)"`

	TenantID  int64 `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []TicketItem `gorm:"foreignKey:TicketID"`
}

type TicketItem struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	TicketID     int64   `gorm:"index;not null"`
	ItemName     string  `gorm:"type:varchar(128);not null"`
	Quantity     int32   `gorm:"not null"`
	Instructions *string `gorm:"type:text"`
	Prepared     bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
}
