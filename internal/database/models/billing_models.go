package models

import "time"

// Bill is created once per order after the served milestone. One-bill-per-
// order is enforced by lookup-before-create in the billing handler; the
// index alone does not carry the invariant.
type Bill struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	BillNumber string `gorm:"uniqueIndex;not null"`
	OrderID    int64  `gorm:"index;not null"`

	Subtotal       string `gorm:"type:decimal(18,2);not null"`
	DiscountAmount string `gorm:"type:decimal(18,2);not null"`
	TaxAmount      string `gorm:"type:decimal(18,2);not null"`
	TotalAmount    string `gorm:"type:decimal(18,2);not null"`

	Paid          bool    `gorm:"not null;default:false"`
	PaymentMethod *string `gorm:"type:varchar(32)"`
	PaidAt        *time.Time
	TransactionID *string `gorm:"type:varchar(128)"`

	CashierID      int64   `gorm:"not null"`
	IdempotencyKey *string `gorm:"uniqueIndex"`

	Refunded     bool    `gorm:"not null;default:false"`
	RefundAmount *string `gorm:"type:decimal(18,2)"`
	RefundedAt   *time.Time
	RefundReason *string `gorm:"type:text"`

	TenantID  int64 `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment records one settlement attempt against a bill. Webhook callbacks
// mutate Status outside the original request cycle.
type Payment struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	PaymentID string `gorm:"uniqueIndex;not null"`
	BillID    int64  `gorm:"index;not null"`
	OrderID   int64  `gorm:"index;not null"`

	Amount string `gorm:"type:decimal(18,2);not null"`
	Mode   string `gorm:"type:varchar(32);not null"`
	Status string `gorm:"type:varchar(32);index;not null"`

	Gateway      *string `gorm:"type:varchar(64)"`
	GatewayTxnID *string `gorm:"type:varchar(128)"`

	IdempotencyKey *string `gorm:"uniqueIndex"`
	ProcessedBy    int64   `gorm:"not null"`

	RefundAmount *string `gorm:"type:decimal(18,2)"`
	RefundedAt   *time.Time

	TenantID  int64 `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
