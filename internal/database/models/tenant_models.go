package models

import "time"

// Tenant is an isolated restaurant account. All workflow entities hang off
// exactly one tenant; the counters are reconciled inside the payment
// transaction and incremented best-effort everywhere else.
type Tenant struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"type:varchar(128);not null"`
	OwnerID        int64  `gorm:"index;not null"`
	TotalOrders    int64  `gorm:"not null;default:0"`
	TotalRevenue   string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	AccountBalance string `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	IsActive       bool   `gorm:"not null;default:true"`
	CreatedAt      *time.Time `gorm:"autoCreateTime"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime"`
}

// Account is the owner/admin identity store. Shift staff live in
// StaffMember; the tenant resolver probes both.
type Account struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Role      string `gorm:"type:varchar(32);not null"`
	TenantID  *int64 `gorm:"index"`
	IsActive  bool   `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}

// StaffMember is the secondary identity store for shift staff. Its IDs share
// the principal id space with Account; resolution order disambiguates.
type StaffMember struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	FullName  string `gorm:"type:varchar(128);not null"`
	Role      string `gorm:"type:varchar(32);not null"`
	TenantID  int64  `gorm:"index;not null"`
	Phone     *string `gorm:"type:varchar(32)"`
	IsActive  bool   `gorm:"default:true"`
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`
}
