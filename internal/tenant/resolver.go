// Package tenant resolves the owning restaurant for a principal. Principals
// live in two disjoint identity stores (owner/admin accounts and shift
// staff), so the lookup probes several shapes and callers treat a zero
// result as "no tenant scope".
package tenant

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mesa-system/internal/auth"
	"mesa-system/internal/database/models"
)

// RequestContext carries an explicit tenant id from the transport layer.
// Only trusted cross-tenant admin calls populate it.
type RequestContext struct {
	ExplicitTenantID int64
}

// Lookup is the identity-probe surface, split out so resolution order can be
// unit tested without a database.
type Lookup interface {
	AccountTenant(ctx context.Context, principalID int64) (int64, error)
	OwnedTenant(ctx context.Context, principalID int64) (int64, error)
	StaffTenant(ctx context.Context, principalID int64) (int64, error)
}

type Resolver struct {
	lookup Lookup
}

func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the tenant scope for the principal, or 0 when none
// matches. Callers must short-circuit to an empty result set on 0 rather
// than widening the query.
func (r *Resolver) Resolve(ctx context.Context, p auth.Principal, reqCtx RequestContext) (int64, error) {
	if reqCtx.ExplicitTenantID != 0 {
		// Explicit scope is only honored for roles trusted to operate
		// cross-tenant.
		if p.Role.AtLeast(auth.RoleAdmin) {
			return reqCtx.ExplicitTenantID, nil
		}
	}

	if p.TenantID != 0 {
		return p.TenantID, nil
	}

	probes := []func(context.Context, int64) (int64, error){
		r.lookup.AccountTenant,
		r.lookup.OwnedTenant,
		r.lookup.StaffTenant,
	}
	for _, probe := range probes {
		id, err := probe(ctx, p.UserID)
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
	}
	return 0, nil
}

// EnsureTenant resolves the principal's tenant, creating a default tenant
// record when none exists. Order placement uses this as a compensating
// action instead of hard-failing.
func (r *Resolver) EnsureTenant(ctx context.Context, db *gorm.DB, p auth.Principal, reqCtx RequestContext) (int64, error) {
	id, err := r.Resolve(ctx, p, reqCtx)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	t := models.Tenant{
		Name:           fmt.Sprintf("restaurant-%d", p.UserID),
		OwnerID:        p.UserID,
		TotalRevenue:   "0.00",
		AccountBalance: "0.00",
		IsActive:       true,
	}
	if err := db.WithContext(ctx).Create(&t).Error; err != nil {
		return 0, err
	}
	return t.ID, nil
}

// GormLookup implements Lookup against the two identity tables plus the
// tenant owner back-reference.
type GormLookup struct {
	db *gorm.DB
}

func NewGormLookup(db *gorm.DB) *GormLookup {
	return &GormLookup{db: db}
}

func (g *GormLookup) AccountTenant(ctx context.Context, principalID int64) (int64, error) {
	var account models.Account
	err := g.db.WithContext(ctx).Where("id = ?", principalID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if account.TenantID == nil {
		return 0, nil
	}
	return *account.TenantID, nil
}

func (g *GormLookup) OwnedTenant(ctx context.Context, principalID int64) (int64, error) {
	var t models.Tenant
	err := g.db.WithContext(ctx).Where("owner_id = ?", principalID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (g *GormLookup) StaffTenant(ctx context.Context, principalID int64) (int64, error) {
	var staff models.StaffMember
	err := g.db.WithContext(ctx).Where("id = ? AND is_active = ?", principalID, true).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return staff.TenantID, nil
}
