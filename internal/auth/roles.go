package auth

// Role names as carried in JWT claims. The numeric level is a total order
// used only for coarse minimum-role gating; fine-grained rights come from
// the capability and transition tables in permissions.go.
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleWaiter  Role = "waiter"
	RoleCashier Role = "cashier"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

var roleLevels = map[Role]int{
	RoleKitchen: 1,
	RoleWaiter:  2,
	RoleCashier: 3,
	RoleManager: 4,
	RoleAdmin:   5,
	RoleOwner:   5,
}

// Known reports whether the role exists in the hierarchy. Unknown roles
// always deny.
func (r Role) Known() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast is the coarse hierarchy gate. Kitchen and Waiter are comparable
// here by level but hold disjoint transition rights, so callers must not
// rely on AtLeast alone for status transitions.
func (r Role) AtLeast(floor Role) bool {
	lvl, ok := roleLevels[r]
	if !ok {
		return false
	}
	floorLvl, ok := roleLevels[floor]
	if !ok {
		return false
	}
	return lvl >= floorLvl
}

type Principal struct {
	UserID   int64
	Role     Role
	TenantID int64 // 0 when the token carries no direct tenant assignment
}
