package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name string
		role Role
		cap  Capability
		want bool
	}{
		{"kitchen updates tickets", RoleKitchen, CapTicketUpdate, true},
		{"kitchen cannot create orders", RoleKitchen, CapOrderCreate, false},
		{"kitchen cannot process payments", RoleKitchen, CapPaymentProcess, false},
		{"waiter creates orders", RoleWaiter, CapOrderCreate, true},
		{"waiter cannot cancel orders", RoleWaiter, CapOrderCancel, false},
		{"waiter cannot manage tables", RoleWaiter, CapTableManage, false},
		{"cashier cancels orders", RoleCashier, CapOrderCancel, true},
		{"cashier processes payments", RoleCashier, CapPaymentProcess, true},
		{"cashier cannot refund", RoleCashier, CapPaymentRefund, false},
		{"manager refunds", RoleManager, CapPaymentRefund, true},
		{"admin refunds", RoleAdmin, CapPaymentRefund, true},
		{"owner mirrors admin", RoleOwner, CapPaymentRefund, true},
		{"unknown role denied", Role("intern"), CapOrderCreate, false},
		{"unknown capability denied", RoleAdmin, Capability("order.teleport"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanPerform(tt.role, tt.cap))
		})
	}
}

func TestOrderTransitionTargets(t *testing.T) {
	waiterAllowed := []string{"draft", "pending", "confirmed", "served"}
	waiterDenied := []string{"preparing", "ready", "completed", "cancelled"}

	for _, s := range waiterAllowed {
		assert.True(t, CanTransitionTo(RoleWaiter, ResourceOrder, s), "waiter -> %s", s)
	}
	for _, s := range waiterDenied {
		assert.False(t, CanTransitionTo(RoleWaiter, ResourceOrder, s), "waiter -> %s", s)
	}

	kitchenAllowed := []string{"confirmed", "preparing", "ready"}
	kitchenDenied := []string{"draft", "pending", "served", "completed", "cancelled"}

	for _, s := range kitchenAllowed {
		assert.True(t, CanTransitionTo(RoleKitchen, ResourceOrder, s), "kitchen -> %s", s)
	}
	for _, s := range kitchenDenied {
		assert.False(t, CanTransitionTo(RoleKitchen, ResourceOrder, s), "kitchen -> %s", s)
	}

	everything := []string{"draft", "pending", "confirmed", "preparing", "ready", "served", "completed", "cancelled"}
	for _, role := range []Role{RoleCashier, RoleManager, RoleAdmin, RoleOwner} {
		for _, s := range everything {
			assert.True(t, CanTransitionTo(role, ResourceOrder, s), "%s -> %s", role, s)
		}
	}
}

func TestTicketTransitionTargets(t *testing.T) {
	// Kitchen and waiter targets are disjoint.
	assert.True(t, CanTransitionTo(RoleKitchen, ResourceTicket, "preparing"))
	assert.True(t, CanTransitionTo(RoleKitchen, ResourceTicket, "ready"))
	assert.False(t, CanTransitionTo(RoleKitchen, ResourceTicket, "sent"))

	assert.True(t, CanTransitionTo(RoleWaiter, ResourceTicket, "sent"))
	assert.False(t, CanTransitionTo(RoleWaiter, ResourceTicket, "preparing"))
	assert.False(t, CanTransitionTo(RoleWaiter, ResourceTicket, "ready"))

	for _, role := range []Role{RoleCashier, RoleManager, RoleAdmin, RoleOwner} {
		for _, s := range []string{"pending", "preparing", "ready", "sent", "cancelled"} {
			assert.True(t, CanTransitionTo(role, ResourceTicket, s), "%s -> %s", role, s)
		}
	}
}

func TestCanTransitionToUnknowns(t *testing.T) {
	assert.False(t, CanTransitionTo(Role("intern"), ResourceOrder, "pending"))
	assert.False(t, CanTransitionTo(RoleAdmin, ResourceKind("bill"), "paid"))
	assert.False(t, CanTransitionTo(RoleAdmin, ResourceOrder, "teleported"))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleManager.AtLeast(RoleAdmin))
	assert.False(t, Role("intern").AtLeast(RoleKitchen))
}
