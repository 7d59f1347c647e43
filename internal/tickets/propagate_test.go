package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mesa-system/internal/orders"
)

func TestPropagatedOrderStatus(t *testing.T) {
	tests := []struct {
		name         string
		ticketStatus string
		orderStatus  string
		want         string
	}{
		{"preparing confirms a pending order", StatusPreparing, orders.StatusPending, orders.StatusConfirmed},
		{"preparing confirms a draft order", StatusPreparing, orders.StatusDraft, orders.StatusConfirmed},
		{"ready echoes", StatusReady, orders.StatusPreparing, orders.StatusReady},
		{"sent echoes served", StatusSent, orders.StatusReady, orders.StatusServed},
		{"pending has no echo", StatusPending, orders.StatusConfirmed, ""},
		{"cancelled has no echo", StatusCancelled, orders.StatusConfirmed, ""},
		{"order already there", StatusPreparing, orders.StatusConfirmed, ""},
		{"order already ahead", StatusPreparing, orders.StatusPreparing, ""},
		{"sent with order already served", StatusSent, orders.StatusServed, ""},
		{"completed order frozen", StatusSent, orders.StatusCompleted, ""},
		{"cancelled order frozen", StatusReady, orders.StatusCancelled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PropagatedOrderStatus(tt.ticketStatus, tt.orderStatus))
		})
	}
}

// A lagging second ticket must never drag the order backwards, whatever its
// own status is.
func TestPropagationIsMonotone(t *testing.T) {
	ticketStatuses := []string{StatusPending, StatusPreparing, StatusReady, StatusSent, StatusCancelled}
	orderStatuses := []string{
		orders.StatusDraft, orders.StatusPending, orders.StatusConfirmed,
		orders.StatusPreparing, orders.StatusReady, orders.StatusServed,
		orders.StatusCompleted, orders.StatusCancelled,
	}

	for _, ts := range ticketStatuses {
		for _, os := range orderStatuses {
			echo := PropagatedOrderStatus(ts, os)
			if echo == "" {
				continue
			}
			assert.Greater(t, orders.Rank(echo), orders.Rank(os),
				"ticket %s on order %s produced non-forward echo %s", ts, os, echo)
		}
	}
}

func TestTicketCanReach(t *testing.T) {
	assert.True(t, CanReach(StatusPending, StatusPreparing))
	assert.True(t, CanReach(StatusPending, StatusReady))
	assert.True(t, CanReach(StatusPreparing, StatusReady))
	assert.True(t, CanReach(StatusReady, StatusSent))

	assert.False(t, CanReach(StatusReady, StatusPreparing))
	assert.False(t, CanReach(StatusSent, StatusReady))
	assert.False(t, CanReach(StatusCancelled, StatusPreparing))
	assert.False(t, CanReach(StatusPending, StatusCancelled))
	assert.False(t, CanReach(StatusPending, StatusPending))
}

func TestValidStation(t *testing.T) {
	assert.True(t, ValidStation(StationKitchen))
	assert.True(t, ValidStation(StationBar))
	assert.True(t, ValidStation(StationBeverage))
	assert.False(t, ValidStation("rooftop"))
}
