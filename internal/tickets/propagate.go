package tickets

import "mesa-system/internal/orders"

// ticket status -> the order status it implies. Kitchen starting work only
// vouches that the order was accepted, so preparing echoes confirmed, not
// preparing; the kitchen role moves the order itself when that is wanted.
var orderEcho = map[string]string{
	StatusPreparing: orders.StatusConfirmed,
	StatusReady:     orders.StatusReady,
	StatusSent:      orders.StatusServed,
}

// PropagatedOrderStatus maps a ticket transition onto the parent order. It
// returns "" when the order should not move: either the ticket status has no
// order echo, or the order is already at or past the echoed status. Order
// progress is monotone, so a slow second ticket never drags the order
// backwards.
func PropagatedOrderStatus(ticketStatus, orderStatus string) string {
	echo, ok := orderEcho[ticketStatus]
	if !ok {
		return ""
	}
	if orders.IsTerminal(orderStatus) {
		return ""
	}
	if orders.Rank(orderStatus) >= orders.Rank(echo) {
		return ""
	}
	return echo
}
