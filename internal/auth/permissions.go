package auth

// Capability keys gate individual actions, independent of the status
// transition tables below.
type Capability string

const (
	CapOrderCreate    Capability = "order.create"
	CapOrderUpdate    Capability = "order.update"
	CapOrderCancel    Capability = "order.cancel"
	CapTicketCreate   Capability = "ticket.create"
	CapTicketUpdate   Capability = "ticket.update"
	CapTicketPrint    Capability = "ticket.print"
	CapTableManage    Capability = "table.manage"
	CapTableTransfer  Capability = "table.transfer"
	CapBillCreate     Capability = "bill.create"
	CapPaymentProcess Capability = "payment.process"
	CapPaymentRefund  Capability = "payment.refund"
)

type ResourceKind string

const (
	ResourceOrder  ResourceKind = "order"
	ResourceTicket ResourceKind = "ticket"
)

var capabilities = map[Role]map[Capability]bool{
	RoleKitchen: {
		CapTicketUpdate: true,
		CapTicketPrint:  true,
	},
	RoleWaiter: {
		CapOrderCreate:  true,
		CapOrderUpdate:  true,
		CapTicketCreate: true,
		CapTicketUpdate: true,
		CapTicketPrint:  true,
	},
	RoleCashier: {
		CapOrderCreate:    true,
		CapOrderUpdate:    true,
		CapOrderCancel:    true,
		CapTicketCreate:   true,
		CapTicketUpdate:   true,
		CapTicketPrint:    true,
		CapTableManage:    true,
		CapTableTransfer:  true,
		CapBillCreate:     true,
		CapPaymentProcess: true,
	},
	RoleManager: {
		CapOrderCreate:    true,
		CapOrderUpdate:    true,
		CapOrderCancel:    true,
		CapTicketCreate:   true,
		CapTicketUpdate:   true,
		CapTicketPrint:    true,
		CapTableManage:    true,
		CapTableTransfer:  true,
		CapBillCreate:     true,
		CapPaymentProcess: true,
		CapPaymentRefund:  true,
	},
	RoleAdmin: {
		CapOrderCreate:    true,
		CapOrderUpdate:    true,
		CapOrderCancel:    true,
		CapTicketCreate:   true,
		CapTicketUpdate:   true,
		CapTicketPrint:    true,
		CapTableManage:    true,
		CapTableTransfer:  true,
		CapBillCreate:     true,
		CapPaymentProcess: true,
		CapPaymentRefund:  true,
	},
}

func init() {
	// Owner mirrors admin everywhere.
	capabilities[RoleOwner] = capabilities[RoleAdmin]
	orderTransitions[RoleOwner] = orderTransitions[RoleAdmin]
	ticketTransitions[RoleOwner] = ticketTransitions[RoleAdmin]
}

// Order statuses a role may set as the transition target. Waiters drive the
// front-of-house half, kitchen the production half; cashier and up may reach
// anything including cancelled.
var orderTransitions = map[Role]map[string]bool{
	RoleWaiter: {
		"draft":     true,
		"pending":   true,
		"confirmed": true,
		"served":    true,
	},
	RoleKitchen: {
		"confirmed": true,
		"preparing": true,
		"ready":     true,
	},
	RoleCashier: allOrderStatuses(),
	RoleManager: allOrderStatuses(),
	RoleAdmin:   allOrderStatuses(),
}

// Ticket transition targets per role. Deliberately disjoint between kitchen
// and waiter: the kitchen cooks, the waiter delivers.
var ticketTransitions = map[Role]map[string]bool{
	RoleKitchen: {
		"preparing": true,
		"ready":     true,
	},
	RoleWaiter: {
		"sent": true,
	},
	RoleCashier: allTicketStatuses(),
	RoleManager: allTicketStatuses(),
	RoleAdmin:   allTicketStatuses(),
}

func allOrderStatuses() map[string]bool {
	return map[string]bool{
		"draft":     true,
		"pending":   true,
		"confirmed": true,
		"preparing": true,
		"ready":     true,
		"served":    true,
		"completed": true,
		"cancelled": true,
	}
}

func allTicketStatuses() map[string]bool {
	return map[string]bool{
		"pending":   true,
		"preparing": true,
		"ready":     true,
		"sent":      true,
		"cancelled": true,
	}
}

// CanPerform is deny-by-default: unknown roles and unknown capabilities
// never pass.
func CanPerform(role Role, cap Capability) bool {
	caps, ok := capabilities[role]
	if !ok {
		return false
	}
	return caps[cap]
}

// CanTransitionTo reports whether role may set the given target status on
// the given resource kind. It does not check reachability from the current
// status; that belongs to the resource's own state machine.
func CanTransitionTo(role Role, kind ResourceKind, target string) bool {
	var table map[Role]map[string]bool
	switch kind {
	case ResourceOrder:
		table = orderTransitions
	case ResourceTicket:
		table = ticketTransitions
	default:
		return false
	}
	statuses, ok := table[role]
	if !ok {
		return false
	}
	return statuses[target]
}
