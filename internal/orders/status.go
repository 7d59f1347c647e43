package orders

// Order lifecycle. The happy path is strictly forward; cancelled is reachable
// from any non-terminal, non-served state.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusServed    = "served"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	SourceDineIn   = "dine-in"
	SourceTakeaway = "takeaway"
	SourceOnline   = "online"
	SourcePhone    = "phone"
)

var statusRank = map[string]int{
	StatusDraft:     0,
	StatusPending:   1,
	StatusConfirmed: 2,
	StatusPreparing: 3,
	StatusReady:     4,
	StatusServed:    5,
	StatusCompleted: 6,
}

// Rank returns the forward-progress ordinal of a status, or -1 for
// cancelled/unknown. Ticket propagation relies on this being monotone.
func Rank(status string) int {
	r, ok := statusRank[status]
	if !ok {
		return -1
	}
	return r
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

// CanReach reports whether target is reachable from current. Forward moves
// only; cancellation is barred once the order is served.
func CanReach(current, target string) bool {
	if IsTerminal(current) {
		return false
	}
	if target == StatusCancelled {
		return current != StatusServed
	}
	from, to := Rank(current), Rank(target)
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

func ValidSource(source string) bool {
	switch source {
	case SourceDineIn, SourceTakeaway, SourceOnline, SourcePhone:
		return true
	}
	return false
}

// RequiresTable: dine-in and takeaway orders occupy a physical table; phone
// and online orders must not reference one.
func RequiresTable(source string) bool {
	return source == SourceDineIn || source == SourceTakeaway
}

// RequiresCustomer: every non-dine-in channel needs a customer reference.
func RequiresCustomer(source string) bool {
	return source != SourceDineIn
}

// RequiresDelivery: phone and online orders leave the premises.
func RequiresDelivery(source string) bool {
	return source == SourcePhone || source == SourceOnline
}
