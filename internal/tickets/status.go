package tickets

// Production ticket lifecycle. pending -> preparing -> ready -> sent, with
// cancelled arriving only by cascade from the parent order.
const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusSent      = "sent"
	StatusCancelled = "cancelled"
)

const (
	StationKitchen  = "kitchen"
	StationBar      = "bar"
	StationBeverage = "beverage"
)

var statusRank = map[string]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusSent:      3,
}

func Rank(status string) int {
	r, ok := statusRank[status]
	if !ok {
		return -1
	}
	return r
}

// CanReach allows forward moves only. A cancelled ticket is frozen.
func CanReach(current, target string) bool {
	if current == StatusCancelled || current == StatusSent {
		return false
	}
	from, to := Rank(current), Rank(target)
	if from < 0 || to < 0 {
		return false
	}
	return to > from
}

func ValidStation(station string) bool {
	switch station {
	case StationKitchen, StationBar, StationBeverage:
		return true
	}
	return false
}
