package tables

// Table occupancy cycle: available -> serving -> cleaning -> available, with
// reserved, transfer and maintenance as staff-driven excursions from
// available.
const (
	StatusAvailable   = "available"
	StatusServing     = "serving"
	StatusReserved    = "reserved"
	StatusCleaning    = "cleaning"
	StatusTransfer    = "transfer"
	StatusMaintenance = "maintenance"
)

func ValidStatus(status string) bool {
	switch status {
	case StatusAvailable, StatusServing, StatusReserved,
		StatusCleaning, StatusTransfer, StatusMaintenance:
		return true
	}
	return false
}
