package mollie

import "strings"

// Normalised payment states used for logs and metric labels.
const (
	StatusOpen     = "OPEN"
	StatusPending  = "PENDING"
	StatusPaid     = "PAID"
	StatusFailed   = "FAILED"
	StatusExpired  = "EXPIRED"
	StatusCanceled = "CANCELED"
	StatusUnknown  = "UNKNOWN"
)

// NormaliseStatus maps a Mollie payment status onto a closed set of states.
func NormaliseStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid":
		return StatusPaid
	case "open":
		return StatusOpen
	case "pending", "authorized":
		return StatusPending
	case "failed":
		return StatusFailed
	case "expired":
		return StatusExpired
	case "canceled", "cancelled":
		return StatusCanceled
	default:
		return StatusUnknown
	}
}
