package enums

import "fmt"

// TicketOrderStatus describes the allowed values for the `status` column in ticket_orders.
type TicketOrderStatus string

const (
	TicketOrderStatusPending   TicketOrderStatus = "pending"
	TicketOrderStatusConfirmed TicketOrderStatus = "confirmed"
	TicketOrderStatusCancelled TicketOrderStatus = "cancelled"
	TicketOrderStatusRefunded  TicketOrderStatus = "refunded"
)

var validTicketOrderStatuses = []TicketOrderStatus{
	TicketOrderStatusPending,
	TicketOrderStatusConfirmed,
	TicketOrderStatusCancelled,
	TicketOrderStatusRefunded,
}

// String implements fmt.Stringer.
func (t TicketOrderStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketOrderStatus.
func (t TicketOrderStatus) IsValid() bool {
	for _, candidate := range validTicketOrderStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTicketOrderStatus converts the raw string to TicketOrderStatus.
func ParseTicketOrderStatus(value string) (TicketOrderStatus, error) {
	for _, candidate := range validTicketOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket order status %q", value)
}
