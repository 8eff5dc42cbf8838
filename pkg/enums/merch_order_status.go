package enums

import "fmt"

// MerchOrderStatus describes the allowed values for the `status` column in merch_orders.
type MerchOrderStatus string

const (
	MerchOrderStatusPending   MerchOrderStatus = "pending"
	MerchOrderStatusPaid      MerchOrderStatus = "paid"
	MerchOrderStatusShipped   MerchOrderStatus = "shipped"
	MerchOrderStatusCancelled MerchOrderStatus = "cancelled"
)

var validMerchOrderStatuses = []MerchOrderStatus{
	MerchOrderStatusPending,
	MerchOrderStatusPaid,
	MerchOrderStatusShipped,
	MerchOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (m MerchOrderStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MerchOrderStatus.
func (m MerchOrderStatus) IsValid() bool {
	for _, candidate := range validMerchOrderStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMerchOrderStatus converts the raw string to MerchOrderStatus.
func ParseMerchOrderStatus(value string) (MerchOrderStatus, error) {
	for _, candidate := range validMerchOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid merch order status %q", value)
}
