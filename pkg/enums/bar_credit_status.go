package enums

import "fmt"

// BarCreditStatus describes the allowed values for the `status` column in bar_credits.
type BarCreditStatus string

const (
	BarCreditStatusPending   BarCreditStatus = "pending"
	BarCreditStatusConfirmed BarCreditStatus = "confirmed"
	BarCreditStatusDepleted  BarCreditStatus = "depleted"
	BarCreditStatusCancelled BarCreditStatus = "cancelled"
	BarCreditStatusRefunded  BarCreditStatus = "refunded"
)

var validBarCreditStatuses = []BarCreditStatus{
	BarCreditStatusPending,
	BarCreditStatusConfirmed,
	BarCreditStatusDepleted,
	BarCreditStatusCancelled,
	BarCreditStatusRefunded,
}

// String implements fmt.Stringer.
func (b BarCreditStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BarCreditStatus.
func (b BarCreditStatus) IsValid() bool {
	for _, candidate := range validBarCreditStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBarCreditStatus converts the raw string to BarCreditStatus.
func ParseBarCreditStatus(value string) (BarCreditStatus, error) {
	for _, candidate := range validBarCreditStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bar credit status %q", value)
}
