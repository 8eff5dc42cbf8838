package enums

import (
	"fmt"
	"strings"
)

// OrderKind discriminates the three purchasable record families.
type OrderKind string

const (
	OrderKindTicket    OrderKind = "ticket"
	OrderKindMerch     OrderKind = "merch"
	OrderKindBarCredit OrderKind = "bar_credit"
)

var validOrderKinds = []OrderKind{
	OrderKindTicket,
	OrderKindMerch,
	OrderKindBarCredit,
}

// String implements fmt.Stringer.
func (o OrderKind) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderKind.
func (o OrderKind) IsValid() bool {
	for _, candidate := range validOrderKinds {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderKind converts the raw string to OrderKind.
func ParseOrderKind(value string) (OrderKind, error) {
	for _, candidate := range validOrderKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order kind %q", value)
}

// OrderKindForCode resolves the kind from a confirmation code prefix.
func OrderKindForCode(code string) (OrderKind, error) {
	prefix, _, found := strings.Cut(code, "-")
	if !found {
		return "", fmt.Errorf("confirmation code %q has no kind prefix", code)
	}
	for _, candidate := range validOrderKinds {
		if candidate.CodePrefix() == prefix {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("confirmation code %q has unknown prefix %q", code, prefix)
}

// CodePrefix returns the confirmation code prefix reserved for the kind.
func (o OrderKind) CodePrefix() string {
	switch o {
	case OrderKindTicket:
		return "TKT"
	case OrderKindMerch:
		return "MER"
	case OrderKindBarCredit:
		return "BAR"
	default:
		return ""
	}
}
