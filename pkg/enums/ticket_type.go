package enums

import "fmt"

// TicketType describes the admission classes sold for an event.
type TicketType string

const (
	TicketTypeIndividual TicketType = "individual"
	TicketTypeFamily     TicketType = "family"
	TicketTypeGeneral    TicketType = "general"
)

var validTicketTypes = []TicketType{
	TicketTypeIndividual,
	TicketTypeFamily,
	TicketTypeGeneral,
}

// String implements fmt.Stringer.
func (t TicketType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TicketType.
func (t TicketType) IsValid() bool {
	for _, candidate := range validTicketTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTicketType converts the raw string to TicketType.
func ParseTicketType(value string) (TicketType, error) {
	for _, candidate := range validTicketTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket type %q", value)
}

// RFIDTagCap returns the maximum number of RFID wristbands attachable to
// a single ticket of this type.
func (t TicketType) RFIDTagCap() int {
	switch t {
	case TicketTypeFamily:
		return 4
	default:
		return 1
	}
}
