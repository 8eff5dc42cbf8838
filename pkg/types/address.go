package types

import (
	"fmt"
	"strings"
)

// Address is the shipping destination stored as jsonb on merch orders.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate checks the fields a carrier quote requires.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.Province) == "" {
		return fmt.Errorf("address: missing province")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}

// Normalized returns a copy with trimmed fields and a defaulted country.
func (a Address) Normalized() Address {
	out := a
	out.Line1 = strings.TrimSpace(a.Line1)
	out.City = strings.TrimSpace(a.City)
	out.Province = strings.TrimSpace(a.Province)
	out.PostalCode = strings.ToUpper(strings.ReplaceAll(a.PostalCode, " ", ""))
	out.Country = strings.TrimSpace(a.Country)
	if out.Country == "" {
		out.Country = "CA"
	}
	return out
}
