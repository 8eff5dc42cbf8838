package enums

import "fmt"

// StaffRole describes the access level encoded in a staff JWT.
type StaffRole string

const (
	StaffRoleScanner StaffRole = "scanner"
	StaffRoleAdmin   StaffRole = "admin"
)

var validStaffRoles = []StaffRole{
	StaffRoleScanner,
	StaffRoleAdmin,
}

// String implements fmt.Stringer.
func (s StaffRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StaffRole.
func (s StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStaffRole converts the raw string to StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
