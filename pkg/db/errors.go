package db

import "strings"

// IsUniqueViolation reports whether err is a unique violation. With a
// constraintName the match is narrowed to that constraint, which also works
// under the sqlite driver used in tests; the bare fallback matches the
// Postgres duplicate-key message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
