package types

import (
	"fmt"
	"regexp"
	"strings"
)

// NIC is the unique identification code assigned to a victim record.
// It is case-independent: the same person keeps the same NIC across cases.
// Format: 6 to 20 alphanumeric characters, stored uppercase.
type NIC string

var nicRegex = regexp.MustCompile(`^[A-Z0-9-]{6,20}$`)

// ParseNIC validates and normalizes a NIC string
func ParseNIC(s string) (NIC, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if !nicRegex.MatchString(normalized) {
		return "", fmt.Errorf("NIC must be 6-20 alphanumeric characters")
	}
	return NIC(normalized), nil
}

// String returns the string representation
func (n NIC) String() string {
	return string(n)
}

// Masked returns a masked version for display (first 3 characters visible)
func (n NIC) Masked() string {
	if len(n) < 6 {
		return "******"
	}
	return string(n)[:3] + strings.Repeat("*", len(n)-3)
}

// IsZero checks if the NIC is empty
func (n NIC) IsZero() bool {
	return n == ""
}
