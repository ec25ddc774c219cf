package domain

import (
	"fmt"
	"regexp"
	"time"
)

// UUIDv4Regex validates lowercase UUIDv4 format
var UUIDv4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidateUUID validates a UUID v4 format (lowercase with hyphens)
func ValidateUUID(uuid string) error {
	if !UUIDv4Regex.MatchString(uuid) {
		return fmt.Errorf("invalid UUID: must be lowercase UUIDv4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)")
	}
	return nil
}

// ValidateAccountRole validates an account role
func ValidateAccountRole(role string) error {
	switch AccountRole(role) {
	case AccountRoleHuman, AccountRoleAgent, AccountRoleSystem:
		return nil
	default:
		return fmt.Errorf("invalid account role: must be one of: human, agent, system")
	}
}

// ValidateDescriptor checks the fields every operation descriptor must carry.
// Name resolution is left to the merge resolver.
func ValidateDescriptor(d OperationDescriptor) error {
	if d.Model == "" {
		return fmt.Errorf("operation is missing a model locator")
	}
	if d.Strategy == "" {
		return fmt.Errorf("operation %s is missing a strategy locator", d.Model)
	}
	return nil
}

// ParseTimestamp parses a timestamp as stored by SQLite (RFC3339 or
// "YYYY-MM-DD HH:MM:SS").
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: expected ISO8601/RFC3339")
	}
	return t, nil
}
