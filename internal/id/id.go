// Package id formats and parses the friendly IDs (A-00001, T-00042, ...)
// that the database assigns to accounts and owned records.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Type represents the type of resource
type Type string

const (
	TypeAccount    Type = "account"
	TypeContainer  Type = "container"
	TypeTask       Type = "task"
	TypeComment    Type = "comment"
	TypeAttachment Type = "attachment"
)

type prefixSpec struct {
	typ     Type
	prefix  string
	pattern *regexp.Regexp
}

var (
	prefixes = []prefixSpec{
		{TypeAccount, "A-", regexp.MustCompile(`^A-\d{5,}$`)},
		{TypeContainer, "P-", regexp.MustCompile(`^P-\d{5,}$`)},
		{TypeTask, "T-", regexp.MustCompile(`^T-\d{5,}$`)},
		{TypeComment, "C-", regexp.MustCompile(`^C-\d{5,}$`)},
		{TypeAttachment, "ATT-", regexp.MustCompile(`^ATT-\d{5,}$`)},
	}
	uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Format formats a friendly ID for the given resource type.
func Format(t Type, seq int) string {
	for _, p := range prefixes {
		if p.typ == t {
			return fmt.Sprintf("%s%05d", p.prefix, seq)
		}
	}
	return strconv.Itoa(seq)
}

// FormatAccount formats an account friendly ID
func FormatAccount(seq int) string {
	return Format(TypeAccount, seq)
}

// Parse parses an ID string and returns the type and sequence number
func Parse(id string) (Type, int, error) {
	id = strings.TrimSpace(id)

	for _, p := range prefixes {
		if p.pattern.MatchString(id) {
			seq, err := strconv.Atoi(id[len(p.prefix):])
			if err != nil {
				return "", 0, fmt.Errorf("invalid friendly ID sequence: %s", id)
			}
			return p.typ, seq, nil
		}
	}
	return "", 0, fmt.Errorf("invalid friendly ID format: %s", id)
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.ToLower(s))
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}

// IsAccountID checks if a string is an account friendly ID
func IsAccountID(s string) bool {
	t, _, err := Parse(s)
	return err == nil && t == TypeAccount
}
