// Package slug normalizes and validates account and container slugs.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLen is the longest slug accepted, in bytes.
const MaxLen = 255

var pattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Normalize lower-cases s, maps spaces and underscores to hyphens, drops
// any other character outside [a-z0-9-] and collapses hyphen runs.
func Normalize(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("slug cannot be empty")
	}

	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == ' ' || r == '_':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "", fmt.Errorf("slug %q has no alphanumeric characters", s)
	}
	return out, Validate(out)
}

// Validate checks s without normalizing it.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if len(s) > MaxLen {
		return fmt.Errorf("slug exceeds maximum length of %d bytes", MaxLen)
	}
	if !pattern.MatchString(s) {
		return fmt.Errorf("invalid slug %q: must be lowercase, start with alphanumeric, and contain only [a-z0-9-]", s)
	}
	return nil
}
