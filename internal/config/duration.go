package config

import (
	"strings"
	"time"
)

// ParseDurationField parses an optional Go duration string. Empty yields 0.
// Failures are *Error values naming field.
func ParseDurationField(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	switch {
	case err != nil:
		return 0, Errorf(field, "invalid duration %q", raw)
	case d < 0:
		return 0, Errorf(field, "must be >= 0")
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def for empty or zero.
func ParseDurationOrDefault(field, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(field, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
