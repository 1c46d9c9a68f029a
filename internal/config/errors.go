package config

import (
	"errors"
	"fmt"
)

// Error reports an invalid or incomplete configuration. It is fatal at startup.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Msg
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Msg)
}

// Errorf builds a *Error for field.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IsError reports whether err (or anything it wraps) is a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
