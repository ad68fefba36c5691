package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when no definition exists for a workflow kind.
var ErrUnknownKind = errors.New("unknown workflow kind")

// MissingFieldError reports a required configuration key that is absent or
// empty.
type MissingFieldError struct {
	Kind  Kind
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q for %s", e.Field, e.Kind)
}

// InvalidCombinationError reports options that cannot be used together, or
// options that must be given together but were not.
type InvalidCombinationError struct {
	Fields []string
	Reason string
}

func (e *InvalidCombinationError) Error() string {
	return fmt.Sprintf("invalid option combination (%s): %s",
		strings.Join(e.Fields, ", "), e.Reason)
}

// InvalidValueError reports a value outside the accepted set or range.
type InvalidValueError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Field, e.Reason)
}
