// Package fault carries application-level logic errors: states the movement
// and squad code cannot continue from, such as an orientation with no
// rotation table or a rally that was never assigned.
package fault

import (
	"errors"
	"fmt"
)

// Severity ranks how far a fault should propagate.
type Severity int

const (
	SevInfo Severity = iota
	SevWarn
	SevError
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarn:
		return "warn"
	case SevError:
		return "error"
	case SevFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Error is a distinguishable logic or configuration error.
type Error struct {
	Message  string
	Source   string // component that raised it, e.g. "squad/formation"
	Severity Severity
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Severity, e.Source, e.Message)
}

// New builds an Error with Error severity.
func New(source, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Source: source, Severity: SevError}
}

// WithSeverity builds an Error with the given severity.
func WithSeverity(sev Severity, source, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Source: source, Severity: sev}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Is reports whether err wraps a fault.
func Is(err error) bool {
	_, ok := As(err)
	return ok
}

// IsFatal reports whether err wraps a fault that must stop the caller.
func IsFatal(err error) bool {
	fe, ok := As(err)
	return ok && fe.Severity >= SevFatal
}
