package bookkeeping

import (
	"errors"
	"fmt"
)

var (
	// ErrCurrencyMismatch is returned by arithmetic between amounts of different commodities.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrOverflow is returned when an exact result does not fit the fixed width numerator.
	ErrOverflow = errors.New("amount overflow")
	// ErrDivideByZero is returned when dividing by a zero amount or scalar.
	ErrDivideByZero = errors.New("division by zero")
	// ErrMissingReference is returned by storage when an entity references an
	// account, transaction or template that does not exist.
	ErrMissingReference = errors.New("missing reference")
	// ErrNotFound is returned by lookups of unknown identifiers.
	ErrNotFound = errors.New("not found")
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("parse error")
)

// ParseError reports malformed amount or recurrence text.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

// Is makes errors.Is(err, ErrParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

func parseError(input, format string, args ...any) *ParseError {
	return &ParseError{Input: input, Reason: fmt.Sprintf(format, args...)}
}

// mismatch wraps ErrCurrencyMismatch with the two commodity codes.
func mismatch(a, b Commodity) error {
	return fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, a.Code(), b.Code())
}
