package ppm

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic      = errors.New("bad magic")
	ErrBadDimensions = errors.New("bad dimensions")
	ErrBadMaxValue   = errors.New("bad maxValue")
	ErrBadSample     = errors.New("bad sample")
	ErrTruncated     = errors.New("truncated data")
)

// FormatError reports malformed P3 input. Line is the 1-based line of the
// input text where the problem was found, or 0 when no such line exists.
type FormatError struct {
	Reason error
	Line   int
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("ppm: %s", e.Reason)
	}
	return fmt.Sprintf("ppm: %s at line %d", e.Reason, e.Line)
}

func (e *FormatError) Unwrap() error {
	return e.Reason
}

func formatError(reason error, line int) error {
	return &FormatError{
		Reason: reason,
		Line:   line,
	}
}
