package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tiermigrate/internal/ir"
)

// OpError is a failed entry point. The transaction was rolled back; Err is
// the cause, usually an *ir.Error.
type OpError struct {
	// Op names the entry point.
	Op string

	// FlowToken is the flow the call ran under. Nothing was logged for it.
	FlowToken string

	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.FlowToken != "" {
		return fmt.Sprintf("%s: %v (flow=%s)", e.Op, e.Err, e.FlowToken)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err is a rule violation rather than an
// infrastructure failure. Uses errors.As to handle wrapped errors.
func IsDomainError(err error) bool {
	var de *ir.Error
	return errors.As(err, &de)
}

// Outcome is the metrics label for err: "ok", the domain error code, or
// "internal".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return "internal"
}
