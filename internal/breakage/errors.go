package breakage

import (
	"errors"
	"fmt"

	"github.com/roach88/bondbreak/internal/ir"
)

// ErrHandlerNotFound is wrapped by errors returned for unknown handler names.
var ErrHandlerNotFound = errors.New("handler not found")

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeHandlerNotFound indicates an unknown handler name.
	ErrCodeHandlerNotFound RuntimeErrorCode = "HANDLER_NOT_FOUND"

	// ErrCodePreconditionViolation indicates an event a handler cannot apply,
	// e.g. a collision bond between particles that are not virtual sites.
	ErrCodePreconditionViolation RuntimeErrorCode = "PRECONDITION_VIOLATION"

	// ErrCodeTopologyFailure indicates the topology store returned an error.
	ErrCodeTopologyFailure RuntimeErrorCode = "TOPOLOGY_FAILURE"

	// ErrCodeUnbreakableBond indicates an overstretched bond whose type is
	// not marked breakable.
	ErrCodeUnbreakableBond RuntimeErrorCode = "UNBREAKABLE_BOND"
)

// RuntimeError represents an error detected while configuring or flushing.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Handler names the handler involved, if any.
	Handler string

	// Event is the break event being processed, if any.
	Event *ir.BreakEvent

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	switch {
	case e.Event != nil && e.Handler != "":
		return fmt.Sprintf("%s: %s (handler=%s, %s)", e.Code, e.Message, e.Handler, e.Event)
	case e.Event != nil:
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Event)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewHandlerNotFoundError creates the error returned for an unknown name.
// The message names the offending token.
func NewHandlerNotFoundError(name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHandlerNotFound,
		Message: "Unknown handler name " + name,
		Handler: name,
		Err:     ErrHandlerNotFound,
	}
}

// NewPreconditionError creates a precondition violation for one event.
func NewPreconditionError(handler string, ev ir.BreakEvent, message string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodePreconditionViolation,
		Message: message,
		Handler: handler,
		Event:   &ev,
		Err:     cause,
	}
}

// NewTopologyError wraps a store failure hit while handling an event.
func NewTopologyError(handler string, ev ir.BreakEvent, op string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTopologyFailure,
		Message: op + " failed",
		Handler: handler,
		Event:   &ev,
		Err:     cause,
	}
}

// NewUnbreakableBondError reports an overstretched bond that may not break.
func NewUnbreakableBondError(ev ir.BreakEvent) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnbreakableBond,
		Message: fmt.Sprintf("bond of type %d exceeded its range but is not breakable", ev.Type),
		Event:   &ev,
	}
}

// IsHandlerNotFound returns true if err reports an unknown handler name.
// Uses errors.As to handle wrapped errors.
func IsHandlerNotFound(err error) bool {
	return hasCode(err, ErrCodeHandlerNotFound)
}

// IsPreconditionViolation returns true if err is a precondition violation.
func IsPreconditionViolation(err error) bool {
	return hasCode(err, ErrCodePreconditionViolation)
}

// CodeOf extracts the runtime error code, or "" if err is not a RuntimeError.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func hasCode(err error, code RuntimeErrorCode) bool {
	return CodeOf(err) == code
}
