package session

import (
	"errors"
	"fmt"
)

// Domain errors for purchase sessions.
var (
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMaxRetriesExceeded = errors.New("maximum payment retries exceeded")
)

// TransitionError reports an operation invoked outside its
// precondition state. The session is left untouched.
type TransitionError struct {
	From      State
	Operation string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: cannot %s in state %s", ErrInvalidTransition, e.Operation, e.From)
}

// Unwrap makes the error match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
