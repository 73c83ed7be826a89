package ticket

import "errors"

// Domain errors for tickets.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyActive   = errors.New("ticket is already active")
	ErrNotActive       = errors.New("ticket is not active")
)
