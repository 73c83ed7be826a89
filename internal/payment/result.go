package payment

import "fmt"

// ErrorKind classifies why a payment attempt failed.
type ErrorKind string

const (
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindNetworkError      ErrorKind = "network_error"
	KindTimeout           ErrorKind = "timeout"
	KindInvalidCard       ErrorKind = "invalid_card"
	KindDeclined          ErrorKind = "declined"
	KindInvalidMethod     ErrorKind = "invalid_method"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindUnavailable       ErrorKind = "unavailable"
)

// randomKinds is the pool of failure kinds a processed-but-rejected
// payment draws from. Validation and availability kinds are excluded.
var randomKinds = []ErrorKind{
	KindInsufficientFunds,
	KindNetworkError,
	KindTimeout,
	KindInvalidCard,
	KindDeclined,
}

// Message returns the human-readable failure message for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindInsufficientFunds:
		return "Insufficient funds in account"
	case KindNetworkError:
		return "Network connection error"
	case KindTimeout:
		return "Payment request timeout"
	case KindInvalidCard:
		return "Invalid card details"
	case KindDeclined:
		return "Payment declined by bank"
	case KindInvalidMethod:
		return "Invalid payment method"
	case KindInvalidAmount:
		return "Invalid amount"
	case KindUnavailable:
		return "Payment provider unavailable"
	default:
		return "Unknown payment error"
	}
}

// isTransport reports whether the kind indicates a transport problem
// rather than a business rejection. Transport failures feed the
// circuit breaker.
func (k ErrorKind) isTransport() bool {
	return k == KindNetworkError || k == KindTimeout
}

// Result is the outcome of one gateway call. A rejected payment is a
// normal Result with Success=false, not an error.
type Result struct {
	Success       bool
	TransactionID string
	Message       string
	ErrorKind     ErrorKind
}

// newFailure builds a failure Result for the given kind.
func newFailure(kind ErrorKind) *Result {
	return &Result{
		Success:   false,
		Message:   kind.Message(),
		ErrorKind: kind,
	}
}

// String returns a short summary for logs.
func (r *Result) String() string {
	if r.Success {
		return fmt.Sprintf("Result{success=true, tx=%s}", r.TransactionID)
	}
	return fmt.Sprintf("Result{success=false, kind=%s, message=%q}", r.ErrorKind, r.Message)
}

// GatewayError is returned when a caller required a successful payment
// but the gateway reported a failure.
type GatewayError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway failure (%s): %s", e.Kind, e.Message)
}
