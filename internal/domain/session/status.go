package session

// State represents the phase of a ticket purchase session.
type State string

const (
	StateIdle                  State = "idle"
	StateTicketSelected        State = "ticket_selected"
	StatePaymentMethodSelected State = "payment_method_selected"
	StatePaymentProcessing     State = "payment_processing"
	StatePaymentSuccess        State = "payment_success"
	StatePaymentFailed         State = "payment_failed"
	StateQRGenerated           State = "qr_generated"
	StateTicketActive          State = "ticket_active"
	StateTicketExpired         State = "ticket_expired"

	// StateError is reserved for unrecoverable conditions. No normal
	// transition reaches it.
	StateError State = "error"
)

// States returns all session states.
func States() []State {
	return []State{
		StateIdle,
		StateTicketSelected,
		StatePaymentMethodSelected,
		StatePaymentProcessing,
		StatePaymentSuccess,
		StatePaymentFailed,
		StateQRGenerated,
		StateTicketActive,
		StateTicketExpired,
		StateError,
	}
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks if the state is a known session state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateTicketSelected, StatePaymentMethodSelected,
		StatePaymentProcessing, StatePaymentSuccess, StatePaymentFailed,
		StateQRGenerated, StateTicketActive, StateTicketExpired, StateError:
		return true
	}
	return false
}

// DisplayName returns the human-readable state name.
func (s State) DisplayName() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTicketSelected:
		return "Ticket Selected"
	case StatePaymentMethodSelected:
		return "Payment Method Selected"
	case StatePaymentProcessing:
		return "Payment Processing"
	case StatePaymentSuccess:
		return "Payment Success"
	case StatePaymentFailed:
		return "Payment Failed"
	case StateQRGenerated:
		return "QR Generated"
	case StateTicketActive:
		return "Ticket Active"
	case StateTicketExpired:
		return "Ticket Expired"
	case StateError:
		return "Error"
	default:
		return string(s)
	}
}

// Description returns a short description of the state.
func (s State) Description() string {
	switch s {
	case StateIdle:
		return "No active purchase"
	case StateTicketSelected:
		return "User selected a ticket type"
	case StatePaymentMethodSelected:
		return "User selected payment method"
	case StatePaymentProcessing:
		return "Payment transaction in progress"
	case StatePaymentSuccess:
		return "Payment completed successfully"
	case StatePaymentFailed:
		return "Payment transaction failed"
	case StateQRGenerated:
		return "QR code created for ticket"
	case StateTicketActive:
		return "Ticket validated and active"
	case StateTicketExpired:
		return "Ticket validity period ended"
	case StateError:
		return "System error occurred"
	default:
		return "Unknown state"
	}
}

// transitions defines valid state transitions.
var transitions = map[State][]State{
	StateIdle:                  {StateTicketSelected},
	StateTicketSelected:        {StatePaymentMethodSelected, StateIdle},
	StatePaymentMethodSelected: {StatePaymentProcessing, StateIdle},
	StatePaymentProcessing:     {StatePaymentSuccess, StatePaymentFailed},
	StatePaymentSuccess:        {StateQRGenerated},
	StatePaymentFailed:         {StatePaymentMethodSelected, StateIdle},
	StateQRGenerated:           {StateTicketActive},
	StateTicketActive:          {StateTicketExpired},
	StateTicketExpired:         {StateIdle},
	StateError:                 {},
}

// CanTransitionTo checks if a transition from the current state to
// target is valid.
func (s State) CanTransitionTo(target State) bool {
	allowed, ok := transitions[s]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all allowed transitions from the current
// state.
func (s State) AllowedTransitions() []State {
	allowed, ok := transitions[s]
	if !ok {
		return []State{}
	}
	result := make([]State, len(allowed))
	copy(result, allowed)
	return result
}
