package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
	"github.com/budapestgo/ticketing/internal/domain/ticket"
	"github.com/budapestgo/ticketing/internal/payment"
	"github.com/budapestgo/ticketing/internal/utils/metrics"
)

// MaxRetryCount is the number of payment retries allowed per purchase.
const MaxRetryCount = 3

// DefaultGatewayTimeout bounds a single gateway call when the caller's
// context carries no earlier deadline.
const DefaultGatewayTimeout = 5 * time.Second

// Session is the purchase session controller: an extended finite-state
// machine tracking one ticket purchase from selection through payment
// to ticket expiry. Every operation checks its precondition state and
// leaves the session untouched on failure; the only exception is
// RetryPayment, which resets the session when retries are exhausted.
//
// A Session is not safe for concurrent use. Callers sharing one must
// serialize access; sessions share no mutable state with each other.
type Session struct {
	state         State
	ticketType    catalog.TicketType
	paymentMethod catalog.PaymentMethod
	transactionID string
	ticket        *ticket.Ticket
	retryCount    int

	gateway        payment.Gateway
	gatewayTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// New creates a session in the Idle state. A zero gatewayTimeout gets
// DefaultGatewayTimeout; metrics may be nil.
func New(gateway payment.Gateway, gatewayTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Session {
	if gatewayTimeout <= 0 {
		gatewayTimeout = DefaultGatewayTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		state:          StateIdle,
		gateway:        gateway,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
		metrics:        m,
	}
	s.logger.Info("purchase session initialized", zap.String("state", string(s.state)))
	return s
}

// SelectTicketType stores the chosen ticket type.
// Transition: Idle -> TicketSelected.
func (s *Session) SelectTicketType(typ catalog.TicketType) error {
	if err := s.guard("selectTicketType", StateIdle); err != nil {
		return err
	}
	if !typ.IsValid() {
		return fmt.Errorf("%w: ticket type %q", ErrInvalidArgument, typ)
	}

	s.ticketType = typ
	s.setState(StateTicketSelected)
	s.logger.Info("ticket type selected",
		zap.String("type", typ.DisplayName()),
		zap.String("state", string(s.state)))
	return nil
}

// ChoosePaymentMethod stores the chosen payment method.
// Transition: TicketSelected -> PaymentMethodSelected.
func (s *Session) ChoosePaymentMethod(method catalog.PaymentMethod) error {
	if err := s.guard("choosePaymentMethod", StateTicketSelected); err != nil {
		return err
	}
	if !method.IsValid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidArgument, method)
	}

	s.paymentMethod = method
	s.setState(StatePaymentMethodSelected)
	s.logger.Info("payment method selected",
		zap.String("method", method.DisplayName()),
		zap.String("state", string(s.state)))
	return nil
}

// InitiatePaymentProcessing starts a payment attempt without settling
// it. Transition: PaymentMethodSelected -> PaymentProcessing.
func (s *Session) InitiatePaymentProcessing() error {
	if err := s.guard("initiatePaymentProcessing", StatePaymentMethodSelected); err != nil {
		return err
	}
	s.setState(StatePaymentProcessing)
	s.logger.Info("payment processing initiated", zap.String("state", string(s.state)))
	return nil
}

// CompletePaymentWithSuccess settles the in-flight payment through the
// gateway, expecting authorization. A gateway-reported failure is a
// contract violation here and surfaces as *payment.GatewayError while
// the session stays in PaymentProcessing; callers expecting failure
// must route to CompletePaymentWithFailure instead.
// Transition: PaymentProcessing -> PaymentSuccess.
func (s *Session) CompletePaymentWithSuccess(ctx context.Context) error {
	if err := s.guard("completePaymentWithSuccess", StatePaymentProcessing); err != nil {
		return err
	}

	result, err := s.callGateway(ctx)
	if err != nil {
		return fmt.Errorf("process payment: %w", err)
	}
	if !result.Success {
		return &payment.GatewayError{Kind: result.ErrorKind, Message: result.Message}
	}

	s.transactionID = result.TransactionID
	s.retryCount = 0
	s.setState(StatePaymentSuccess)
	s.logger.Info("payment successful",
		zap.String("transaction_id", s.transactionID),
		zap.String("state", string(s.state)))
	return nil
}

// CompletePaymentWithFailure settles the in-flight payment as failed
// and consumes one retry. Transition: PaymentProcessing -> PaymentFailed.
func (s *Session) CompletePaymentWithFailure() error {
	if err := s.guard("completePaymentWithFailure", StatePaymentProcessing); err != nil {
		return err
	}

	s.retryCount++
	s.setState(StatePaymentFailed)
	s.logger.Warn("payment failed",
		zap.Int("retry_count", s.retryCount),
		zap.String("state", string(s.state)))
	return nil
}

// RetryPayment returns a failed payment to method selection for
// another attempt. Once MaxRetryCount is reached the session resets to
// Idle and ErrMaxRetriesExceeded is returned; this is the one failure
// path that mutates the session.
// Transition: PaymentFailed -> PaymentMethodSelected.
func (s *Session) RetryPayment() error {
	if err := s.guard("retryPayment", StatePaymentFailed); err != nil {
		return err
	}

	if s.retryCount >= MaxRetryCount {
		s.logger.Error("payment retries exhausted", zap.Int("max_retries", MaxRetryCount))
		if s.metrics != nil {
			s.metrics.RetriesExhaustedTotal.Inc()
		}
		s.resetExtendedState()
		return fmt.Errorf("%w: purchase cancelled after %d attempts", ErrMaxRetriesExceeded, MaxRetryCount)
	}

	s.retryCount++
	if s.metrics != nil {
		s.metrics.RetriesTotal.Inc()
	}
	s.setState(StatePaymentMethodSelected)
	s.logger.Info("retrying payment",
		zap.Int("retry_count", s.retryCount),
		zap.String("state", string(s.state)))
	return nil
}

// GenerateQRCode issues the ticket for the settled payment.
// Transition: PaymentSuccess -> QRGenerated.
func (s *Session) GenerateQRCode() error {
	if err := s.guard("generateQRCode", StatePaymentSuccess); err != nil {
		return err
	}
	if s.transactionID == "" {
		return fmt.Errorf("%w: no transaction id available", ErrInvalidArgument)
	}

	tk, err := ticket.New(s.ticketType, s.transactionID)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}

	s.ticket = tk
	if s.metrics != nil {
		s.metrics.TicketsIssuedTotal.Inc()
	}
	s.setState(StateQRGenerated)
	s.logger.Info("qr code generated",
		zap.String("qr_code", tk.QRCode()),
		zap.String("state", string(s.state)))
	return nil
}

// ValidateTicket activates the issued ticket.
// Transition: QRGenerated -> TicketActive.
func (s *Session) ValidateTicket() error {
	if err := s.guard("validateTicket", StateQRGenerated); err != nil {
		return err
	}
	if s.ticket == nil {
		return fmt.Errorf("%w: no ticket available", ErrInvalidArgument)
	}
	if err := s.ticket.Validate(); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.TicketsValidatedTotal.Inc()
	}
	s.setState(StateTicketActive)
	s.logger.Info("ticket validated",
		zap.Time("expires_at", s.ticket.ExpiryTime()),
		zap.String("state", string(s.state)))
	return nil
}

// ExpireTicket deactivates the active ticket.
// Transition: TicketActive -> TicketExpired.
func (s *Session) ExpireTicket() error {
	if err := s.guard("expireTicket", StateTicketActive); err != nil {
		return err
	}
	if s.ticket == nil {
		return fmt.Errorf("%w: no ticket available", ErrInvalidArgument)
	}
	if err := s.ticket.Expire(); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.TicketsExpiredTotal.Inc()
	}
	s.setState(StateTicketExpired)
	s.logger.Info("ticket expired", zap.String("state", string(s.state)))
	return nil
}

// CancelPurchase abandons an in-progress purchase and clears all
// extended state. Transition: TicketSelected, PaymentMethodSelected,
// or PaymentFailed -> Idle.
func (s *Session) CancelPurchase() error {
	if err := s.guard("cancelPurchase",
		StateTicketSelected, StatePaymentMethodSelected, StatePaymentFailed); err != nil {
		return err
	}

	s.resetExtendedState()
	s.logger.Info("purchase cancelled", zap.String("state", string(s.state)))
	return nil
}

// Reset returns the session to Idle after its ticket expired.
// Transition: TicketExpired -> Idle.
func (s *Session) Reset() error {
	if err := s.guard("reset", StateTicketExpired); err != nil {
		return err
	}

	s.resetExtendedState()
	s.logger.Info("session reset", zap.String("state", string(s.state)))
	return nil
}

// ProcessPayment composes initiate, the gateway call, and the
// success/failure branch for direct use outside a test harness. It
// reports whether the payment was authorized; a rejected payment lands
// the session in PaymentFailed without consuming a retry.
// Transition: PaymentMethodSelected -> PaymentProcessing ->
// PaymentSuccess or PaymentFailed.
func (s *Session) ProcessPayment(ctx context.Context) (bool, error) {
	if err := s.guard("processPayment", StatePaymentMethodSelected); err != nil {
		return false, err
	}

	s.setState(StatePaymentProcessing)

	result, err := s.callGateway(ctx)
	if err != nil {
		// A transport error must not strand the session in
		// PaymentProcessing; it is routed like a failed payment.
		s.setState(StatePaymentFailed)
		s.logger.Error("payment errored", zap.Error(err), zap.String("state", string(s.state)))
		return false, fmt.Errorf("process payment: %w", err)
	}

	if !result.Success {
		s.setState(StatePaymentFailed)
		s.logger.Warn("payment failed",
			zap.String("kind", string(result.ErrorKind)),
			zap.String("message", result.Message),
			zap.String("state", string(s.state)))
		return false, nil
	}

	s.transactionID = result.TransactionID
	s.retryCount = 0
	s.setState(StatePaymentSuccess)
	s.logger.Info("payment successful",
		zap.String("transaction_id", s.transactionID),
		zap.String("state", string(s.state)))
	return true, nil
}

// callGateway invokes the gateway with the session's price and method
// under a bounded context.
func (s *Session) callGateway(ctx context.Context) (*payment.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	return s.gateway.ProcessPayment(ctx, s.paymentMethod, s.ticketType.Price().Amount())
}

// guard returns a TransitionError unless the session is in one of the
// allowed states.
func (s *Session) guard(operation string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return &TransitionError{From: s.state, Operation: operation}
}

// setState moves the session to the given state, recording the
// transition.
func (s *Session) setState(to State) {
	if s.metrics != nil {
		s.metrics.RecordTransition(string(s.state), string(to))
		if s.state == StateIdle && to != StateIdle {
			s.metrics.ActiveSessions.Inc()
		}
		if s.state != StateIdle && to == StateIdle {
			s.metrics.ActiveSessions.Dec()
		}
	}
	s.state = to
}

// resetExtendedState reinitializes every extended-state field and
// returns to Idle. Shared by cancel, reset, and retry exhaustion.
func (s *Session) resetExtendedState() {
	s.ticketType = ""
	s.paymentMethod = ""
	s.transactionID = ""
	s.ticket = nil
	s.retryCount = 0
	s.setState(StateIdle)
}

// State returns the current session state.
func (s *Session) State() State { return s.state }

// IsInState checks if the session is in the given state.
func (s *Session) IsInState(state State) bool { return s.state == state }

// SelectedTicketType returns the chosen ticket type, empty if none.
func (s *Session) SelectedTicketType() catalog.TicketType { return s.ticketType }

// SelectedPaymentMethod returns the chosen payment method, empty if
// none.
func (s *Session) SelectedPaymentMethod() catalog.PaymentMethod { return s.paymentMethod }

// TransactionID returns the settled payment's transaction id, empty
// before a successful payment.
func (s *Session) TransactionID() string { return s.transactionID }

// CurrentTicket returns the issued ticket, nil before QR generation.
func (s *Session) CurrentTicket() *ticket.Ticket { return s.ticket }

// RetryCount returns how many payment retries have been consumed.
func (s *Session) RetryCount() int { return s.retryCount }

// String returns a short summary for logs.
func (s *Session) String() string {
	return fmt.Sprintf("Session{state=%s, ticketType=%s, paymentMethod=%s, transactionID=%q, hasTicket=%t, retryCount=%d}",
		s.state, s.ticketType, s.paymentMethod, s.transactionID, s.ticket != nil, s.retryCount)
}
