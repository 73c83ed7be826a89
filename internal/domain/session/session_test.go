package session

import (
	"context"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
	"github.com/budapestgo/ticketing/internal/domain/ticket"
	"github.com/budapestgo/ticketing/internal/payment"
)

var (
	transactionIDPattern = regexp.MustCompile(`^TX-[A-Z0-9]{8}$`)
	qrCodePattern        = regexp.MustCompile(`^QR-[0-9a-f]{8}-[A-Za-z0-9]{1,8}$`)
)

// --- Mock implementation ---

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ProcessPayment(ctx context.Context, method catalog.PaymentMethod, amount int64) (*payment.Result, error) {
	args := m.Called(ctx, method, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

// --- Helpers ---

func forcedGateway(t *testing.T, successRate float64) payment.Gateway {
	t.Helper()
	g, err := payment.NewSimulatedGateway(
		payment.Config{SuccessRate: successRate, MinLatency: 0, MaxLatency: 0},
		rand.New(rand.NewPCG(1, 0)), zap.NewNop(), nil)
	require.NoError(t, err)
	return g
}

func successSession(t *testing.T) *Session {
	t.Helper()
	return New(forcedGateway(t, 1.0), 0, zap.NewNop(), nil)
}

// driveTo advances a session along the happy path until it reaches
// target. PaymentFailed branches off after payment processing.
func driveTo(t *testing.T, s *Session, target State) {
	t.Helper()
	ctx := context.Background()

	if target == StatePaymentFailed {
		driveTo(t, s, StatePaymentProcessing)
		require.NoError(t, s.CompletePaymentWithFailure())
		return
	}

	steps := []struct {
		state State
		fn    func() error
	}{
		{StateTicketSelected, func() error { return s.SelectTicketType(catalog.TypeSingle) }},
		{StatePaymentMethodSelected, func() error { return s.ChoosePaymentMethod(catalog.MethodCard) }},
		{StatePaymentProcessing, s.InitiatePaymentProcessing},
		{StatePaymentSuccess, func() error { return s.CompletePaymentWithSuccess(ctx) }},
		{StateQRGenerated, s.GenerateQRCode},
		{StateTicketActive, s.ValidateTicket},
		{StateTicketExpired, s.ExpireTicket},
	}

	for _, step := range steps {
		if s.State() == target {
			return
		}
		require.NoError(t, step.fn())
		require.Equal(t, step.state, s.State())
	}
	require.Equal(t, target, s.State())
}

func assertCleared(t *testing.T, s *Session) {
	t.Helper()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.SelectedTicketType())
	assert.Empty(t, s.SelectedPaymentMethod())
	assert.Empty(t, s.TransactionID())
	assert.Nil(t, s.CurrentTicket())
	assert.Zero(t, s.RetryCount())
}

// --- Tests ---

func TestNew(t *testing.T) {
	s := successSession(t)
	assert.True(t, s.IsInState(StateIdle))
	assertCleared(t, s)
}

// Happy path: Idle -> ... -> TicketActive with an 80-minute single
// ticket.
func TestHappyPath(t *testing.T) {
	ctx := context.Background()
	s := successSession(t)

	require.NoError(t, s.SelectTicketType(catalog.TypeSingle))
	assert.Equal(t, StateTicketSelected, s.State())
	assert.Equal(t, catalog.TypeSingle, s.SelectedTicketType())
	assert.Empty(t, s.TransactionID())

	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodCard))
	assert.Equal(t, StatePaymentMethodSelected, s.State())
	assert.Equal(t, catalog.MethodCard, s.SelectedPaymentMethod())

	require.NoError(t, s.InitiatePaymentProcessing())
	assert.Equal(t, StatePaymentProcessing, s.State())
	assert.Empty(t, s.TransactionID())

	require.NoError(t, s.CompletePaymentWithSuccess(ctx))
	assert.Equal(t, StatePaymentSuccess, s.State())
	assert.Regexp(t, transactionIDPattern, s.TransactionID())
	assert.Zero(t, s.RetryCount())
	assert.Nil(t, s.CurrentTicket())

	require.NoError(t, s.GenerateQRCode())
	assert.Equal(t, StateQRGenerated, s.State())
	tk := s.CurrentTicket()
	require.NotNil(t, tk)
	assert.Regexp(t, qrCodePattern, tk.QRCode())
	assert.Equal(t, s.TransactionID(), tk.TransactionID())
	assert.False(t, tk.IsActive())

	require.NoError(t, s.ValidateTicket())
	assert.Equal(t, StateTicketActive, s.State())
	assert.True(t, tk.IsActive())
	assert.Equal(t, 80*time.Minute, tk.ExpiryTime().Sub(tk.ValidationTime()))
}

func TestFullCycle_ExpireAndReset(t *testing.T) {
	s := successSession(t)
	driveTo(t, s, StateTicketActive)

	require.NoError(t, s.ExpireTicket())
	assert.Equal(t, StateTicketExpired, s.State())
	assert.False(t, s.CurrentTicket().IsActive())
	// ticket stays readable for audit until reset
	assert.NotNil(t, s.CurrentTicket())

	require.NoError(t, s.Reset())
	assertCleared(t, s)
}

// Retry exhaustion via the convenience path: three failed attempts
// with retries in between, then the fourth retry attempt fails with
// ErrMaxRetriesExceeded and resets the session.
func TestRetryExhaustion_ProcessPaymentPath(t *testing.T) {
	ctx := context.Background()
	s := New(forcedGateway(t, 0.0), 0, zap.NewNop(), nil)

	require.NoError(t, s.SelectTicketType(catalog.TypeDayPass))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodGooglePay))

	for i := 1; i <= MaxRetryCount; i++ {
		ok, err := s.ProcessPayment(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, StatePaymentFailed, s.State())

		require.NoError(t, s.RetryPayment())
		assert.Equal(t, StatePaymentMethodSelected, s.State())
		assert.Equal(t, i, s.RetryCount())
	}

	ok, err := s.ProcessPayment(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, MaxRetryCount, s.RetryCount())

	err = s.RetryPayment()
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assertCleared(t, s)
}

// Retry exhaustion via the split operations, where failures consume
// retries too.
func TestRetryExhaustion_SplitPath(t *testing.T) {
	s := New(forcedGateway(t, 0.0), 0, zap.NewNop(), nil)
	driveTo(t, s, StatePaymentFailed)
	assert.Equal(t, 1, s.RetryCount())

	require.NoError(t, s.RetryPayment())
	assert.Equal(t, 2, s.RetryCount())

	require.NoError(t, s.InitiatePaymentProcessing())
	require.NoError(t, s.CompletePaymentWithFailure())
	assert.Equal(t, 3, s.RetryCount())

	err := s.RetryPayment()
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assertCleared(t, s)
}

func TestRetryCount_NeverExceedsMax(t *testing.T) {
	ctx := context.Background()
	s := New(forcedGateway(t, 0.0), 0, zap.NewNop(), nil)

	require.NoError(t, s.SelectTicketType(catalog.TypeSingle))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodCard))

	for {
		_, err := s.ProcessPayment(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.RetryCount(), MaxRetryCount)
		if err := s.RetryPayment(); err != nil {
			assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
			break
		}
		assert.LessOrEqual(t, s.RetryCount(), MaxRetryCount)
	}
	assertCleared(t, s)
}

// Illegal transition: the session reports the state it was in and the
// operation attempted, and stays put.
func TestIllegalTransition_GenerateQRCodeFromIdle(t *testing.T) {
	s := successSession(t)

	err := s.GenerateQRCode()
	require.Error(t, err)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StateIdle, te.From)
	assert.Equal(t, "generateQRCode", te.Operation)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, s.State())
}

// Sweep every operation from every reachable state outside its
// precondition.
func TestIllegalTransition_Sweep(t *testing.T) {
	ctx := context.Background()

	ops := []struct {
		name    string
		call    func(*Session) error
		allowed []State
	}{
		{"selectTicketType", func(s *Session) error { return s.SelectTicketType(catalog.TypeSingle) }, []State{StateIdle}},
		{"choosePaymentMethod", func(s *Session) error { return s.ChoosePaymentMethod(catalog.MethodCard) }, []State{StateTicketSelected}},
		{"initiatePaymentProcessing", func(s *Session) error { return s.InitiatePaymentProcessing() }, []State{StatePaymentMethodSelected}},
		{"completePaymentWithSuccess", func(s *Session) error { return s.CompletePaymentWithSuccess(ctx) }, []State{StatePaymentProcessing}},
		{"completePaymentWithFailure", func(s *Session) error { return s.CompletePaymentWithFailure() }, []State{StatePaymentProcessing}},
		{"retryPayment", func(s *Session) error { return s.RetryPayment() }, []State{StatePaymentFailed}},
		{"generateQRCode", func(s *Session) error { return s.GenerateQRCode() }, []State{StatePaymentSuccess}},
		{"validateTicket", func(s *Session) error { return s.ValidateTicket() }, []State{StateQRGenerated}},
		{"expireTicket", func(s *Session) error { return s.ExpireTicket() }, []State{StateTicketActive}},
		{"cancelPurchase", func(s *Session) error { return s.CancelPurchase() }, []State{StateTicketSelected, StatePaymentMethodSelected, StatePaymentFailed}},
		{"reset", func(s *Session) error { return s.Reset() }, []State{StateTicketExpired}},
		{"processPayment", func(s *Session) error { _, err := s.ProcessPayment(ctx); return err }, []State{StatePaymentMethodSelected}},
	}

	reachable := []State{
		StateIdle, StateTicketSelected, StatePaymentMethodSelected,
		StatePaymentProcessing, StatePaymentSuccess, StatePaymentFailed,
		StateQRGenerated, StateTicketActive, StateTicketExpired,
	}

	for _, op := range ops {
		for _, from := range reachable {
			legal := false
			for _, a := range op.allowed {
				if a == from {
					legal = true
				}
			}
			if legal {
				continue
			}

			t.Run(op.name+"_from_"+string(from), func(t *testing.T) {
				s := successSession(t)
				driveTo(t, s, from)
				before := s.String()

				err := op.call(s)
				var te *TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, from, te.From)
				assert.Equal(t, op.name, te.Operation)
				assert.Equal(t, before, s.String())
			})
		}
	}
}

// Cancellation from PaymentMethodSelected clears everything.
func TestCancelPurchase(t *testing.T) {
	s := successSession(t)

	require.NoError(t, s.SelectTicketType(catalog.TypeWeekly))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodApplePay))
	require.NoError(t, s.CancelPurchase())
	assertCleared(t, s)
}

func TestCancelPurchase_FromAllAllowedStates(t *testing.T) {
	for _, from := range []State{StateTicketSelected, StatePaymentMethodSelected, StatePaymentFailed} {
		t.Run(string(from), func(t *testing.T) {
			s := successSession(t)
			driveTo(t, s, from)
			require.NoError(t, s.CancelPurchase())
			assertCleared(t, s)
		})
	}
}

func TestSelectTicketType_InvalidArgument(t *testing.T) {
	s := successSession(t)

	err := s.SelectTicketType(catalog.TicketType("bogus"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.SelectedTicketType())
}

func TestChoosePaymentMethod_InvalidArgument(t *testing.T) {
	s := successSession(t)
	require.NoError(t, s.SelectTicketType(catalog.TypeSingle))

	err := s.ChoosePaymentMethod(catalog.PaymentMethod("cash"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, StateTicketSelected, s.State())
	assert.Empty(t, s.SelectedPaymentMethod())
}

// A gateway rejection during CompletePaymentWithSuccess is a contract
// violation: the caller should have routed to the failure operation.
// The session stays in PaymentProcessing.
func TestCompletePaymentWithSuccess_GatewayRejection(t *testing.T) {
	ctx := context.Background()
	s := New(forcedGateway(t, 0.0), 0, zap.NewNop(), nil)
	driveTo(t, s, StatePaymentProcessing)

	err := s.CompletePaymentWithSuccess(ctx)
	require.Error(t, err)

	var ge *payment.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.NotEmpty(t, ge.Kind)
	assert.Equal(t, StatePaymentProcessing, s.State())
	assert.Empty(t, s.TransactionID())
	assert.Zero(t, s.RetryCount())
}

func TestProcessPayment_Success(t *testing.T) {
	ctx := context.Background()
	s := successSession(t)

	require.NoError(t, s.SelectTicketType(catalog.TypeMonthly))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodCard))

	ok, err := s.ProcessPayment(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatePaymentSuccess, s.State())
	assert.Regexp(t, transactionIDPattern, s.TransactionID())
}

// A gateway call that outlives the session's timeout is treated as a
// payment failure, not a hung PaymentProcessing state.
func TestProcessPayment_GatewayTimeout(t *testing.T) {
	slow, err := payment.NewSimulatedGateway(
		payment.Config{SuccessRate: 1.0, MinLatency: 200 * time.Millisecond, MaxLatency: 200 * time.Millisecond},
		rand.New(rand.NewPCG(1, 0)), zap.NewNop(), nil)
	require.NoError(t, err)

	s := New(slow, 5*time.Millisecond, zap.NewNop(), nil)
	require.NoError(t, s.SelectTicketType(catalog.TypeSingle))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodCard))

	ok, err := s.ProcessPayment(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StatePaymentFailed, s.State())
}

// The gateway is invoked with the selected method and the catalog
// price of the selected type.
func TestGatewayInvocation(t *testing.T) {
	ctx := context.Background()
	gw := new(MockGateway)
	gw.On("ProcessPayment", mock.Anything, catalog.MethodGooglePay, int64(1650)).
		Return(&payment.Result{Success: true, TransactionID: "TX-AB12CD34"}, nil).
		Once()

	s := New(gw, 0, zap.NewNop(), nil)
	require.NoError(t, s.SelectTicketType(catalog.TypeDayPass))
	require.NoError(t, s.ChoosePaymentMethod(catalog.MethodGooglePay))

	ok, err := s.ProcessPayment(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "TX-AB12CD34", s.TransactionID())
	gw.AssertExpectations(t)
}

// transactionId and currentTicket are set exactly in the states the
// lifecycle prescribes.
func TestExtendedStateInvariants(t *testing.T) {
	withTransaction := map[State]bool{
		StatePaymentSuccess: true, StateQRGenerated: true,
		StateTicketActive: true, StateTicketExpired: true,
	}
	withTicket := map[State]bool{
		StateQRGenerated: true, StateTicketActive: true, StateTicketExpired: true,
	}

	for _, target := range []State{
		StateIdle, StateTicketSelected, StatePaymentMethodSelected,
		StatePaymentProcessing, StatePaymentSuccess, StatePaymentFailed,
		StateQRGenerated, StateTicketActive, StateTicketExpired,
	} {
		t.Run(string(target), func(t *testing.T) {
			s := successSession(t)
			driveTo(t, s, target)

			assert.Equal(t, withTransaction[target], s.TransactionID() != "", "transaction id presence")
			assert.Equal(t, withTicket[target], s.CurrentTicket() != nil, "ticket presence")
			if tk := s.CurrentTicket(); tk != nil {
				assert.Equal(t, target == StateTicketActive, tk.IsActive())
			}
		})
	}
}

func TestValidateTicket_DoubleValidation(t *testing.T) {
	s := successSession(t)
	driveTo(t, s, StateTicketActive)

	// second validation is an illegal transition at the session level
	err := s.ValidateTicket()
	var te *TransitionError
	require.ErrorAs(t, err, &te)

	// and the ticket itself also refuses
	assert.ErrorIs(t, s.CurrentTicket().Validate(), ticket.ErrAlreadyActive)
	assert.Equal(t, StateTicketActive, s.State())
}

func TestString(t *testing.T) {
	s := successSession(t)
	require.NoError(t, s.SelectTicketType(catalog.TypeSingle))
	assert.Contains(t, s.String(), "state=ticket_selected")
	assert.Contains(t, s.String(), "retryCount=0")
}

func TestStateMetadata(t *testing.T) {
	for _, st := range States() {
		assert.True(t, st.IsValid())
		assert.NotEmpty(t, st.DisplayName())
		assert.NotEmpty(t, st.Description())
	}
	assert.False(t, State("warp").IsValid())

	assert.True(t, StateIdle.CanTransitionTo(StateTicketSelected))
	assert.False(t, StateIdle.CanTransitionTo(StateQRGenerated))
	assert.Empty(t, StateError.AllowedTransitions())
	assert.ElementsMatch(t,
		[]State{StatePaymentSuccess, StatePaymentFailed},
		StatePaymentProcessing.AllowedTransitions())
}
