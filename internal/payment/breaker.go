package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
)

// errTransportFailure marks a Result whose failure kind should count
// against the circuit breaker. It never escapes this package.
var errTransportFailure = errors.New("transport-level gateway failure")

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold    uint32
	OpenTimeout         time.Duration
	MaxHalfOpenRequests uint32
}

// DefaultBreakerConfig returns the default circuit breaker configuration.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		OpenTimeout:         30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// BreakerGateway wraps a Gateway with a circuit breaker. Consecutive
// transport failures (network errors, timeouts) open the circuit;
// while open, calls short-circuit to an unavailable-kind failure
// without reaching the inner gateway.
type BreakerGateway struct {
	inner  Gateway
	cb     *gobreaker.CircuitBreaker[*Result]
	logger *zap.Logger
}

// NewBreakerGateway creates a circuit-breaking wrapper around inner.
func NewBreakerGateway(inner Gateway, cfg BreakerConfig, logger *zap.Logger) *BreakerGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	g := &BreakerGateway{inner: inner, logger: logger}
	g.cb = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return g
}

// ProcessPayment delegates to the inner gateway through the breaker.
func (g *BreakerGateway) ProcessPayment(ctx context.Context, method catalog.PaymentMethod, amountMinorUnits int64) (*Result, error) {
	result, err := g.cb.Execute(func() (*Result, error) {
		r, err := g.inner.ProcessPayment(ctx, method, amountMinorUnits)
		if err != nil {
			return nil, err
		}
		if !r.Success && r.ErrorKind.isTransport() {
			return r, errTransportFailure
		}
		return r, nil
	})

	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errTransportFailure):
		// The failure is already expressed in the result.
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("payment short-circuited",
			zap.String("method", method.Identifier()),
			zap.Error(err))
		return newFailure(KindUnavailable), nil
	default:
		return nil, err
	}
}

// State returns the breaker state, exposed for observability.
func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}
