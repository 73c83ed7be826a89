package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
	"github.com/budapestgo/ticketing/internal/utils/metrics"
)

// Gateway authorizes payments. Rejections are reported through the
// Result; the error return is reserved for invocation problems.
type Gateway interface {
	ProcessPayment(ctx context.Context, method catalog.PaymentMethod, amountMinorUnits int64) (*Result, error)
}

// DefaultSuccessRate is the authorization probability used when no
// rate is configured.
const DefaultSuccessRate = 0.8

// Config holds simulated gateway configuration.
type Config struct {
	SuccessRate float64
	MinLatency  time.Duration
	MaxLatency  time.Duration
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		SuccessRate: DefaultSuccessRate,
		MinLatency:  100 * time.Millisecond,
		MaxLatency:  300 * time.Millisecond,
	}
}

// SimulatedGateway stands in for a real payment provider. It draws
// authorization outcomes from an injected RNG and sleeps a bounded
// latency per call. The RNG is its only state across calls.
type SimulatedGateway struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedGateway creates a simulated gateway. A nil rng gets a
// time-seeded source; tests pass a seeded one for determinism.
func NewSimulatedGateway(cfg Config, rng *rand.Rand, logger *zap.Logger, m *metrics.Metrics) (*SimulatedGateway, error) {
	if cfg.SuccessRate < 0 || cfg.SuccessRate > 1 {
		return nil, fmt.Errorf("success rate must be between 0.0 and 1.0, got %v", cfg.SuccessRate)
	}
	if cfg.MinLatency < 0 || cfg.MaxLatency < cfg.MinLatency {
		return nil, fmt.Errorf("invalid latency bounds: min=%s max=%s", cfg.MinLatency, cfg.MaxLatency)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedGateway{cfg: cfg, logger: logger, metrics: m, rng: rng}, nil
}

// ProcessPayment authorizes a charge of amountMinorUnits via the given
// method. Argument validation fails immediately without consuming any
// randomness. A context that expires mid-call yields a timeout-kind
// failure Result.
func (g *SimulatedGateway) ProcessPayment(ctx context.Context, method catalog.PaymentMethod, amountMinorUnits int64) (*Result, error) {
	start := time.Now()

	if !method.IsValid() {
		g.logger.Error("payment rejected: unknown method", zap.String("method", string(method)))
		return g.finish(method, newFailure(KindInvalidMethod), start), nil
	}
	if amountMinorUnits <= 0 {
		g.logger.Error("payment rejected: non-positive amount", zap.Int64("amount", amountMinorUnits))
		return g.finish(method, newFailure(KindInvalidAmount), start), nil
	}

	g.logger.Info("processing payment",
		zap.String("method", method.Identifier()),
		zap.Int64("amount", amountMinorUnits))

	g.mu.Lock()
	latency := g.cfg.MinLatency
	if span := g.cfg.MaxLatency - g.cfg.MinLatency; span > 0 {
		latency += time.Duration(g.rng.Int64N(int64(span)))
	}
	authorized := g.rng.Float64() < g.cfg.SuccessRate
	var kind ErrorKind
	if !authorized {
		kind = randomKinds[g.rng.IntN(len(randomKinds))]
	}
	g.mu.Unlock()

	timer := time.NewTimer(latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		g.logger.Warn("payment timed out", zap.String("method", method.Identifier()), zap.Error(ctx.Err()))
		return g.finish(method, newFailure(KindTimeout), start), nil
	case <-timer.C:
	}

	if !authorized {
		g.logger.Warn("payment failed",
			zap.String("method", method.Identifier()),
			zap.String("kind", string(kind)))
		return g.finish(method, newFailure(kind), start), nil
	}

	result := &Result{
		Success:       true,
		TransactionID: NewTransactionID(),
		Message:       "Payment completed successfully",
	}
	g.logger.Info("payment successful",
		zap.String("method", method.Identifier()),
		zap.String("transaction_id", result.TransactionID))
	return g.finish(method, result, start), nil
}

// finish records metrics for the call and returns the result.
func (g *SimulatedGateway) finish(method catalog.PaymentMethod, r *Result, start time.Time) *Result {
	if g.metrics != nil {
		status := "failed"
		if r.Success {
			status = "success"
		}
		g.metrics.RecordPayment(method.Identifier(), status, time.Since(start))
	}
	return r
}

// NewTransactionID generates a transaction id of the form
// TX-XXXXXXXX (uppercase hex).
func NewTransactionID() string {
	return "TX-" + strings.ToUpper(uuid.New().String()[:8])
}
