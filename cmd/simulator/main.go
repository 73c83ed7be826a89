package main

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/budapestgo/ticketing/internal/domain/catalog"
	"github.com/budapestgo/ticketing/internal/domain/session"
	"github.com/budapestgo/ticketing/internal/payment"
	"github.com/budapestgo/ticketing/internal/shared/config"
	"github.com/budapestgo/ticketing/internal/shared/logger"
	"github.com/budapestgo/ticketing/internal/utils/metrics"
	"github.com/budapestgo/ticketing/internal/utils/random"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	seed := cfg.Simulator.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	zl.Info("simulator starting",
		zap.Int("sessions", cfg.Simulator.Sessions),
		zap.Uint64("seed", seed),
		zap.Float64("success_rate", cfg.Gateway.SuccessRate))

	registry := prometheus.NewRegistry()
	m := metrics.New("ticketing", registry)

	gatewayRNG := rand.New(rand.NewPCG(seed, 1))
	simulated, err := payment.NewSimulatedGateway(payment.Config{
		SuccessRate: cfg.Gateway.SuccessRate,
		MinLatency:  cfg.Gateway.MinLatency,
		MaxLatency:  cfg.Gateway.MaxLatency,
	}, gatewayRNG, zl.Named("gateway"), m)
	if err != nil {
		zl.Fatal("failed to build gateway", zap.Error(err))
	}

	var gateway payment.Gateway = simulated
	if cfg.Breaker.Enabled {
		gateway = payment.NewBreakerGateway(simulated, payment.BreakerConfig{
			FailureThreshold:    cfg.Breaker.FailureThreshold,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
			MaxHalfOpenRequests: cfg.Breaker.MaxHalfOpenRequests,
		}, zl.Named("breaker"))
	}

	driverRNG := rand.New(rand.NewPCG(seed, 2))
	ctx := context.Background()
	issued := 0
	for i := 0; i < cfg.Simulator.Sessions; i++ {
		if runPurchase(ctx, cfg, gateway, zl, m, driverRNG) {
			issued++
		}
	}

	zl.Info("simulator finished",
		zap.Int("sessions", cfg.Simulator.Sessions),
		zap.Int("tickets_issued", issued))
	dumpMetrics(zl, registry)
}

// runPurchase drives one purchase session end to end and reports
// whether a ticket was issued and expired.
func runPurchase(ctx context.Context, cfg *config.Config, gateway payment.Gateway, zl *zap.Logger, m *metrics.Metrics, rng *rand.Rand) bool {
	types := catalog.Types()
	methods := catalog.Methods()
	typ := types[rng.IntN(len(types))]
	method := methods[rng.IntN(len(methods))]

	sl := zl.Named("session").With(zap.String("session_id", random.UpperAlphaNum(6)))
	s := session.New(gateway, cfg.Gateway.Timeout, sl, m)

	if err := s.SelectTicketType(typ); err != nil {
		sl.Error("select ticket type", zap.Error(err))
		return false
	}
	if err := s.ChoosePaymentMethod(method); err != nil {
		sl.Error("choose payment method", zap.Error(err))
		return false
	}

	// A small share of riders walk away before paying.
	if rng.Float64() < 0.05 {
		if err := s.CancelPurchase(); err != nil {
			sl.Error("cancel purchase", zap.Error(err))
		} else {
			sl.Info("purchase cancelled")
		}
		return false
	}

	for {
		ok, err := s.ProcessPayment(ctx)
		if err != nil {
			sl.Error("process payment", zap.Error(err))
		}
		if ok {
			break
		}
		if err := s.RetryPayment(); err != nil {
			if errors.Is(err, session.ErrMaxRetriesExceeded) {
				sl.Warn("purchase abandoned", zap.Error(err))
				return false
			}
			sl.Error("retry payment", zap.Error(err))
			return false
		}
	}

	for _, step := range []func() error{
		s.GenerateQRCode,
		s.ValidateTicket,
		s.ExpireTicket,
		s.Reset,
	} {
		if err := step(); err != nil {
			sl.Error("ticket lifecycle", zap.Error(err))
			return false
		}
	}
	return true
}

// dumpMetrics logs a summary of every gathered counter and gauge.
func dumpMetrics(zl *zap.Logger, registry *prometheus.Registry) {
	families, err := registry.Gather()
	if err != nil {
		zl.Error("gather metrics", zap.Error(err))
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			default:
				continue
			}

			fields := []zap.Field{zap.Float64("value", value)}
			for _, label := range metric.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			zl.Info(family.GetName(), fields...)
		}
	}
}
