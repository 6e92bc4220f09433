package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cockroachdb/apd/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

var tracer = otel.Tracer("github.com/nulln0ne/weighted-estimator/internal/service")

// Ceilings on per-request overrides. They sit well below the kernel limits so
// one request stays within a few seconds of CPU.
const (
	MaxRequestPrecision  = 500
	MaxRequestIterations = 1000
)

// SolveRequest is one basket withdrawal. Zero-valued overrides fall back to
// the service defaults.
type SolveRequest struct {
	Reserves []*apd.Decimal
	Weights  []*apd.Decimal
	Deposits []*apd.Decimal

	Order         weighted.Order
	Precision     uint32
	Tolerance     *apd.Decimal
	MaxIterations int
}

// SolveService runs the weighted-pool solver with process-wide defaults,
// tracing, metrics and per-iteration debug logs.
type SolveService struct {
	BaseService
	defaults weighted.Config
	timeout  time.Duration
	metrics  *Metrics
}

// NewSolveService returns a service that aborts any solve running longer than
// timeout. A zero timeout leaves solves bounded only by the caller's context.
func NewSolveService(logger *slog.Logger, defaults weighted.Config, timeout time.Duration, metrics *Metrics) *SolveService {
	return &SolveService{
		BaseService: BaseService{logger: logger},
		defaults:    defaults,
		timeout:     timeout,
		metrics:     metrics,
	}
}

// Solve returns the Δ withdrawn from every asset for the deposits in req. The
// solve stops with weighted.ErrAborted once ctx is done or the service
// timeout elapses.
func (s *SolveService) Solve(ctx context.Context, req SolveRequest) (*weighted.Result, error) {
	cfg, err := s.config(req)
	if err != nil {
		s.metrics.observe(cfg.Order, nil, err)
		return nil, fmt.Errorf("solve: %w", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "weighted.Solve")
	defer span.End()
	span.SetAttributes(
		attribute.String("order", cfg.Order.String()),
		attribute.Int("assets", len(req.Reserves)),
		attribute.Int("precision", int(cfg.Precision.Digits)),
	)

	cfg.Observer = logObserver{ctx: ctx, logger: s.logger}
	cfg.Hook = func(weighted.Iteration) error { return ctx.Err() }

	res, err := weighted.Solve(req.Reserves, req.Weights, req.Deposits, cfg)
	s.metrics.observe(cfg.Order, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("solve failed", "order", cfg.Order.String(), "err", err)
		return nil, fmt.Errorf("solve: %w", err)
	}

	span.SetAttributes(
		attribute.Int("iterations", res.Iterations),
		attribute.Int("guard_activations", res.GuardActivations),
	)
	s.logger.Debug("solve converged", "order", cfg.Order.String(), "iterations", res.Iterations, "delta", res.Delta.Text('f'))
	return res, nil
}

// SingleOutput prices depositing delta into every asset but outputIndex.
func (s *SolveService) SingleOutput(ctx context.Context, reserves, weights []*apd.Decimal, delta *apd.Decimal, outputIndex int) (*apd.Decimal, error) {
	_, span := tracer.Start(ctx, "weighted.SolveSingleOutput")
	defer span.End()

	out, err := weighted.SolveSingleOutput(reserves, weights, delta, outputIndex, s.defaults.Precision)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("single output: %w", err)
	}
	return out, nil
}

func (s *SolveService) config(req SolveRequest) (weighted.Config, error) {
	cfg := s.defaults
	if req.Order != 0 {
		cfg.Order = req.Order
	}
	if req.Precision > MaxRequestPrecision {
		return cfg, fmt.Errorf("%w: precision %d above request limit %d", weighted.ErrInvalidInput, req.Precision, MaxRequestPrecision)
	}
	if req.MaxIterations > MaxRequestIterations {
		return cfg, fmt.Errorf("%w: max iterations %d above request limit %d", weighted.ErrInvalidInput, req.MaxIterations, MaxRequestIterations)
	}
	if req.Precision != 0 {
		cfg.Precision.Digits = req.Precision
	}
	if req.Tolerance != nil {
		cfg.Tolerance = req.Tolerance
	}
	if req.MaxIterations != 0 {
		cfg.MaxIterations = req.MaxIterations
	}
	return cfg, nil
}
