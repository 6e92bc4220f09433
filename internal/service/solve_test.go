package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

var spans = tracetest.NewSpanRecorder()

func TestMain(m *testing.M) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	os.Exit(m.Run())
}

const singleDepositDelta = "94.144157185162330390133372986931661849719886252485259707835326962471638463572455"

func decs(t *testing.T, ss ...string) []*apd.Decimal {
	t.Helper()
	out := make([]*apd.Decimal, len(ss))
	for i, s := range ss {
		d, _, err := apd.NewFromString(s)
		require.NoError(t, err)
		out[i] = d
	}
	return out
}

func requireClose(t *testing.T, want string, got *apd.Decimal, tol string) {
	t.Helper()
	w := decs(t, want, tol)
	ctx := apd.BaseContext.WithPrecision(200)
	diff := new(apd.Decimal)
	_, err := ctx.Sub(diff, got, w[0])
	require.NoError(t, err)
	diff.Abs(diff)
	require.True(t, diff.Cmp(w[1]) <= 0, "got %s want %s", got.Text('f'), want)
}

func newTestSolveService(t *testing.T, w io.Writer) (*SolveService, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewSolveService(logger, weighted.DefaultConfig(), 0, metrics), metrics
}

func singleDeposit(t *testing.T) SolveRequest {
	return SolveRequest{
		Reserves: decs(t, "20", "300", "400", "50000"),
		Weights:  decs(t, "0.4", "0.2", "0.1", "0.3"),
		Deposits: decs(t, "100", "0", "0", "0"),
	}
}

func TestSolve_Success(t *testing.T) {
	var logs bytes.Buffer
	svc, metrics := newTestSolveService(t, &logs)

	res, err := svc.Solve(context.Background(), singleDeposit(t))
	require.NoError(t, err)
	requireClose(t, singleDepositDelta, res.Delta, "1e-35")
	require.Equal(t, weighted.OrderNewton, res.Order)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("newton", "converged")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.iterations))
	require.Contains(t, logs.String(), "solver iteration")
	require.Contains(t, logs.String(), "solve converged")

	var names []string
	for _, s := range spans.Ended() {
		names = append(names, s.Name())
	}
	require.Contains(t, names, "weighted.Solve")
}

func TestSolve_Overrides(t *testing.T) {
	svc, metrics := newTestSolveService(t, io.Discard)
	req := singleDeposit(t)
	req.Order = weighted.OrderHouseholder
	req.Precision = 60
	req.Tolerance = apd.New(1, -30)

	res, err := svc.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, weighted.OrderHouseholder, res.Order)
	requireClose(t, singleDepositDelta, res.Delta, "1e-25")
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("householder", "converged")))
}

func TestSolve_Canceled(t *testing.T) {
	svc, metrics := newTestSolveService(t, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Solve(ctx, singleDeposit(t))
	require.ErrorIs(t, err, weighted.ErrAborted)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("newton", "aborted")))
}

func TestSolve_Timeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := NewSolveService(logger, weighted.DefaultConfig(), time.Nanosecond, metrics)

	_, err := svc.Solve(context.Background(), singleDeposit(t))
	require.ErrorIs(t, err, weighted.ErrAborted)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("newton", "aborted")))
}

func TestSolve_RequestLimits(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SolveRequest)
	}{
		{"precision", func(r *SolveRequest) { r.Precision = MaxRequestPrecision + 1 }},
		{"iterations", func(r *SolveRequest) { r.MaxIterations = MaxRequestIterations + 1 }},
		{"tolerance_below_resolution", func(r *SolveRequest) { r.Precision = 30; r.Tolerance = apd.New(1, -5000) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, metrics := newTestSolveService(t, io.Discard)
			req := singleDeposit(t)
			tc.mutate(&req)

			_, err := svc.Solve(context.Background(), req)
			require.ErrorIs(t, err, weighted.ErrInvalidInput)
			require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("newton", "invalid_input")))
		})
	}
}

func TestSolve_InvalidInput(t *testing.T) {
	svc, metrics := newTestSolveService(t, io.Discard)
	req := singleDeposit(t)
	req.Deposits = decs(t, "100", "0")

	_, err := svc.Solve(context.Background(), req)
	require.ErrorIs(t, err, weighted.ErrInvalidInput)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.solves.WithLabelValues("newton", "invalid_input")))
	require.Zero(t, testutil.CollectAndCount(metrics.iterations))
}

func TestSingleOutput(t *testing.T) {
	svc, _ := newTestSolveService(t, io.Discard)
	out, err := svc.SingleOutput(context.Background(), decs(t, "1000", "2000", "3000"), decs(t, "0.5", "0.3", "0.2"), apd.New(60, 0), 0)
	require.NoError(t, err)
	requireClose(t, "25.330005311574319172499788482071738164023965065851623541693", out, "1e-50")

	_, err = svc.SingleOutput(context.Background(), decs(t, "1000", "2000"), decs(t, "0.5", "0.5"), apd.New(60, 0), 5)
	require.ErrorIs(t, err, weighted.ErrInvalidInput)
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "converged", outcome(nil))
	require.Equal(t, "max_iterations", outcome(&weighted.SolveError{Err: weighted.ErrMaxIterations}))
	require.Equal(t, "domain_violation", outcome(weighted.ErrDomainViolation))
	require.Equal(t, "vanishing_derivative", outcome(weighted.ErrVanishingDerivative))
	require.Equal(t, "arithmetic", outcome(weighted.ErrArithmetic))

	var m *Metrics
	m.observe(weighted.OrderNewton, nil, nil)
}
