package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

// Metrics records solver outcomes. A nil *Metrics records nothing.
type Metrics struct {
	solves     *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	guards     *prometheus.CounterVec
}

// NewMetrics registers the solver collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighted_solves_total",
			Help: "Basket withdrawal solves by correction rule and outcome.",
		}, []string{"order", "outcome"}),
		iterations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weighted_solve_iterations",
			Help:    "Iterations taken by converged solves.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 50, 100},
		}, []string{"order"}),
		guards: f.NewCounterVec(prometheus.CounterOpts{
			Name: "weighted_guard_activations_total",
			Help: "Iterates replaced by the domain guard.",
		}, []string{"order"}),
	}
}

func (m *Metrics) observe(order weighted.Order, res *weighted.Result, err error) {
	if m == nil {
		return
	}
	label := order.String()
	m.solves.WithLabelValues(label, outcome(err)).Inc()
	if res != nil {
		m.iterations.WithLabelValues(label).Observe(float64(res.Iterations))
		m.guards.WithLabelValues(label).Add(float64(res.GuardActivations))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "converged"
	case errors.Is(err, weighted.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, weighted.ErrVanishingDerivative):
		return "vanishing_derivative"
	case errors.Is(err, weighted.ErrDomainViolation):
		return "domain_violation"
	case errors.Is(err, weighted.ErrMaxIterations):
		return "max_iterations"
	case errors.Is(err, weighted.ErrAborted):
		return "aborted"
	default:
		return "arithmetic"
	}
}
