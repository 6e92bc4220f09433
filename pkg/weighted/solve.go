package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Iteration is the per-step record handed to observers and hooks. Iterate is
// the point the step was computed at, in the rule's own domain (α, or Δ for
// Chebyshev); F is the residual of that domain's equation at Iterate.
type Iteration struct {
	Order   Order
	Index   int
	Iterate *apd.Decimal
	Next    *apd.Decimal
	Step    *apd.Decimal
	F       *apd.Decimal
	Guarded bool
}

// Observer receives every iteration. It must not retain or mutate the decimals.
type Observer interface {
	Observe(Iteration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Iteration)

func (f ObserverFunc) Observe(it Iteration) { f(it) }

// Hook runs after every iteration; a non-nil error aborts the solve with
// ErrAborted.
type Hook func(Iteration) error

// Config controls one Solve call.
type Config struct {
	Precision Precision
	// Tolerance bounds |step| and |F| in the iterate's own domain. It may not
	// be finer than 10^-Digits.
	Tolerance     *apd.Decimal
	MaxIterations int
	Order         Order
	// DerivativeFloor is the smallest step divisor magnitude accepted.
	DerivativeFloor *apd.Decimal
	Guard           GuardPolicy
	// ValidateWeights rejects weights whose sum is further than Tolerance from one.
	ValidateWeights bool
	// InitialDelta replaces the analytic starting point; it must lie in [0, L).
	InitialDelta *apd.Decimal
	Observer     Observer
	Hook         Hook
}

// DefaultConfig returns 100 digits, tolerance 1e-40, 100 iterations, Newton.
func DefaultConfig() Config {
	return Config{
		Precision:       DefaultPrecision(),
		Tolerance:       apd.New(1, -40),
		MaxIterations:   100,
		Order:           OrderNewton,
		DerivativeFloor: apd.New(1, -60),
		Guard:           GuardBisect,
	}
}

func (c *Config) validate() error {
	if err := c.Precision.Validate(); err != nil {
		return err
	}
	if !c.Order.valid() {
		return fmt.Errorf("%w: unknown order %d", ErrInvalidInput, int(c.Order))
	}
	if !positive(c.Tolerance) {
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidInput)
	}
	if c.Tolerance.Cmp(apd.New(1, -int32(c.Precision.Digits))) < 0 {
		return fmt.Errorf("%w: tolerance %s is finer than %d digits resolve", ErrInvalidInput, c.Tolerance.Text('e'), c.Precision.Digits)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive", ErrInvalidInput)
	}
	if c.DerivativeFloor == nil {
		c.DerivativeFloor = decZero
	}
	if !finite(c.DerivativeFloor) || c.DerivativeFloor.Sign() < 0 {
		return fmt.Errorf("%w: derivative floor must be non-negative", ErrInvalidInput)
	}
	if c.Guard != GuardBisect && c.Guard != GuardClamp {
		return fmt.Errorf("%w: unknown guard policy %d", ErrInvalidInput, int(c.Guard))
	}
	return nil
}

// Result is a converged solve.
type Result struct {
	Delta *apd.Decimal
	// Alpha is 1 − Delta/L.
	Alpha *apd.Decimal
	// Alpha0 is the analytic starting estimate.
	Alpha0           *apd.Decimal
	Iterations       int
	GuardActivations int
	// Residual is f(Delta) = ∏ (a_i − Delta)^w_i − K.
	Residual *apd.Decimal
	Bound    Bound
	Order    Order
}

// space is the variable a rule iterates on.
type space struct {
	iv      interval
	start   *apd.Decimal
	step    func(x *apd.Decimal) (step, f *apd.Decimal)
	toDelta func(x *apd.Decimal) *apd.Decimal
}

// Solve returns the Δ for which ∏ (r_i + x_i − Δ)^w_i = ∏ r_i^w_i.
func Solve(reserves, weights, deposits []*apd.Decimal, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e, err := NewEvaluator(reserves, weights, deposits, cfg.Precision)
	if err != nil {
		return nil, err
	}
	ar := e.arith()
	if cfg.ValidateWeights {
		if err := checkWeightSum(ar, weights, cfg.Tolerance); err != nil {
			return nil, err
		}
	}
	if cfg.InitialDelta != nil && !finite(cfg.InitialDelta) {
		return nil, fmt.Errorf("%w: initial delta is not finite", ErrInvalidInput)
	}

	alpha0 := e.initialAlpha(ar)
	sp := e.space(ar, cfg, alpha0)
	if ar.err != nil {
		return nil, ar.err
	}
	if !sp.iv.contains(sp.start) {
		return nil, fmt.Errorf("%w: initial guess %s outside domain", ErrInvalidInput, sp.start.Text('e'))
	}

	res := &Result{Alpha0: alpha0, Bound: e.bound, Order: cfg.Order}
	x := sp.start
	for i := range cfg.MaxIterations {
		step, f := sp.step(x)
		raw := ar.sub(x, step)
		if ar.err != nil {
			return nil, e.failure(ar.err, i, sp.toDelta, x)
		}
		next, guarded, err := sp.iv.guard(ar, cfg.Guard, cfg.Tolerance, x, raw)
		if err != nil {
			return nil, e.failure(err, i, sp.toDelta, x)
		}
		if guarded {
			res.GuardActivations++
		}

		it := Iteration{Order: cfg.Order, Index: i, Iterate: x, Next: next, Step: step, F: f, Guarded: guarded}
		if cfg.Observer != nil {
			cfg.Observer.Observe(it)
		}
		if cfg.Hook != nil {
			if err := cfg.Hook(it); err != nil {
				return nil, e.failure(fmt.Errorf("%w: %w", ErrAborted, err), i, sp.toDelta, x)
			}
		}

		small := ar.abs(step).Cmp(cfg.Tolerance) < 0 && !guarded
		fit := ar.abs(f).Cmp(cfg.Tolerance) < 0
		if small || fit {
			final := next
			if guarded {
				final = x
			}
			res.Iterations = i + 1
			return e.finish(ar, res, sp, final, cfg.Order)
		}
		x = next
	}
	return nil, e.failure(ErrMaxIterations, cfg.MaxIterations, sp.toDelta, x)
}

func (e *Evaluator) space(ar *arith, cfg Config, alpha0 *apd.Decimal) *space {
	floor := cfg.DerivativeFloor
	if cfg.Order == OrderChebyshev {
		start := e.alphaToDelta(ar, alpha0)
		if cfg.InitialDelta != nil {
			start = cfg.InitialDelta
		}
		return &space{
			iv:    deltaInterval(e.bound.Value),
			start: start,
			step: func(x *apd.Decimal) (*apd.Decimal, *apd.Decimal) {
				d := e.basket(ar, x, 2)
				return chebyshevStep(ar, d, floor), d.F
			},
			toDelta: func(x *apd.Decimal) *apd.Decimal { return x },
		}
	}

	rule := alphaRules[cfg.Order]
	start := alpha0
	if cfg.InitialDelta != nil {
		start = e.deltaToAlpha(ar, cfg.InitialDelta)
	}
	return &space{
		iv:    alphaInterval(),
		start: start,
		step: func(x *apd.Decimal) (*apd.Decimal, *apd.Decimal) {
			t := e.accumulate(ar, x)
			return rule(ar, t, floor), t.h
		},
		toDelta: func(x *apd.Decimal) *apd.Decimal {
			return e.alphaToDelta(&arith{ctx: e.ctx}, x)
		},
	}
}

func (e *Evaluator) finish(ar *arith, res *Result, sp *space, final *apd.Decimal, order Order) (*Result, error) {
	if order == OrderChebyshev {
		res.Delta = final
		res.Alpha = e.deltaToAlpha(ar, final)
	} else {
		res.Alpha = final
		res.Delta = e.alphaToDelta(ar, final)
	}
	if ar.err != nil {
		return nil, e.failure(ar.err, res.Iterations, sp.toDelta, final)
	}
	if !deltaInterval(e.bound.Value).contains(res.Delta) {
		err := fmt.Errorf("%w: delta %s not representable below bound at this precision", ErrDomainViolation, res.Delta.Text('e'))
		return nil, e.failure(err, res.Iterations, sp.toDelta, final)
	}
	res.Residual = e.basket(ar, res.Delta, 0).F
	if ar.err != nil {
		return nil, e.failure(ar.err, res.Iterations, sp.toDelta, final)
	}
	return res, nil
}

// failure wraps err with the solver state at iterate x. The residual is best
// effort and left nil when it cannot be evaluated.
func (e *Evaluator) failure(err error, iteration int, toDelta func(*apd.Decimal) *apd.Decimal, x *apd.Decimal) *SolveError {
	se := &SolveError{Err: sentinel(err), Iteration: iteration}
	if err != se.Err {
		se.cause = err
	}
	if x == nil {
		return se
	}
	delta := toDelta(x)
	se.Iterate = delta
	ar := e.arith()
	if f := e.basket(ar, delta, 0).F; ar.err == nil {
		se.Residual = f
	}
	return se
}
