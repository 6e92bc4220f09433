package weighted

import "github.com/cockroachdb/apd/v3"

// Estimates are the closed-form starting points derived by linearising the log
// of the invariant around the binding asset.
type Estimates struct {
	// Alpha0 = ∏ d_i^(−w_i/w_m), m the binding index. Seeds every rule.
	Alpha0 *apd.Decimal
	// Delta0 = L(1 − Alpha0).
	Delta0 *apd.Decimal
	// AlphaBound = Σ w_i(1/b_i − ln d_i) / Σ w_i/b_i, a diagnostic cross-check.
	AlphaBound *apd.Decimal
	Bound      Bound
}

// Estimate returns both starting estimates for a solve.
func Estimate(reserves, weights, deposits []*apd.Decimal, p Precision) (*Estimates, error) {
	e, err := NewEvaluator(reserves, weights, deposits, p)
	if err != nil {
		return nil, err
	}
	ar := e.arith()
	alpha0 := e.initialAlpha(ar)
	out := &Estimates{
		Alpha0:     alpha0,
		Delta0:     e.alphaToDelta(ar, alpha0),
		AlphaBound: e.alphaBound(ar),
		Bound:      e.bound,
	}
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}

func (e *Evaluator) initialAlpha(ar *arith) *apd.Decimal {
	ref := e.w[e.bound.Index]
	alpha := new(apd.Decimal).Set(decOne)
	for i := range e.d {
		exp := ar.neg(ar.quo(e.w[i], ref))
		alpha = ar.mul(alpha, ar.pow(e.d[i], exp))
	}
	return alpha
}

func (e *Evaluator) alphaBound(ar *arith) *apd.Decimal {
	num, den := new(apd.Decimal), new(apd.Decimal)
	for i := range e.b {
		inv := ar.quo(e.w[i], e.b[i])
		num = ar.add(num, ar.sub(inv, ar.mul(e.w[i], ar.ln(e.d[i]))))
		den = ar.add(den, inv)
	}
	return ar.quo(num, den)
}

// alphaToDelta maps α back to Δ = (1 − α)L.
func (e *Evaluator) alphaToDelta(ar *arith, alpha *apd.Decimal) *apd.Decimal {
	return ar.mul(ar.sub(decOne, alpha), e.bound.Value)
}

// deltaToAlpha maps Δ to α = 1 − Δ/L.
func (e *Evaluator) deltaToAlpha(ar *arith, delta *apd.Decimal) *apd.Decimal {
	return ar.sub(decOne, ar.quo(delta, e.bound.Value))
}
