package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Derivatives holds an equation value and the derivatives that were requested;
// orders that were not requested are nil.
type Derivatives struct {
	F  *apd.Decimal
	D1 *apd.Decimal
	D2 *apd.Decimal
	D3 *apd.Decimal
}

// Evaluator evaluates the basket equation for one pool and deposit vector. It is
// built per call and not safe for concurrent use.
type Evaluator struct {
	ctx   *apd.Context
	w     []*apd.Decimal
	a     []*apd.Decimal // r_i + x_i
	b     []*apd.Decimal // a_i / L
	d     []*apd.Decimal // a_i / r_i
	k     *apd.Decimal   // ∏ r_i^w_i
	pb    *apd.Decimal   // ∏ b_i^w_i
	bound Bound
}

// NewEvaluator validates the inputs and derives the per-call constants.
func NewEvaluator(reserves, weights, deposits []*apd.Decimal, p Precision) (*Evaluator, error) {
	if err := checkPool(reserves, weights); err != nil {
		return nil, err
	}
	if err := checkDeposits(deposits, len(reserves)); err != nil {
		return nil, err
	}
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}

	n := len(reserves)
	ar := &arith{ctx: ctx}
	e := &Evaluator{
		ctx: ctx,
		w:   weights,
		a:   make([]*apd.Decimal, n),
		b:   make([]*apd.Decimal, n),
		d:   make([]*apd.Decimal, n),
	}
	for i := range n {
		e.a[i] = ar.add(reserves[i], deposits[i])
	}
	e.bound = Bound{Value: e.a[0], Index: 0}
	for i := 1; i < n; i++ {
		if e.a[i].Cmp(e.bound.Value) < 0 {
			e.bound = Bound{Value: e.a[i], Index: i}
		}
	}
	for i := range n {
		e.b[i] = ar.quo(e.a[i], e.bound.Value)
		e.d[i] = ar.quo(e.a[i], reserves[i])
	}
	e.k = weightedProduct(ar, reserves, weights, -1)
	e.pb = weightedProduct(ar, e.b, weights, -1)
	if ar.err != nil {
		return nil, ar.err
	}
	return e, nil
}

// Bound returns L = min_i(r_i + x_i) and its index.
func (e *Evaluator) Bound() Bound { return e.bound }

// Invariant returns K = ∏ r_i^w_i.
func (e *Evaluator) Invariant() *apd.Decimal { return e.k }

func (e *Evaluator) arith() *arith { return &arith{ctx: e.ctx} }

// Basket evaluates f(Δ) = ∏ (a_i − Δ)^w_i − K and its first order derivatives,
// order ≤ 3.
func (e *Evaluator) Basket(delta *apd.Decimal, order int) (*Derivatives, error) {
	ar := e.arith()
	out := e.basket(ar, delta, order)
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}

func (e *Evaluator) basket(ar *arith, delta *apd.Decimal, order int) *Derivatives {
	den := make([]*apd.Decimal, len(e.a))
	for i := range e.a {
		den[i] = ar.sub(e.a[i], delta)
		if ar.err == nil && den[i].Sign() <= 0 {
			ar.fail(fmt.Errorf("%w: delta %s reaches balance %d", ErrDomainViolation, delta.Text('e'), i))
		}
	}
	p := weightedProduct(ar, den, e.w, -1)
	out := &Derivatives{F: ar.sub(p, e.k)}
	if order < 1 {
		return out
	}
	s, t, u := e.moments(ar, den)
	out.D1 = ar.neg(ar.mul(p, s))
	if order >= 2 {
		out.D2 = ar.mul(p, ar.sub(ar.mul(s, s), t))
	}
	if order >= 3 {
		out.D3 = ar.neg(ar.mul(p, thirdMoment(ar, s, t, u)))
	}
	return out
}

// Alpha evaluates g(α) = ∏ (d_i(α + b_i − 1))^w_i − ∏ b_i^w_i and its first order
// derivatives, order ≤ 3.
func (e *Evaluator) Alpha(alpha *apd.Decimal, order int) (*Derivatives, error) {
	ar := e.arith()
	t := e.accumulate(ar, alpha)
	out := &Derivatives{F: ar.sub(t.p, e.pb)}
	if order >= 1 {
		out.D1 = ar.mul(t.p, t.s)
	}
	if order >= 2 {
		out.D2 = ar.mul(t.p, ar.sub(ar.mul(t.s, t.s), t.t))
	}
	if order >= 3 {
		out.D3 = ar.mul(t.p, thirdMoment(ar, t.s, t.t, t.u))
	}
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}

// alphaTerms are the quantities every α-domain rule needs at one iterate,
// produced by a single pass over the assets.
type alphaTerms struct {
	p     *apd.Decimal // ∏ (d_i den_i)^w_i
	ratio *apd.Decimal // ∏ b_i^w_i / p
	h     *apd.Decimal // 1 − ratio
	s     *apd.Decimal // Σ w_i/den_i
	t     *apd.Decimal // Σ w_i/den_i²
	u     *apd.Decimal // Σ w_i/den_i³
}

func (e *Evaluator) accumulate(ar *arith, alpha *apd.Decimal) *alphaTerms {
	shift := ar.sub(alpha, decOne)
	den := make([]*apd.Decimal, len(e.b))
	base := make([]*apd.Decimal, len(e.b))
	for i := range e.b {
		den[i] = ar.add(e.b[i], shift)
		if ar.err == nil && den[i].Sign() <= 0 {
			ar.fail(fmt.Errorf("%w: alpha %s leaves asset %d without balance", ErrDomainViolation, alpha.Text('e'), i))
		}
		base[i] = ar.mul(e.d[i], den[i])
	}
	t := &alphaTerms{p: weightedProduct(ar, base, e.w, -1)}
	t.ratio = ar.quo(e.pb, t.p)
	t.h = ar.sub(decOne, t.ratio)
	t.s, t.t, t.u = e.moments(ar, den)
	return t
}

// moments returns Σ w_i/den_i, Σ w_i/den_i² and Σ w_i/den_i³.
func (e *Evaluator) moments(ar *arith, den []*apd.Decimal) (s, t, u *apd.Decimal) {
	s, t, u = new(apd.Decimal), new(apd.Decimal), new(apd.Decimal)
	for i := range den {
		inv := ar.quo(decOne, den[i])
		ws := ar.mul(e.w[i], inv)
		wt := ar.mul(ws, inv)
		s = ar.add(s, ws)
		t = ar.add(t, wt)
		u = ar.add(u, ar.mul(wt, inv))
	}
	return s, t, u
}

// thirdMoment returns S³ − 3ST + 2U.
func thirdMoment(ar *arith, s, t, u *apd.Decimal) *apd.Decimal {
	s3 := ar.mul(ar.mul(s, s), s)
	st3 := ar.mul(decThree, ar.mul(s, t))
	return ar.add(ar.sub(s3, st3), ar.mul(decTwo, u))
}
