package weighted

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Order selects the correction rule of the iterative solver.
type Order int

const (
	// OrderNewton is the first-order rule on α: step = h/S.
	OrderNewton Order = iota + 1
	// OrderHalley is the second-order rule on α.
	OrderHalley
	// OrderHouseholder is the third-order rule on α.
	OrderHouseholder
	// OrderChebyshev is the third-order rule applied directly to Δ.
	OrderChebyshev
)

func (o Order) String() string {
	switch o {
	case OrderNewton:
		return "newton"
	case OrderHalley:
		return "halley"
	case OrderHouseholder:
		return "householder"
	case OrderChebyshev:
		return "chebyshev"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder accepts a rule name or its convergence order ("1", "2", "3").
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "newton":
		return OrderNewton, nil
	case "2", "halley":
		return OrderHalley, nil
	case "3", "householder":
		return OrderHouseholder, nil
	case "chebyshev":
		return OrderChebyshev, nil
	default:
		return 0, fmt.Errorf("%w: unknown order %q", ErrInvalidInput, s)
	}
}

func (o Order) valid() bool {
	return o >= OrderNewton && o <= OrderChebyshev
}

// alphaRule turns the accumulators at the current α into a correction.
type alphaRule func(ar *arith, t *alphaTerms, floor *apd.Decimal) *apd.Decimal

var alphaRules = map[Order]alphaRule{
	OrderNewton:      newtonStep,
	OrderHalley:      halleyStep,
	OrderHouseholder: householderStep,
}

func vanished(ar *arith, what string) {
	ar.fail(fmt.Errorf("%w: %s", ErrVanishingDerivative, what))
}

func newtonStep(ar *arith, t *alphaTerms, floor *apd.Decimal) *apd.Decimal {
	if ar.below(t.s, floor) {
		vanished(ar, "S")
	}
	return ar.quo(t.h, t.s)
}

// halleyStep is 2hS / (2(1−h)S² + h(S²+T)).
func halleyStep(ar *arith, t *alphaTerms, floor *apd.Decimal) *apd.Decimal {
	s2 := ar.mul(t.s, t.s)
	den := ar.add(
		ar.mul(decTwo, ar.mul(t.ratio, s2)),
		ar.mul(t.h, ar.add(s2, t.t)),
	)
	if ar.below(den, floor) {
		vanished(ar, "halley denominator")
	}
	return ar.quo(ar.mul(decTwo, ar.mul(t.h, t.s)), den)
}

// householderStep is (h/((1−h)S)) / (1 + h(S²+T)/(2(1−h)S²) + h²(S³+3ST+2U)/(6(1−h)²S³)).
func householderStep(ar *arith, t *alphaTerms, floor *apd.Decimal) *apd.Decimal {
	lead := ar.mul(t.ratio, t.s)
	if ar.below(lead, floor) {
		vanished(ar, "(1-h)S")
	}
	s2 := ar.mul(t.s, t.s)
	s3 := ar.mul(s2, t.s)
	second := ar.quo(
		ar.mul(t.h, ar.add(s2, t.t)),
		ar.mul(decTwo, ar.mul(t.ratio, s2)),
	)
	cubic := ar.add(ar.add(s3, ar.mul(decThree, ar.mul(t.s, t.t))), ar.mul(decTwo, t.u))
	third := ar.quo(
		ar.mul(ar.mul(t.h, t.h), cubic),
		ar.mul(decSix, ar.mul(ar.mul(t.ratio, t.ratio), s3)),
	)
	bracket := ar.add(ar.add(decOne, second), third)
	if ar.below(bracket, floor) {
		vanished(ar, "householder bracket")
	}
	return ar.quo(ar.quo(t.h, lead), bracket)
}

// chebyshevStep is f/f' + f²f''/(2f'³), written as q + q²f''/(2f') with q = f/f'.
func chebyshevStep(ar *arith, d *Derivatives, floor *apd.Decimal) *apd.Decimal {
	if ar.below(d.D1, floor) {
		vanished(ar, "f'")
	}
	q := ar.quo(d.F, d.D1)
	curve := ar.quo(ar.mul(ar.mul(q, q), d.D2), ar.mul(decTwo, d.D1))
	return ar.add(q, curve)
}
