package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// GuardPolicy selects how a proposed iterate outside the domain is replaced.
type GuardPolicy int

const (
	// GuardBisect moves to the midpoint between the current iterate and the
	// violated boundary.
	GuardBisect GuardPolicy = iota
	// GuardClamp moves onto a closed boundary, or one tolerance inside an open one.
	GuardClamp
)

func (g GuardPolicy) String() string {
	switch g {
	case GuardBisect:
		return "bisect"
	case GuardClamp:
		return "clamp"
	default:
		return fmt.Sprintf("GuardPolicy(%d)", int(g))
	}
}

// interval is the admissible region of an iterate.
type interval struct {
	lo, hi             *apd.Decimal
	loClosed, hiClosed bool
}

// deltaInterval is [0, L).
func deltaInterval(l *apd.Decimal) interval {
	return interval{lo: decZero, hi: l, loClosed: true}
}

// alphaInterval is (0, 1]: every α + b_i − 1 > 0 and Δ ≥ 0.
func alphaInterval() interval {
	return interval{lo: decZero, hi: decOne, hiClosed: true}
}

func (iv interval) contains(x *apd.Decimal) bool {
	lo, hi := x.Cmp(iv.lo), x.Cmp(iv.hi)
	if lo < 0 || (lo == 0 && !iv.loClosed) {
		return false
	}
	return hi < 0 || (hi == 0 && iv.hiClosed)
}

// guard returns the iterate to continue from and whether next was replaced.
// It fails when the replacement is outside the interval or makes no progress
// from cur.
func (iv interval) guard(ar *arith, policy GuardPolicy, tol, cur, next *apd.Decimal) (*apd.Decimal, bool, error) {
	if ar.err != nil {
		return nil, false, ar.err
	}
	if iv.contains(next) {
		return next, false, nil
	}

	boundary, closed, inward := iv.hi, iv.hiClosed, -1
	if next.Cmp(iv.lo) <= 0 {
		boundary, closed, inward = iv.lo, iv.loClosed, 1
	}

	var fixed *apd.Decimal
	switch {
	case policy == GuardClamp && closed:
		fixed = boundary
	case policy == GuardClamp && inward > 0:
		fixed = ar.add(boundary, tol)
	case policy == GuardClamp:
		fixed = ar.sub(boundary, tol)
	default:
		fixed = ar.mid(cur, boundary)
	}
	if ar.err != nil {
		return nil, false, ar.err
	}
	if !iv.contains(fixed) || fixed.Cmp(cur) == 0 {
		return nil, true, fmt.Errorf("%w: cannot move from %s towards boundary %s", ErrDomainViolation, cur.Text('e'), boundary.Text('e'))
	}
	return fixed, true, nil
}
