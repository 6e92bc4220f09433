package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Rounding mode names accepted by Precision.
const (
	RoundHalfEven = "half_even"
	RoundHalfUp   = "half_up"
	RoundHalfDown = "half_down"
	RoundDown     = "down"
	RoundUp       = "up"
	RoundCeiling  = "ceiling"
	RoundFloor    = "floor"
)

// MaxDigits bounds Precision.Digits. Above roughly 2300 working digits apd's
// exponential series exceeds its iteration limit, so every fractional power
// would fail.
const MaxDigits = 2000

var roundings = map[string]apd.Rounder{
	RoundHalfEven: apd.RoundHalfEven,
	RoundHalfUp:   apd.RoundHalfUp,
	RoundHalfDown: apd.RoundHalfDown,
	RoundDown:     apd.RoundDown,
	RoundUp:       apd.RoundUp,
	RoundCeiling:  apd.RoundCeiling,
	RoundFloor:    apd.RoundFloor,
}

// Precision is the arithmetic context of one call: the number of significant
// digits every intermediate result is rounded to, and the rounding mode. An empty
// Rounding means half-even.
type Precision struct {
	Digits   uint32
	Rounding string
}

// DefaultPrecision returns 100 significant digits with half-even rounding.
func DefaultPrecision() Precision {
	return Precision{Digits: 100, Rounding: RoundHalfEven}
}

// Validate reports whether p can build a context.
func (p Precision) Validate() error {
	if p.Digits == 0 || p.Digits > MaxDigits {
		return fmt.Errorf("%w: precision must be within [1, %d] digits, got %d", ErrInvalidInput, MaxDigits, p.Digits)
	}
	if p.Rounding == "" {
		return nil
	}
	if _, ok := roundings[p.Rounding]; !ok {
		return fmt.Errorf("%w: unknown rounding mode %q", ErrInvalidInput, p.Rounding)
	}
	return nil
}

// Context returns a fresh decimal context for p. The context is owned by the
// caller; nothing in this package keeps a shared one.
func (p Precision) Context() (*apd.Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx := apd.BaseContext.WithPrecision(p.Digits)
	ctx.Rounding = apd.RoundHalfEven
	if p.Rounding != "" {
		ctx.Rounding = roundings[p.Rounding]
	}
	return ctx, nil
}

var (
	decZero  = apd.New(0, 0)
	decOne   = apd.New(1, 0)
	decTwo   = apd.New(2, 0)
	decThree = apd.New(3, 0)
	decSix   = apd.New(6, 0)
)

// arith runs a chain of context operations and keeps the first failure; once an
// error is recorded every further operation is a no-op returning zero.
type arith struct {
	ctx *apd.Context
	err error
}

func (a *arith) do(op func(d *apd.Decimal) (apd.Condition, error)) *apd.Decimal {
	d := new(apd.Decimal)
	if a.err != nil {
		return d
	}
	if _, err := op(d); err != nil {
		a.err = fmt.Errorf("%w: %w", ErrArithmetic, err)
	}
	return d
}

func (a *arith) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *arith) add(x, y *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Add(d, x, y) })
}

func (a *arith) sub(x, y *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Sub(d, x, y) })
}

func (a *arith) mul(x, y *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Mul(d, x, y) })
}

func (a *arith) quo(x, y *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Quo(d, x, y) })
}

func (a *arith) pow(x, y *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Pow(d, x, y) })
}

func (a *arith) ln(x *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Ln(d, x) })
}

func (a *arith) sqrt(x *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Sqrt(d, x) })
}

func (a *arith) neg(x *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Neg(d, x) })
}

func (a *arith) abs(x *apd.Decimal) *apd.Decimal {
	return a.do(func(d *apd.Decimal) (apd.Condition, error) { return a.ctx.Abs(d, x) })
}

// mid returns (x + y) / 2.
func (a *arith) mid(x, y *apd.Decimal) *apd.Decimal {
	return a.quo(a.add(x, y), decTwo)
}

// below reports |x| < floor. It is false once an error has been recorded so
// callers check a.err first.
func (a *arith) below(x, floor *apd.Decimal) bool {
	if a.err != nil {
		return false
	}
	return a.abs(x).Cmp(floor) < 0
}
