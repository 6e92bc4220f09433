package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Bound is the smallest augmented balance r_i + x_i and the index it sits at.
// Every feasible Δ is strictly below Value.
type Bound struct {
	Value *apd.Decimal
	Index int
}

// Invariant returns K = ∏ r_i^w_i.
func Invariant(reserves, weights []*apd.Decimal, p Precision) (*apd.Decimal, error) {
	if err := checkPool(reserves, weights); err != nil {
		return nil, err
	}
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}
	ar := &arith{ctx: ctx}
	k := weightedProduct(ar, reserves, weights, -1)
	if ar.err != nil {
		return nil, ar.err
	}
	return k, nil
}

// weightedProduct returns ∏ base_i^w_i over every index but skip.
func weightedProduct(ar *arith, bases, weights []*apd.Decimal, skip int) *apd.Decimal {
	prod := new(apd.Decimal).Set(decOne)
	for i := range bases {
		if i == skip {
			continue
		}
		prod = ar.mul(prod, ar.pow(bases[i], weights[i]))
	}
	return prod
}

func checkPool(reserves, weights []*apd.Decimal) error {
	n := len(reserves)
	if n < 2 {
		return fmt.Errorf("%w: pool needs at least 2 assets, got %d", ErrInvalidInput, n)
	}
	if len(weights) != n {
		return fmt.Errorf("%w: %d weights for %d reserves", ErrInvalidInput, len(weights), n)
	}
	for i := range n {
		if !positive(reserves[i]) {
			return fmt.Errorf("%w: reserve %d must be positive", ErrInvalidInput, i)
		}
		if !positive(weights[i]) {
			return fmt.Errorf("%w: weight %d must be positive", ErrInvalidInput, i)
		}
	}
	return nil
}

func checkDeposits(deposits []*apd.Decimal, n int) error {
	if len(deposits) != n {
		return fmt.Errorf("%w: %d deposits for %d reserves", ErrInvalidInput, len(deposits), n)
	}
	for i, x := range deposits {
		if !finite(x) || x.Sign() < 0 {
			return fmt.Errorf("%w: deposit %d must be non-negative", ErrInvalidInput, i)
		}
	}
	return nil
}

func finite(d *apd.Decimal) bool {
	return d != nil && d.Form == apd.Finite
}

func positive(d *apd.Decimal) bool {
	return finite(d) && d.Sign() > 0
}

// checkWeightSum reports whether Σ w_i is within slack of one.
func checkWeightSum(ar *arith, weights []*apd.Decimal, slack *apd.Decimal) error {
	sum := new(apd.Decimal)
	for _, w := range weights {
		sum = ar.add(sum, w)
	}
	diff := ar.abs(ar.sub(sum, decOne))
	if ar.err != nil {
		return ar.err
	}
	if diff.Cmp(slack) > 0 {
		return fmt.Errorf("%w: weights sum to %s, want 1", ErrInvalidInput, sum.Text('f'))
	}
	return nil
}
