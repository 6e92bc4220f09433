package weighted

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// SolveSingleOutput prices depositing delta into every asset but outputIndex.
// The held-out balance becomes
//
//	r_j' = (K / ∏_{i≠j} (r_i + delta)^w_i)^(1/w_j)
//
// and the returned amount is r_j − r_j'.
func SolveSingleOutput(reserves, weights []*apd.Decimal, delta *apd.Decimal, outputIndex int, p Precision) (*apd.Decimal, error) {
	if err := checkPool(reserves, weights); err != nil {
		return nil, err
	}
	if !finite(delta) || delta.Sign() < 0 {
		return nil, fmt.Errorf("%w: delta must be non-negative", ErrInvalidInput)
	}
	if outputIndex < 0 || outputIndex >= len(reserves) {
		return nil, fmt.Errorf("%w: output index %d out of range", ErrInvalidInput, outputIndex)
	}
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}

	ar := &arith{ctx: ctx}
	k := weightedProduct(ar, reserves, weights, -1)
	shifted := make([]*apd.Decimal, len(reserves))
	for i, r := range reserves {
		shifted[i] = ar.add(r, delta)
	}
	rest := weightedProduct(ar, shifted, weights, outputIndex)
	exp := ar.quo(decOne, weights[outputIndex])
	balance := ar.pow(ar.quo(k, rest), exp)
	out := ar.sub(reserves[outputIndex], balance)
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}

// SwapExactIn prices a single-input, single-output trade against a weighted
// pool:
//
//	out = r_o (1 − (r_i / (r_i + x(1 − fee)))^(w_i/w_o))
//
// fee is a fraction in [0, 1). With equal weights this is the constant-product
// amount out.
func SwapExactIn(reserveIn, weightIn, reserveOut, weightOut, amountIn, fee *apd.Decimal, p Precision) (*apd.Decimal, error) {
	if err := checkPool([]*apd.Decimal{reserveIn, reserveOut}, []*apd.Decimal{weightIn, weightOut}); err != nil {
		return nil, err
	}
	if !finite(amountIn) || amountIn.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount in must be non-negative", ErrInvalidInput)
	}
	if !finite(fee) || fee.Sign() < 0 || fee.Cmp(decOne) >= 0 {
		return nil, fmt.Errorf("%w: fee must be in [0, 1)", ErrInvalidInput)
	}
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}

	ar := &arith{ctx: ctx}
	effective := ar.mul(amountIn, ar.sub(decOne, fee))
	ratio := ar.quo(reserveIn, ar.add(reserveIn, effective))
	factor := ar.pow(ratio, ar.quo(weightIn, weightOut))
	out := ar.mul(reserveOut, ar.sub(decOne, factor))
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}

// ConstantProductDelta solves the two-asset, equal-weight basket equation
// (a₀ − Δ)(a₁ − Δ) = r₀r₁ without iteration. It returns the smaller root in the
// cancellation-free form Δ = 2(a₀a₁ − r₀r₁) / ((a₀ + a₁) + √((a₀ − a₁)² + 4r₀r₁)).
func ConstantProductDelta(reserves, deposits []*apd.Decimal, p Precision) (*apd.Decimal, error) {
	if len(reserves) != 2 {
		return nil, fmt.Errorf("%w: constant product needs 2 reserves, got %d", ErrInvalidInput, len(reserves))
	}
	for i, r := range reserves {
		if !positive(r) {
			return nil, fmt.Errorf("%w: reserve %d must be positive", ErrInvalidInput, i)
		}
	}
	if err := checkDeposits(deposits, 2); err != nil {
		return nil, err
	}
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}

	ar := &arith{ctx: ctx}
	a0 := ar.add(reserves[0], deposits[0])
	a1 := ar.add(reserves[1], deposits[1])
	rr := ar.mul(reserves[0], reserves[1])
	gap := ar.sub(a0, a1)
	disc := ar.add(ar.mul(gap, gap), ar.mul(apd.New(4, 0), rr))
	num := ar.mul(decTwo, ar.sub(ar.mul(a0, a1), rr))
	out := ar.quo(num, ar.add(ar.add(a0, a1), ar.sqrt(disc)))
	if ar.err != nil {
		return nil, ar.err
	}
	return out, nil
}
