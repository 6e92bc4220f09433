package weighted

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func TestInvariant(t *testing.T) {
	k, err := Invariant(decs(t, "4", "9"), decs(t, "0.5", "0.5"), DefaultPrecision())
	require.NoError(t, err)
	requireClose(t, dec(t, "6"), k, "1e-95")

	_, err = Invariant(decs(t, "4"), decs(t, "1"), DefaultPrecision())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluatorBound(t *testing.T) {
	e, err := NewEvaluator(decs(t, "300", "20", "400"), decs(t, "0.2", "0.4", "0.4"), decs(t, "0", "100", "0"), DefaultPrecision())
	require.NoError(t, err)

	b := e.Bound()
	require.Equal(t, 1, b.Index)
	require.Zero(t, b.Value.Cmp(dec(t, "120")))
}

func TestEvaluatorBoundTiesKeepFirstIndex(t *testing.T) {
	e, err := NewEvaluator(decs(t, "50", "40", "50"), decs(t, "0.2", "0.4", "0.4"), decs(t, "0", "10", "0"), DefaultPrecision())
	require.NoError(t, err)
	require.Equal(t, 0, e.Bound().Index)
}

// shift returns x + sign·h.
func shift(t *testing.T, x, h *apd.Decimal, sign int) *apd.Decimal {
	t.Helper()
	ctx := apd.BaseContext.WithPrecision(120)
	out := new(apd.Decimal)
	var err error
	if sign < 0 {
		_, err = ctx.Sub(out, x, h)
	} else {
		_, err = ctx.Add(out, x, h)
	}
	require.NoError(t, err)
	return out
}

// finiteDiff returns (hi − lo) / 2h.
func finiteDiff(t *testing.T, hi, lo, h *apd.Decimal) *apd.Decimal {
	t.Helper()
	ctx := apd.BaseContext.WithPrecision(120)
	out := new(apd.Decimal)
	_, err := ctx.Sub(out, hi, lo)
	require.NoError(t, err)
	den := new(apd.Decimal)
	_, err = ctx.Mul(den, h, apd.New(2, 0))
	require.NoError(t, err)
	_, err = ctx.Quo(out, out, den)
	require.NoError(t, err)
	return out
}

func TestBasketDerivativesMatchFiniteDifferences(t *testing.T) {
	r, w, x := fixtures[0].inputs(t)
	e, err := NewEvaluator(r, w, x, Precision{Digits: 120})
	require.NoError(t, err)

	delta := dec(t, "37.5")
	h := dec(t, "1e-30")
	at, err := e.Basket(delta, 3)
	require.NoError(t, err)
	up, err := e.Basket(shift(t, delta, h, 1), 3)
	require.NoError(t, err)
	down, err := e.Basket(shift(t, delta, h, -1), 3)
	require.NoError(t, err)

	requireClose(t, finiteDiff(t, up.F, down.F, h), at.D1, "1e-45")
	requireClose(t, finiteDiff(t, up.D1, down.D1, h), at.D2, "1e-45")
	requireClose(t, finiteDiff(t, up.D2, down.D2, h), at.D3, "1e-45")
	require.Equal(t, -1, at.D1.Sign())
	require.Equal(t, -1, at.D2.Sign())
}

func TestBasketSecondDerivativePairwiseForm(t *testing.T) {
	r, w, x := fixtures[1].inputs(t)
	e, err := NewEvaluator(r, w, x, DefaultPrecision())
	require.NoError(t, err)

	delta := dec(t, "100")
	got, err := e.Basket(delta, 2)
	require.NoError(t, err)

	// P · [Σ w_i(w_i−1)/den_i² + 2 Σ_{i<j} w_i w_j / (den_i den_j)]
	ctx := apd.BaseContext.WithPrecision(100)
	ar := &arith{ctx: ctx}
	den := make([]*apd.Decimal, len(r))
	for i := range r {
		den[i] = ar.sub(ar.add(r[i], x[i]), delta)
	}
	sum := new(apd.Decimal)
	for i := range den {
		sum = ar.add(sum, ar.quo(ar.mul(w[i], ar.sub(w[i], decOne)), ar.mul(den[i], den[i])))
		for j := i + 1; j < len(den); j++ {
			pair := ar.quo(ar.mul(w[i], w[j]), ar.mul(den[i], den[j]))
			sum = ar.add(sum, ar.mul(decTwo, pair))
		}
	}
	want := ar.mul(weightedProduct(ar, den, w, -1), sum)
	require.NoError(t, ar.err)
	requireClose(t, want, got.D2, "1e-90")
}

func TestAlphaDerivativesMatchFiniteDifferences(t *testing.T) {
	r, w, x := fixtures[2].inputs(t)
	e, err := NewEvaluator(r, w, x, Precision{Digits: 120})
	require.NoError(t, err)

	alpha := dec(t, "0.75")
	h := dec(t, "1e-30")
	at, err := e.Alpha(alpha, 3)
	require.NoError(t, err)
	up, err := e.Alpha(shift(t, alpha, h, 1), 3)
	require.NoError(t, err)
	down, err := e.Alpha(shift(t, alpha, h, -1), 3)
	require.NoError(t, err)

	requireClose(t, finiteDiff(t, up.F, down.F, h), at.D1, "1e-45")
	requireClose(t, finiteDiff(t, up.D1, down.D1, h), at.D2, "1e-45")
	requireClose(t, finiteDiff(t, up.D2, down.D2, h), at.D3, "1e-45")
}

func TestBasketRejectsPointsOutsideDomain(t *testing.T) {
	r, w, x := fixtures[0].inputs(t)
	e, err := NewEvaluator(r, w, x, DefaultPrecision())
	require.NoError(t, err)

	_, err = e.Basket(dec(t, "120"), 1)
	require.ErrorIs(t, err, ErrDomainViolation)

	_, err = e.Alpha(dec(t, "0"), 1)
	require.ErrorIs(t, err, ErrDomainViolation)
}

func TestNewEvaluatorValidation(t *testing.T) {
	cases := []struct {
		name     string
		reserves []string
		weights  []string
		deposits []string
	}{
		{"one_asset", []string{"1"}, []string{"1"}, []string{"0"}},
		{"weights_length", []string{"1", "2"}, []string{"1"}, []string{"0", "0"}},
		{"deposits_length", []string{"1", "2"}, []string{"0.5", "0.5"}, []string{"0"}},
		{"zero_reserve", []string{"0", "2"}, []string{"0.5", "0.5"}, []string{"0", "0"}},
		{"negative_weight", []string{"1", "2"}, []string{"-0.5", "1.5"}, []string{"0", "0"}},
		{"negative_deposit", []string{"1", "2"}, []string{"0.5", "0.5"}, []string{"-1", "0"}},
		{"nan_reserve", []string{"NaN", "2"}, []string{"0.5", "0.5"}, []string{"0", "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEvaluator(decs(t, tc.reserves...), decs(t, tc.weights...), decs(t, tc.deposits...), DefaultPrecision())
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := NewEvaluator([]*apd.Decimal{nil, dec(t, "1")}, decs(t, "0.5", "0.5"), decs(t, "0", "0"), DefaultPrecision())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPrecisionValidate(t *testing.T) {
	require.NoError(t, DefaultPrecision().Validate())
	require.NoError(t, Precision{Digits: 50}.Validate())
	require.NoError(t, Precision{Digits: MaxDigits}.Validate())
	require.ErrorIs(t, Precision{}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, Precision{Digits: MaxDigits + 1}.Validate(), ErrInvalidInput)
	require.ErrorIs(t, Precision{Digits: 50, Rounding: "sideways"}.Validate(), ErrInvalidInput)

	ctx, err := Precision{Digits: 42, Rounding: RoundFloor}.Context()
	require.NoError(t, err)
	require.EqualValues(t, 42, ctx.Precision)
	require.Equal(t, apd.RoundFloor, ctx.Rounding)
}
