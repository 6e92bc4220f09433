package weighted

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func dec(t testing.TB, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err, "parse %q", s)
	return d
}

func decs(t testing.TB, ss ...string) []*apd.Decimal {
	t.Helper()
	out := make([]*apd.Decimal, len(ss))
	for i, s := range ss {
		out[i] = dec(t, s)
	}
	return out
}

// requireClose fails unless |got − want| ≤ tol.
func requireClose(t testing.TB, want, got *apd.Decimal, tol string) {
	t.Helper()
	require.NotNil(t, got)
	ctx := apd.BaseContext.WithPrecision(300)
	diff := new(apd.Decimal)
	_, err := ctx.Sub(diff, got, want)
	require.NoError(t, err)
	_, err = ctx.Abs(diff, diff)
	require.NoError(t, err)
	require.True(t, diff.Cmp(dec(t, tol)) <= 0, "got %s want %s (|diff| %s > %s)", got.Text('e'), want.Text('e'), diff.Text('e'), tol)
}

// requireSmall fails unless |got| ≤ tol.
func requireSmall(t testing.TB, got *apd.Decimal, tol string) {
	t.Helper()
	requireClose(t, apd.New(0, 0), got, tol)
}

// fixture is a pool and deposit vector used across the solver tests.
type fixture struct {
	name     string
	reserves []string
	weights  []string
	deposits []string
}

func (f fixture) inputs(t testing.TB) (reserves, weights, deposits []*apd.Decimal) {
	t.Helper()
	return decs(t, f.reserves...), decs(t, f.weights...), decs(t, f.deposits...)
}

var fixtures = []fixture{
	{
		name:     "single_deposit_four_assets",
		reserves: []string{"20", "300", "400", "50000"},
		weights:  []string{"0.4", "0.2", "0.1", "0.3"},
		deposits: []string{"100", "0", "0", "0"},
	},
	{
		name:     "spread_deposits_five_assets",
		reserves: []string{"2000", "2000", "2000", "534", "1000"},
		weights:  []string{"0.1", "0.3", "0.2", "0.2", "0.2"},
		deposits: []string{"400", "40", "5", "7", "47"},
	},
	{
		name:     "skewed_reserves_five_assets",
		reserves: []string{"20", "2000", "200000", "534", "1000"},
		weights:  []string{"0.1", "0.3", "0.2", "0.2", "0.2"},
		deposits: []string{"4", "4", "5", "7", "47"},
	},
}
