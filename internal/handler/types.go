package handler

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/shopspring/decimal"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

type SolveRequest struct {
	Reserves      []decimal.Decimal `json:"reserves" validate:"required,min=2,max=64"`
	Weights       []decimal.Decimal `json:"weights" validate:"required,min=2,max=64"`
	Deposits      []decimal.Decimal `json:"deposits" validate:"required,min=2,max=64"`
	Order         string            `json:"order" validate:"omitempty,oneof=1 2 3 newton halley householder chebyshev"`
	Precision     uint32            `json:"precision" validate:"omitempty,min=1,max=500"`
	Tolerance     *decimal.Decimal  `json:"tolerance"`
	MaxIterations int               `json:"max_iterations" validate:"omitempty,min=1,max=1000"`
}

type SingleOutputRequest struct {
	Reserves    []decimal.Decimal `json:"reserves" validate:"required,min=2,max=64"`
	Weights     []decimal.Decimal `json:"weights" validate:"required,min=2,max=64"`
	Delta       decimal.Decimal   `json:"delta"`
	OutputIndex *int              `json:"output_index" validate:"required,min=0,max=63"`
}

type PoolSolveRequest struct {
	Tokens   []string          `json:"tokens" validate:"required,min=2,max=64,dive,eth_addr"`
	Weights  []decimal.Decimal `json:"weights" validate:"required,min=2,max=64"`
	Deposits []decimal.Decimal `json:"deposits" validate:"required,min=2,max=64"`
	Order    string            `json:"order" validate:"omitempty,oneof=1 2 3 newton halley householder chebyshev"`
}

type SolveResponse struct {
	Delta            string `json:"delta"`
	Alpha            string `json:"alpha"`
	Alpha0           string `json:"alpha0"`
	Iterations       int    `json:"iterations"`
	GuardActivations int    `json:"guard_activations"`
	Residual         string `json:"residual"`
	Bound            string `json:"bound"`
	BoundIndex       int    `json:"bound_index"`
	Order            string `json:"order"`
}

type SingleOutputResponse struct {
	AmountOut string `json:"amount_out"`
}

type PoolSolveResponse struct {
	SolveResponse
	Block    uint64   `json:"block"`
	Reserves []string `json:"reserves"`
}

func newSolveResponse(res *weighted.Result) SolveResponse {
	return SolveResponse{
		Delta:            res.Delta.Text('f'),
		Alpha:            res.Alpha.Text('f'),
		Alpha0:           res.Alpha0.Text('f'),
		Iterations:       res.Iterations,
		GuardActivations: res.GuardActivations,
		Residual:         res.Residual.Text('e'),
		Bound:            res.Bound.Value.Text('f'),
		BoundIndex:       res.Bound.Index,
		Order:            res.Order.String(),
	}
}

func toDecimal(d decimal.Decimal) (*apd.Decimal, error) {
	out, _, err := apd.NewFromString(d.String())
	if err != nil {
		return nil, fmt.Errorf("decimal %s: %w", d.String(), err)
	}
	return out, nil
}

func toDecimals(ds []decimal.Decimal) ([]*apd.Decimal, error) {
	out := make([]*apd.Decimal, len(ds))
	for i, d := range ds {
		v, err := toDecimal(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// parseOrder maps an optional order name; empty means the service default.
func parseOrder(s string) (weighted.Order, error) {
	if s == "" {
		return 0, nil
	}
	return weighted.ParseOrder(s)
}
