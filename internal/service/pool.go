package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"

	"github.com/nulln0ne/weighted-estimator/internal/eth"
	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

// ReserveReader returns the balances a pool holds at one block.
type ReserveReader interface {
	Balances(ctx context.Context, holder common.Address, tokens []common.Address) (uint64, []eth.Balance, error)
}

// PoolSolveRequest solves against live reserves; weights and deposits are
// aligned with Tokens and deposits are in whole token units.
type PoolSolveRequest struct {
	Tokens   []common.Address
	Weights  []*apd.Decimal
	Deposits []*apd.Decimal
	Order    weighted.Order
}

type PoolResult struct {
	Block    uint64
	Reserves []*apd.Decimal
	Result   *weighted.Result
}

// PoolService reads a weighted pool's reserves from chain and solves the
// basket withdrawal against them.
type PoolService struct {
	BaseService
	reader ReserveReader
	solver *SolveService
}

func NewPoolService(logger *slog.Logger, reader ReserveReader, solver *SolveService) *PoolService {
	return &PoolService{
		BaseService: BaseService{logger: logger},
		reader:      reader,
		solver:      solver,
	}
}

func (p *PoolService) Solve(ctx context.Context, pool common.Address, req PoolSolveRequest) (*PoolResult, error) {
	p.logger.Debug("solving against pool", "pool", pool.Hex(), "tokens", len(req.Tokens))

	if len(req.Weights) != len(req.Tokens) || len(req.Deposits) != len(req.Tokens) {
		return nil, ErrPoolShape
	}
	seen := make(map[common.Address]struct{}, len(req.Tokens))
	for _, tok := range req.Tokens {
		if _, dup := seen[tok]; dup {
			return nil, ErrSameToken
		}
		seen[tok] = struct{}{}
	}

	block, balances, err := p.reader.Balances(ctx, pool, req.Tokens)
	if err != nil {
		return nil, fmt.Errorf("read reserves of %s: %w", pool.Hex(), err)
	}
	reserves := make([]*apd.Decimal, len(balances))
	for i, b := range balances {
		if b.Raw.Sign() == 0 {
			return nil, ErrEmptyReserves
		}
		reserves[i] = b.Amount()
	}

	res, err := p.solver.Solve(ctx, SolveRequest{
		Reserves: reserves,
		Weights:  req.Weights,
		Deposits: req.Deposits,
		Order:    req.Order,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("pool solve computed", "pool", pool.Hex(), "block", block, "delta", res.Delta.Text('f'))
	return &PoolResult{Block: block, Reserves: reserves, Result: res}, nil
}
