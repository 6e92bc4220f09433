package handler

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v3"

	"github.com/nulln0ne/weighted-estimator/internal/service"
)

type PoolHandler struct {
	BaseHandler
	service *service.PoolService
}

// NewPoolHandler returns a handler for chain-backed solves. A nil service
// makes every request fail with ErrChainUnavailable.
func NewPoolHandler(logger *slog.Logger, svc *service.PoolService) *PoolHandler {
	return &PoolHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// Solve handles POST /pools/:pool/solve.
func (h *PoolHandler) Solve() fiber.Handler {
	return func(c fiber.Ctx) error {
		if h.service == nil {
			return ErrChainUnavailable
		}

		addr := c.Params("pool")
		if !common.IsHexAddress(addr) {
			return NewInvalidAddress("pool")
		}
		var req PoolSolveRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		sreq := service.PoolSolveRequest{Tokens: make([]common.Address, len(req.Tokens))}
		for i, tok := range req.Tokens {
			sreq.Tokens[i] = common.HexToAddress(tok)
		}
		var err error
		if sreq.Weights, err = toDecimals(req.Weights); err != nil {
			return NewInvalidField(err)
		}
		if sreq.Deposits, err = toDecimals(req.Deposits); err != nil {
			return NewInvalidField(err)
		}
		if sreq.Order, err = parseOrder(req.Order); err != nil {
			return NewInvalidField(err)
		}

		pool := common.HexToAddress(addr)
		res, err := h.service.Solve(c.Context(), pool, sreq)
		if err != nil {
			return h.handleServiceError(err)
		}

		reserves := make([]string, len(res.Reserves))
		for i, r := range res.Reserves {
			reserves[i] = r.Text('f')
		}
		h.logger.Debug("pool solve computed", "pool", pool.Hex(), "block", res.Block)
		return c.JSON(PoolSolveResponse{
			SolveResponse: newSolveResponse(res.Result),
			Block:         res.Block,
			Reserves:      reserves,
		})
	}
}
