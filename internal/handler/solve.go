package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/nulln0ne/weighted-estimator/internal/service"
)

type SolveHandler struct {
	BaseHandler
	service *service.SolveService
}

func NewSolveHandler(logger *slog.Logger, svc *service.SolveService) *SolveHandler {
	return &SolveHandler{
		BaseHandler: newBaseHandler(logger),
		service:     svc,
	}
}

// Solve handles POST /solve.
func (h *SolveHandler) Solve() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req SolveRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		sreq, err := h.solveRequest(&req)
		if err != nil {
			return err
		}

		res, err := h.service.Solve(c.Context(), sreq)
		if err != nil {
			return h.handleServiceError(err)
		}

		h.logger.Debug("solve computed", "assets", len(req.Reserves), "order", res.Order.String(), "delta", res.Delta.Text('f'))
		return c.JSON(newSolveResponse(res))
	}
}

// SingleOutput handles POST /single-output.
func (h *SolveHandler) SingleOutput() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req SingleOutputRequest
		if err := h.bind(c, &req); err != nil {
			return err
		}

		reserves, err := toDecimals(req.Reserves)
		if err != nil {
			return NewInvalidField(err)
		}
		weights, err := toDecimals(req.Weights)
		if err != nil {
			return NewInvalidField(err)
		}
		delta, err := toDecimal(req.Delta)
		if err != nil {
			return NewInvalidField(err)
		}

		out, err := h.service.SingleOutput(c.Context(), reserves, weights, delta, *req.OutputIndex)
		if err != nil {
			return h.handleServiceError(err)
		}
		return c.JSON(SingleOutputResponse{AmountOut: out.Text('f')})
	}
}

func (h *SolveHandler) solveRequest(req *SolveRequest) (service.SolveRequest, error) {
	var out service.SolveRequest
	var err error
	if out.Reserves, err = toDecimals(req.Reserves); err != nil {
		return out, NewInvalidField(err)
	}
	if out.Weights, err = toDecimals(req.Weights); err != nil {
		return out, NewInvalidField(err)
	}
	if out.Deposits, err = toDecimals(req.Deposits); err != nil {
		return out, NewInvalidField(err)
	}
	if req.Tolerance != nil {
		if out.Tolerance, err = toDecimal(*req.Tolerance); err != nil {
			return out, NewInvalidField(err)
		}
	}
	if out.Order, err = parseOrder(req.Order); err != nil {
		return out, NewInvalidField(err)
	}
	out.Precision = req.Precision
	out.MaxIterations = req.MaxIterations
	return out, nil
}

// bind decodes the JSON body into out and validates it.
func (h *BaseHandler) bind(c fiber.Ctx, out any) error {
	if err := c.Bind().JSON(out); err != nil {
		h.logger.Debug("failed to bind request body", "err", err)
		return ErrInvalidBody
	}
	if err := h.validate.Struct(out); err != nil {
		return NewInvalidField(err)
	}
	return nil
}
