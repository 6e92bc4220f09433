package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nulln0ne/weighted-estimator/internal/service"
	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

// ErrInvalidBody indicates that the request body could not be decoded into
// the expected structure.
var ErrInvalidBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

// ErrSameTokenBadRequest maps a duplicate-token validation failure to a 400 error.
var ErrSameTokenBadRequest = fiber.NewError(fiber.StatusBadRequest, "pool tokens must be distinct")

// ErrPoolShapeBadRequest is returned when tokens, weights and deposits differ in length.
var ErrPoolShapeBadRequest = fiber.NewError(fiber.StatusBadRequest, "tokens, weights and deposits must have the same length")

// ErrEmptyReservesBadRequest maps empty-reserve pool state to a 400 error.
var ErrEmptyReservesBadRequest = fiber.NewError(fiber.StatusBadRequest, "pool has insufficient reserves")

// ErrSolveCanceled is returned when the client went away mid-solve.
var ErrSolveCanceled = fiber.NewError(fiber.StatusRequestTimeout, "solve canceled")

// ErrSolveTimeout is returned when a solve ran past the service time limit.
var ErrSolveTimeout = fiber.NewError(fiber.StatusServiceUnavailable, "solve exceeded time limit")

// ErrEstimationFailedInternal signals a generic server-side estimation error.
var ErrEstimationFailedInternal = fiber.NewError(fiber.StatusInternalServerError, "estimation failed")

// ErrChainUnavailable is returned by chain-backed routes when no RPC endpoint
// is configured.
var ErrChainUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "chain access is not configured")

// NewInvalidField returns a 400 Bad Request naming the first field that
// failed validation.
func NewInvalidField(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid "+verrs[0].Field()+": failed "+verrs[0].Tag())
	}
	return fiber.NewError(fiber.StatusBadRequest, "invalid request: "+err.Error())
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// NewUnprocessable reports a well-formed solve that did not produce a root.
func NewUnprocessable(err error) error {
	return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
}

func (h *BaseHandler) handleServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrSameToken):
		return ErrSameTokenBadRequest
	case errors.Is(err, service.ErrPoolShape):
		return ErrPoolShapeBadRequest
	case errors.Is(err, service.ErrEmptyReserves):
		return ErrEmptyReservesBadRequest
	case errors.Is(err, weighted.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return ErrSolveTimeout
	case errors.Is(err, context.Canceled):
		return ErrSolveCanceled
	case errors.Is(err, weighted.ErrVanishingDerivative),
		errors.Is(err, weighted.ErrDomainViolation),
		errors.Is(err, weighted.ErrMaxIterations):
		return NewUnprocessable(err)
	default:
		h.logger.Error("solve failed", "err", err)
		return ErrEstimationFailedInternal
	}
}
