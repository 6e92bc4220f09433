// Package handler defines HTTP request handlers and related utilities.
package handler

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// BaseHandler provides common dependencies for HTTP handlers.
type BaseHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
}

func newBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger, validate: validator.New(validator.WithRequiredStructEnabled())}
}
