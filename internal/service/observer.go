package service

import (
	"context"
	"log/slog"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

// logObserver writes every iteration at debug level.
type logObserver struct {
	ctx    context.Context
	logger *slog.Logger
}

func (o logObserver) Observe(it weighted.Iteration) {
	if !o.logger.Enabled(o.ctx, slog.LevelDebug) {
		return
	}
	o.logger.LogAttrs(o.ctx, slog.LevelDebug, "solver iteration",
		slog.String("order", it.Order.String()),
		slog.Int("index", it.Index),
		slog.String("iterate", it.Iterate.Text('e')),
		slog.String("step", it.Step.Text('e')),
		slog.String("f", it.F.Text('e')),
		slog.Bool("guarded", it.Guarded),
	)
}
