package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nulln0ne/weighted-estimator/internal/config"
	"github.com/nulln0ne/weighted-estimator/internal/eth"
	"github.com/nulln0ne/weighted-estimator/internal/handler"
	"github.com/nulln0ne/weighted-estimator/internal/logging"
	"github.com/nulln0ne/weighted-estimator/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	solverCfg, err := cfg.Solver.Config()
	if err != nil {
		return err
	}

	app := fiber.New()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solveService := service.NewSolveService(logger, solverCfg, cfg.Solver.Timeout, metrics)

	var poolService *service.PoolService
	if cfg.HasRPC() {
		ethereumClient, err := eth.Dial(ctx, cfg.RPCEndpoint)
		if err != nil {
			return fmt.Errorf("failed to connect to Ethereum node: %w", err)
		}
		defer ethereumClient.Close()

		reader, err := eth.NewBalanceReader(ethereumClient)
		if err != nil {
			return err
		}
		poolService = service.NewPoolService(logger, reader, solveService)
	} else {
		logger.Warn("ETH_RPC_URL not set; pool routes disabled")
	}

	solveHandler := handler.NewSolveHandler(logger, solveService)
	poolHandler := handler.NewPoolHandler(logger, poolService)
	app.Post("/solve", solveHandler.Solve())
	app.Post("/single-output", solveHandler.SingleOutput())
	app.Post("/pools/:pool/solve", poolHandler.Solve())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	logger.Info("starting server", "addr", cfg.Addr, "order", solverCfg.Order.String(), "precision", solverCfg.Precision.Digits)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = app.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	return app.ShutdownWithTimeout(3 * time.Second)
}
