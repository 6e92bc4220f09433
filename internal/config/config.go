package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/cockroachdb/apd/v3"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":1337"`
	RPCEndpoint string `env:"ETH_RPC_URL"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	Solver      Solver
}

// Solver holds the defaults applied to every solve the process runs.
type Solver struct {
	Precision     uint32 `env:"SOLVER_PRECISION" envDefault:"100"`
	Tolerance     string `env:"SOLVER_TOLERANCE" envDefault:"1e-40"`
	MaxIterations int    `env:"SOLVER_MAX_ITERATIONS" envDefault:"100"`
	Order         string `env:"SOLVER_ORDER" envDefault:"newton"`
	Rounding      string `env:"SOLVER_ROUNDING" envDefault:"half_even"`
	// Timeout bounds one solve; zero disables it.
	Timeout time.Duration `env:"SOLVER_TIMEOUT" envDefault:"10s"`
}

func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvironment, err)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.LogFormat)
	}

	if _, err := cfg.Solver.Config(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HasRPC reports whether chain-backed routes can be served.
func (c *Config) HasRPC() bool {
	return c.RPCEndpoint != ""
}

// Config builds the solver configuration the values describe.
func (s Solver) Config() (weighted.Config, error) {
	cfg := weighted.DefaultConfig()
	cfg.Precision = weighted.Precision{Digits: s.Precision, Rounding: s.Rounding}
	cfg.MaxIterations = s.MaxIterations

	tol, _, err := apd.NewFromString(s.Tolerance)
	if err != nil {
		return cfg, fmt.Errorf("%w: tolerance %q: %w", ErrInvalidSolver, s.Tolerance, err)
	}
	cfg.Tolerance = tol

	order, err := weighted.ParseOrder(s.Order)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidSolver, err)
	}
	cfg.Order = order

	if err := cfg.Precision.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidSolver, err)
	}
	if tol.Sign() <= 0 {
		return cfg, fmt.Errorf("%w: tolerance must be positive", ErrInvalidSolver)
	}
	if cfg.MaxIterations <= 0 {
		return cfg, fmt.Errorf("%w: max iterations must be positive", ErrInvalidSolver)
	}
	if tol.Cmp(apd.New(1, -int32(cfg.Precision.Digits))) < 0 {
		return cfg, fmt.Errorf("%w: tolerance %s is finer than %d digits resolve", ErrInvalidSolver, s.Tolerance, cfg.Precision.Digits)
	}
	if s.Timeout < 0 {
		return cfg, fmt.Errorf("%w: timeout must not be negative", ErrInvalidSolver)
	}
	return cfg, nil
}
