package main

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/cobra"

	"github.com/nulln0ne/weighted-estimator/pkg/weighted"
)

type solveFlags struct {
	reserves, weights, deposits []string
	order                       string
	precision                   uint32
	tolerance                   string
	maxIterations               int
	guard                       string
	initialDelta                string
}

func (f *solveFlags) register(cmd *cobra.Command, withReserves bool) {
	fs := cmd.Flags()
	if withReserves {
		fs.StringSliceVar(&f.reserves, "reserves", nil, "pool reserves, comma separated")
		_ = cmd.MarkFlagRequired("reserves")
	}
	fs.StringSliceVar(&f.weights, "weights", nil, "normalised weights, comma separated")
	fs.StringSliceVar(&f.deposits, "deposits", nil, "deposit per asset, comma separated")
	fs.StringVar(&f.order, "order", "", "newton, halley, householder or chebyshev (default SOLVER_ORDER)")
	fs.Uint32Var(&f.precision, "precision", 0, "significant digits (default SOLVER_PRECISION)")
	fs.StringVar(&f.tolerance, "tolerance", "", "convergence tolerance (default SOLVER_TOLERANCE)")
	fs.IntVar(&f.maxIterations, "max-iterations", 0, "iteration ceiling (default SOLVER_MAX_ITERATIONS)")
	fs.StringVar(&f.guard, "guard", "bisect", "domain guard policy: bisect or clamp")
	fs.StringVar(&f.initialDelta, "initial-delta", "", "start the iteration at this Δ instead of the analytic estimate")
	_ = cmd.MarkFlagRequired("weights")
	_ = cmd.MarkFlagRequired("deposits")
}

// config layers the flags over the environment defaults.
func (f *solveFlags) config(a *app) (weighted.Config, error) {
	cfg, err := a.cfg.Solver.Config()
	if err != nil {
		return cfg, err
	}
	if f.order != "" {
		if cfg.Order, err = weighted.ParseOrder(f.order); err != nil {
			return cfg, err
		}
	}
	if f.precision != 0 {
		cfg.Precision.Digits = f.precision
	}
	if f.tolerance != "" {
		if cfg.Tolerance, _, err = apd.NewFromString(f.tolerance); err != nil {
			return cfg, fmt.Errorf("--tolerance: %w", err)
		}
	}
	if f.maxIterations != 0 {
		cfg.MaxIterations = f.maxIterations
	}
	switch f.guard {
	case "bisect":
		cfg.Guard = weighted.GuardBisect
	case "clamp":
		cfg.Guard = weighted.GuardClamp
	default:
		return cfg, fmt.Errorf("--guard: unknown policy %q", f.guard)
	}
	if f.initialDelta != "" {
		if cfg.InitialDelta, _, err = apd.NewFromString(f.initialDelta); err != nil {
			return cfg, fmt.Errorf("--initial-delta: %w", err)
		}
	}
	if a.verbose {
		cfg.Observer = weighted.ObserverFunc(func(it weighted.Iteration) {
			a.logger.Debug("iteration", "index", it.Index, "iterate", it.Iterate.Text('e'), "step", it.Step.Text('e'), "f", it.F.Text('e'), "guarded", it.Guarded)
		})
	}
	return cfg, nil
}

func newSolveCmd(a *app) *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the basket withdrawal Δ for a deposit vector",
		Example: `  wsolve solve --reserves 20,300,400,50000 --weights 0.4,0.2,0.1,0.3 --deposits 100,0,0,0
  wsolve solve --reserves 1,1 --weights 0.5,0.5 --deposits 0,99 --order chebyshev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reserves, err := parseDecimals("reserves", f.reserves)
			if err != nil {
				return err
			}
			weights, err := parseDecimals("weights", f.weights)
			if err != nil {
				return err
			}
			deposits, err := parseDecimals("deposits", f.deposits)
			if err != nil {
				return err
			}
			cfg, err := f.config(a)
			if err != nil {
				return err
			}

			res, err := weighted.Solve(reserves, weights, deposits, cfg)
			if err != nil {
				return err
			}
			printResult(a, res)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func printResult(a *app, res *weighted.Result) {
	fmt.Fprintf(a.out, "delta       %s\n", res.Delta.Text('f'))
	fmt.Fprintf(a.out, "alpha       %s\n", res.Alpha.Text('f'))
	fmt.Fprintf(a.out, "alpha0      %s\n", res.Alpha0.Text('f'))
	fmt.Fprintf(a.out, "residual    %s\n", res.Residual.Text('e'))
	fmt.Fprintf(a.out, "bound       %s (asset %d)\n", res.Bound.Value.Text('f'), res.Bound.Index)
	fmt.Fprintf(a.out, "order       %s\n", res.Order)
	fmt.Fprintf(a.out, "iterations  %d (guarded %d)\n", res.Iterations, res.GuardActivations)
}

func newSingleOutputCmd(a *app) *cobra.Command {
	var (
		reserves, weights []string
		delta             string
		index             int
	)
	cmd := &cobra.Command{
		Use:     "single-output",
		Short:   "Price depositing Δ into every asset but one",
		Example: `  wsolve single-output --reserves 1000,2000,3000 --weights 0.5,0.3,0.2 --delta 60 --index 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseDecimals("reserves", reserves)
			if err != nil {
				return err
			}
			w, err := parseDecimals("weights", weights)
			if err != nil {
				return err
			}
			d, _, err := apd.NewFromString(delta)
			if err != nil {
				return fmt.Errorf("--delta: %w", err)
			}
			sc, err := a.cfg.Solver.Config()
			if err != nil {
				return err
			}
			out, err := weighted.SolveSingleOutput(r, w, d, index, sc.Precision)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "amount_out  %s\n", out.Text('f'))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&reserves, "reserves", nil, "pool reserves, comma separated")
	fs.StringSliceVar(&weights, "weights", nil, "normalised weights, comma separated")
	fs.StringVar(&delta, "delta", "", "amount deposited into every other asset")
	fs.IntVar(&index, "index", 0, "index of the asset paid out")
	_ = cmd.MarkFlagRequired("reserves")
	_ = cmd.MarkFlagRequired("weights")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func newSwapCmd(a *app) *cobra.Command {
	var reserveIn, weightIn, reserveOut, weightOut, amountIn, fee string
	cmd := &cobra.Command{
		Use:     "swap",
		Short:   "Price a single-asset trade against a weighted pool",
		Example: `  wsolve swap --reserve-in 1000 --weight-in 0.8 --reserve-out 2000 --weight-out 0.2 --amount-in 10 --fee 0.003`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseDecimals("swap", []string{reserveIn, weightIn, reserveOut, weightOut, amountIn, fee})
			if err != nil {
				return err
			}
			sc, err := a.cfg.Solver.Config()
			if err != nil {
				return err
			}
			out, err := weighted.SwapExactIn(values[0], values[1], values[2], values[3], values[4], values[5], sc.Precision)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "amount_out  %s\n", out.Text('f'))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&reserveIn, "reserve-in", "", "reserve of the asset sold")
	fs.StringVar(&weightIn, "weight-in", "0.5", "weight of the asset sold")
	fs.StringVar(&reserveOut, "reserve-out", "", "reserve of the asset bought")
	fs.StringVar(&weightOut, "weight-out", "0.5", "weight of the asset bought")
	fs.StringVar(&amountIn, "amount-in", "", "amount sold")
	fs.StringVar(&fee, "fee", "0.003", "swap fee as a fraction")
	_ = cmd.MarkFlagRequired("reserve-in")
	_ = cmd.MarkFlagRequired("reserve-out")
	_ = cmd.MarkFlagRequired("amount-in")
	return cmd
}
