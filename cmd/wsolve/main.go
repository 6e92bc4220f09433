// Command wsolve runs one weighted-pool solve from the command line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nulln0ne/weighted-estimator/internal/config"
	"github.com/nulln0ne/weighted-estimator/internal/logging"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	out     io.Writer
	cfg     *config.Config
	logger  *slog.Logger
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "wsolve",
		Short: "Weighted pool basket withdrawal solver",
		Long: `wsolve computes the amount Δ withdrawn from every asset of a weighted
constant-function pool after a deposit, keeping ∏ r_i^w_i unchanged.

Solver defaults come from SOLVER_* environment variables and can be
overridden per run with flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			a.cfg = cfg
			level := cfg.LogLevel
			if a.verbose {
				level = "debug"
			}
			a.logger = logging.New(cmd.ErrOrStderr(), level, cfg.LogFormat)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every iteration to stderr")

	root.AddCommand(newSolveCmd(a), newSingleOutputCmd(a), newSwapCmd(a), newPoolCmd(a))
	return root
}

// parseDecimals parses a list of flag values into decimals.
func parseDecimals(name string, values []string) ([]*apd.Decimal, error) {
	out := make([]*apd.Decimal, len(values))
	for i, v := range values {
		d, _, err := apd.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("--%s[%d] %q: %w", name, i, v, err)
		}
		out[i] = d
	}
	return out, nil
}
