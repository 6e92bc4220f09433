package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/nulln0ne/weighted-estimator/internal/config"
	"github.com/nulln0ne/weighted-estimator/internal/eth"
	"github.com/nulln0ne/weighted-estimator/internal/service"
)

func newPoolCmd(a *app) *cobra.Command {
	var (
		f       solveFlags
		address string
		tokens  []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Solve against the live token balances of a pool contract",
		Long: `pool reads balanceOf(pool) and decimals() of every token at the latest
block from ETH_RPC_URL and solves the basket withdrawal against them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.HasRPC() {
				return config.ErrMissingRPCEndpoint
			}
			if !common.IsHexAddress(address) {
				return fmt.Errorf("--address: invalid address %q", address)
			}
			addrs := make([]common.Address, len(tokens))
			for i, tok := range tokens {
				if !common.IsHexAddress(tok) {
					return fmt.Errorf("--tokens[%d]: invalid address %q", i, tok)
				}
				addrs[i] = common.HexToAddress(tok)
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

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			client, err := eth.Dial(ctx, a.cfg.RPCEndpoint)
			if err != nil {
				return fmt.Errorf("failed to connect to Ethereum node: %w", err)
			}
			defer client.Close()
			reader, err := eth.NewBalanceReader(client)
			if err != nil {
				return err
			}

			solver := service.NewSolveService(a.logger, cfg, a.cfg.Solver.Timeout, nil)
			pools := service.NewPoolService(a.logger, reader, solver)
			res, err := pools.Solve(ctx, common.HexToAddress(address), service.PoolSolveRequest{
				Tokens:   addrs,
				Weights:  weights,
				Deposits: deposits,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "block       %d\n", res.Block)
			for i, r := range res.Reserves {
				fmt.Fprintf(a.out, "reserve[%d]  %s\n", i, r.Text('f'))
			}
			printResult(a, res.Result)
			return nil
		},
	}
	f.register(cmd, false)
	fs := cmd.Flags()
	fs.StringVar(&address, "address", "", "pool contract address")
	fs.StringSliceVar(&tokens, "tokens", nil, "pool token addresses, comma separated")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "deadline for reading reserves and solving")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("tokens")
	return cmd
}
