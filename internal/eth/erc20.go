// Package eth reads pool state from an Ethereum node.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// maxInflight bounds concurrent eth_call requests for one pool.
const maxInflight = 8

var ErrUnexpectedOutput = errors.New("unexpected contract output")

// Caller is the part of ethclient.Client the reader uses.
type Caller interface {
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Balance is one token balance held by a pool.
type Balance struct {
	Token    common.Address
	Raw      *big.Int
	Decimals uint8
}

// Amount returns Raw scaled down by Decimals.
func (b Balance) Amount() *apd.Decimal {
	coeff := new(apd.BigInt).SetMathBigInt(b.Raw)
	return apd.NewWithBigInt(coeff, -int32(b.Decimals))
}

// BalanceReader reads ERC-20 balances of a pool contract. Weighted pools keep
// their reserves as plain token balances, so balanceOf(pool) is the reserve.
type BalanceReader struct {
	client Caller
	abi    abi.ABI
}

func NewBalanceReader(client Caller) (*BalanceReader, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &BalanceReader{client: client, abi: parsed}, nil
}

// Balances returns holder's balance of every token, all read at the same
// latest block, in the order of tokens.
func (r *BalanceReader) Balances(ctx context.Context, holder common.Address, tokens []common.Address) (uint64, []Balance, error) {
	bn, err := r.client.BlockNumber(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("block number: %w", err)
	}
	block := new(big.Int).SetUint64(bn)

	out := make([]Balance, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflight)
	for i, token := range tokens {
		g.Go(func() error {
			raw, err := r.balanceOf(gctx, token, holder, block)
			if err != nil {
				return err
			}
			decimals, err := r.decimals(gctx, token, block)
			if err != nil {
				return err
			}
			out[i] = Balance{Token: token, Raw: raw, Decimals: decimals}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}
	return bn, out, nil
}

func (r *BalanceReader) balanceOf(ctx context.Context, token, holder common.Address, block *big.Int) (*big.Int, error) {
	values, err := r.call(ctx, token, block, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: balanceOf on %s returned %T", ErrUnexpectedOutput, token.Hex(), values[0])
	}
	return v, nil
}

func (r *BalanceReader) decimals(ctx context.Context, token common.Address, block *big.Int) (uint8, error) {
	values, err := r.call(ctx, token, block, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: decimals on %s returned %T", ErrUnexpectedOutput, token.Hex(), values[0])
	}
	return v, nil
}

func (r *BalanceReader) call(ctx context.Context, to common.Address, block *big.Int, method string, args ...any) ([]any, error) {
	input, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	data, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, block)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s on %s (block %s): %w", method, to.Hex(), block.String(), err)
	}
	values, err := r.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s on %s: %w", method, to.Hex(), err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: %s on %s returned %d values", ErrUnexpectedOutput, method, to.Hex(), len(values))
	}
	return values, nil
}
