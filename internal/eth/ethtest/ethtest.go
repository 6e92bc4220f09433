// Package ethtest runs an in-process JSON-RPC node serving the ERC-20 calls
// the balance reader makes.
package ethtest

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

var (
	selectorBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31}
	selectorDecimals  = []byte{0x31, 0x3c, 0xe5, 0x67}
)

// Node is the fake "eth" namespace. Tokens maps a token contract to its
// decimals and its balances by holder.
type Node struct {
	Head   uint64
	Tokens map[common.Address]*Token

	mu    sync.Mutex
	calls int
}

type Token struct {
	Decimals uint8
	Balances map[common.Address]*big.Int
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (n *Node) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	return hexutil.Uint64(n.Head), nil
}

func (n *Node) Call(ctx context.Context, args callArgs, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()

	input := args.Input
	if len(input) == 0 {
		input = args.Data
	}
	if args.To == nil || len(input) < 4 {
		return nil, errors.New("execution reverted")
	}
	token, ok := n.Tokens[*args.To]
	if !ok {
		// Calling an address without code returns empty output.
		return hexutil.Bytes{}, nil
	}

	switch {
	case bytes.Equal(input[:4], selectorBalanceOf) && len(input) >= 36:
		holder := common.BytesToAddress(input[4:36])
		bal := token.Balances[holder]
		if bal == nil {
			bal = new(big.Int)
		}
		return word(bal), nil
	case bytes.Equal(input[:4], selectorDecimals):
		return word(new(big.Int).SetUint64(uint64(token.Decimals))), nil
	default:
		return nil, errors.New("execution reverted")
	}
}

// Calls returns the number of eth_call requests served.
func (n *Node) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func word(v *big.Int) hexutil.Bytes {
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

// Dial serves n in-process and returns a client connected to it. Both are
// closed when the test ends.
func Dial(t testing.TB, n *Node) *ethclient.Client {
	t.Helper()
	srv := gethrpc.NewServer()
	// Register under the standard "eth" namespace so methods map to eth_*
	if err := srv.RegisterName("eth", n); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	client := ethclient.NewClient(gethrpc.DialInProc(srv))
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
	})
	return client
}
