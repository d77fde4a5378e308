package profit

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	contractAddr = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	senderAddr   = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
	takerAddr    = common.HexToAddress("0x000000000000000000000000000000000000cccc")
	poolAddr     = common.HexToAddress("0x000000000000000000000000000000000000dddd")
	dexAddr      = common.HexToAddress("0x000000000000000000000000000000000000eeee")
	loanToken    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	profitToken  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	wethAddr     = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
)

func word(b []byte) []byte {
	return common.LeftPadBytes(b, 32)
}

func calldata(sel [4]byte, args ...[]byte) []byte {
	out := append([]byte{}, sel[:]...)
	for _, a := range args {
		out = append(out, word(a)...)
	}
	return out
}

func transferInput(to common.Address, amount int64) []byte {
	return calldata(selectorTransfer, to.Bytes(), big.NewInt(amount).Bytes())
}

func transferFromInput(from, to common.Address, amount int64) []byte {
	return calldata(selectorTransferFrom, from.Bytes(), to.Bytes(), big.NewInt(amount).Bytes())
}

func withdrawInput(amount int64) []byte {
	return calldata(selectorWithdraw, big.NewInt(amount).Bytes())
}

func depositInput() []byte {
	return calldata(selectorDeposit)
}

func call(from, to common.Address, value int64, input []byte, children ...*TraceNode) *TraceNode {
	n := &TraceNode{Type: CallTypeCall, From: from, To: to, Input: input, Calls: children}
	if value != 0 {
		n.Value = big.NewInt(value)
	}
	return n
}

// erc20 is a transfer(to, amount) call from holder on token.
func erc20(token, holder, to common.Address, amount int64, children ...*TraceNode) *TraceNode {
	return call(holder, token, 0, transferInput(to, amount), children...)
}

func wrappedOnly(tokens ...common.Address) WrappedCheck {
	set := make(map[common.Address]bool)
	for _, t := range tokens {
		set[t] = true
	}
	return func(_ context.Context, token common.Address) bool {
		return set[token]
	}
}

type fakeCodeReader struct {
	mu          sync.Mutex
	code        map[common.Address][]byte
	err         error
	calls       map[common.Address]int
	sawDeadline bool
}

func newFakeCodeReader() *fakeCodeReader {
	return &fakeCodeReader{
		code:  make(map[common.Address][]byte),
		calls: make(map[common.Address]int),
	}
}

func (f *fakeCodeReader) CodeAt(ctx context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[contract]++
	_, f.sawDeadline = ctx.Deadline()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.code[contract], nil
}

func (f *fakeCodeReader) callCount(addr common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[addr]
}

type memRegistry struct {
	loaded []common.Address
	saved  []common.Address
}

func (r *memRegistry) LoadWrappedAssets() ([]common.Address, error) {
	return r.loaded, nil
}

func (r *memRegistry) SaveWrappedAsset(addr common.Address) error {
	r.saved = append(r.saved, addr)
	return nil
}
