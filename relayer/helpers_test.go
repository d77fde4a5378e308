package relayer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/signer"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/tenderly"
	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/metrics"
)

var (
	strategyAddr = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	poolAddr     = common.HexToAddress("0x000000000000000000000000000000000000dddd")
	takerAddr    = common.HexToAddress("0x000000000000000000000000000000000000cccc")
	borrowerCfg  = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	loanToken    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	profitToken  = common.HexToAddress("0x2222222222222222222222222222222222222222")

	fixedNow = time.Unix(1700000000, 0)
)

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

type fakeMizan struct {
	relayer common.Address
	err     error

	profitHashes [][]mizan.ProfitMetadata
	loanTokens   []common.Address
}

func (f *fakeMizan) Relayer(context.Context) (common.Address, error) {
	return f.relayer, f.err
}

func (f *fakeMizan) HashProfitMetadata(_ context.Context, profits []mizan.ProfitMetadata) ([32]byte, error) {
	f.profitHashes = append(f.profitHashes, profits)
	var buf []byte
	for _, p := range profits {
		buf = append(buf, p.Taker.Bytes()...)
		buf = append(buf, p.Token.Bytes()...)
	}
	return crypto.Keccak256Hash(buf), nil
}

func (f *fakeMizan) HashFlashLoanRequest(_ context.Context, loanToken common.Address, loanAmount, expiry *big.Int, nonce, profitHash [32]byte) ([32]byte, error) {
	f.loanTokens = append(f.loanTokens, loanToken)
	return crypto.Keccak256Hash(
		loanToken.Bytes(),
		common.LeftPadBytes(loanAmount.Bytes(), 32),
		common.LeftPadBytes(expiry.Bytes(), 32),
		nonce[:],
		profitHash[:],
	), nil
}

type fakeSimulator struct {
	result *tenderly.SimulationResult
	err    error

	from, to common.Address
	data     []byte
}

func (f *fakeSimulator) SimulateTransaction(_ context.Context, from, to common.Address, data []byte) (*tenderly.SimulationResult, error) {
	f.from, f.to, f.data = from, to, data
	return f.result, f.err
}

type submission struct {
	opts      *bind.TransactOpts
	strategy  common.Address
	loanToken common.Address
	amount    *big.Int
	meta      mizan.FlashLoanMeta
	signature []byte
}

type fakeSubmitter struct {
	err  error
	sent []submission
}

func (f *fakeSubmitter) RequestFlashLoan(opts *bind.TransactOpts, strategy, loanToken common.Address, loanAmount *big.Int, meta mizan.FlashLoanMeta, signature []byte) (*types.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, submission{opts, strategy, loanToken, loanAmount, meta, signature})
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(f.sent)), To: &strategy}), nil
}

func transferInput(to common.Address, amount int64) []byte {
	input := hexutil.MustDecode("0xa9059cbb")
	input = append(input, common.LeftPadBytes(to.Bytes(), 32)...)
	return append(input, common.LeftPadBytes(big.NewInt(amount).Bytes(), 32)...)
}

func erc20Call(token, from, to common.Address, amount int64) *profit.TraceNode {
	return &profit.TraceNode{
		Type:  profit.CallTypeCall,
		From:  from,
		To:    token,
		Value: big.NewInt(0),
		Input: transferInput(to, amount),
	}
}

// pool lends to the strategy, the strategy pays the taker and repays the pool
func profitableTrace(relayer common.Address) []*profit.TraceNode {
	return []*profit.TraceNode{
		{
			Type:  profit.CallTypeCall,
			From:  relayer,
			To:    strategyAddr,
			Value: big.NewInt(0),
			Calls: []*profit.TraceNode{
				erc20Call(loanToken, poolAddr, strategyAddr, 100),
				erc20Call(profitToken, strategyAddr, takerAddr, 20),
				erc20Call(loanToken, strategyAddr, poolAddr, 100),
			},
		},
	}
}

type testFlow struct {
	service    *FlashLoanService
	relayerKey *ecdsa.PrivateKey
	userKey    *ecdsa.PrivateKey
	mizan      *fakeMizan
	simulator  *fakeSimulator
	submitter  *fakeSubmitter
	registry   *prometheus.Registry
}

func newTestFlow(t *testing.T) *testFlow {
	t.Helper()

	relayerKey := mustKey(t)
	relayerAddr := crypto.PubkeyToAddress(relayerKey.PublicKey)

	f := &testFlow{
		relayerKey: relayerKey,
		userKey:    mustKey(t),
		mizan:      &fakeMizan{relayer: relayerAddr},
		simulator:  &fakeSimulator{result: &tenderly.SimulationResult{Status: true, Trace: profitableTrace(relayerAddr)}},
		submitter:  &fakeSubmitter{},
		registry:   prometheus.NewRegistry(),
	}

	authorizer := NewAuthorizer(f.mizan, relayerKey, loanToken, time.Hour)
	authorizer.now = func() time.Time { return fixedNow }

	replay, err := newReplayGuard(context.Background(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = replay.Close() })

	transactor, err := signer.FromPrivateKey(relayerKey, big.NewInt(11155111))
	require.NoError(t, err)

	m := metrics.NewRelayerMetrics(f.registry)
	f.service = NewFlashLoanService(
		FlashLoanSettings{LoanToken: loanToken, ProfitToken: profitToken, Borrower: borrowerCfg},
		f.mizan,
		authorizer,
		f.simulator,
		f.submitter,
		profit.NewEngine(nil, nil, m),
		transactor,
		replay,
		nil,
		m,
	)
	return f
}

// signedRequest builds a request the user key signed
func (f *testFlow) signedRequest(t *testing.T, message string) *FlashLoanRequest {
	t.Helper()
	msg := []byte(message)
	sig, err := signer.SignMessage(f.userKey, msg)
	require.NoError(t, err)

	return &FlashLoanRequest{
		Token:         loanToken.Hex(),
		Amount:        "100",
		Strategy:      strategyAddr.Hex(),
		UserSignature: hexutil.Encode(sig),
		Message:       hexutil.Encode(msg),
	}
}

func (f *testFlow) userAddr() common.Address {
	return crypto.PubkeyToAddress(f.userKey.PublicKey)
}

var errBoom = errors.New("boom")

type fixedFees struct{}

func (fixedFees) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(100), nil
}

func (fixedFees) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: big.NewInt(1000)}, nil
}

// counterValue reads one labelled counter out of the registry
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
