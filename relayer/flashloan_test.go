package relayer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/signer"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/tenderly"
	"github.com/AvaProtocol/mizan-relayer/core/profit"
)

const requestsMetric = "relayer_num_flashloan_requests_total"

func TestFlashLoanSubmitted(t *testing.T) {
	f := newTestFlow(t)
	relayerAddr := crypto.PubkeyToAddress(f.relayerKey.PublicKey)

	result, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow 100"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []profit.ProfitRecord{{Taker: takerAddr, Token: profitToken}}, result.Profits)

	// simulated from the relayer against the configured borrower with placeholder profits
	assert.Equal(t, relayerAddr, f.simulator.from)
	assert.Equal(t, borrowerCfg, f.simulator.to)
	assert.NotEmpty(t, f.simulator.data)
	require.Len(t, f.mizan.profitHashes, 2)
	assert.Equal(t, []mizan.ProfitMetadata{{Taker: borrowerCfg, Token: profitToken}}, f.mizan.profitHashes[0])
	assert.Equal(t, []mizan.ProfitMetadata{{Taker: takerAddr, Token: profitToken}}, f.mizan.profitHashes[1])
	assert.Equal(t, []common.Address{loanToken, loanToken}, f.mizan.loanTokens)

	require.Len(t, f.submitter.sent, 1)
	sent := f.submitter.sent[0]
	assert.Equal(t, strategyAddr, sent.strategy)
	assert.Equal(t, loanToken, sent.loanToken)
	assert.Equal(t, 0, sent.amount.Cmp(big.NewInt(100)))
	assert.Equal(t, []mizan.ProfitMetadata{{Taker: takerAddr, Token: profitToken}}, sent.meta.Profits)
	assert.Equal(t, fixedNow.Unix()+3600, sent.meta.Expiry.Int64())

	// the signature is the relayer's over the request hash
	profitHash := crypto.Keccak256Hash(takerAddr.Bytes(), profitToken.Bytes())
	messageHash, err := f.mizan.HashFlashLoanRequest(context.Background(), loanToken, sent.amount, sent.meta.Expiry, sent.meta.Nonce, profitHash)
	require.NoError(t, err)
	signerAddr, err := signer.RecoverMessageSigner(messageHash[:], sent.signature)
	require.NoError(t, err)
	assert.Equal(t, relayerAddr, signerAddr)

	assert.Equal(t, 1.0, counterValue(t, f.registry, requestsMetric, statusSubmitted))
	assert.Equal(t, 1.0, counterValue(t, f.registry, "relayer_num_simulations_total", statusOK))
}

func TestFlashLoanProceedsOnNoProfitRevert(t *testing.T) {
	f := newTestFlow(t)
	trace := f.simulator.result.Trace
	trace = append(trace,
		&profit.TraceNode{Type: profit.CallTypeStaticCall, From: strategyAddr, To: loanToken},
		&profit.TraceNode{Type: profit.CallTypeDelegateCall, From: strategyAddr, To: strategyAddr, ErrorReason: tenderly.NoProfitRevertReason},
	)
	f.simulator.result = &tenderly.SimulationResult{Status: false, Trace: trace}

	result, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	require.NoError(t, err)
	assert.Equal(t, []profit.ProfitRecord{{Taker: takerAddr, Token: profitToken}}, result.Profits)
}

func TestFlashLoanSimulationFailed(t *testing.T) {
	f := newTestFlow(t)
	f.simulator.result.Status = false

	_, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	assert.ErrorIs(t, err, ErrSimulationFailed)
	assert.Empty(t, f.submitter.sent)
	assert.Equal(t, 1.0, counterValue(t, f.registry, requestsMetric, statusSimulationFailed))
}

func TestFlashLoanEmptyTrace(t *testing.T) {
	f := newTestFlow(t)
	f.simulator.result.Trace = nil

	_, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	assert.ErrorIs(t, err, ErrSimulationFailed)
}

func TestFlashLoanNoProfit(t *testing.T) {
	f := newTestFlow(t)
	relayerAddr := crypto.PubkeyToAddress(f.relayerKey.PublicKey)
	f.simulator.result.Trace = []*profit.TraceNode{
		{
			Type: profit.CallTypeCall, From: relayerAddr, To: strategyAddr,
			Calls: []*profit.TraceNode{
				erc20Call(loanToken, poolAddr, strategyAddr, 100),
				erc20Call(loanToken, strategyAddr, poolAddr, 100),
			},
		},
	}

	_, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	assert.ErrorIs(t, err, ErrNoProfit)
	assert.Empty(t, f.submitter.sent)
}

func TestFlashLoanRelayerMismatch(t *testing.T) {
	f := newTestFlow(t)
	f.mizan.relayer = common.HexToAddress("0x0000000000000000000000000000000000000bad")

	_, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	assert.ErrorIs(t, err, ErrRelayerMismatch)
	assert.False(t, isClientError(err))
	assert.Equal(t, 1.0, counterValue(t, f.registry, requestsMetric, statusError))
}

func TestFlashLoanRejectsReplayedSignature(t *testing.T) {
	f := newTestFlow(t)
	req := f.signedRequest(t, "borrow once")

	_, err := f.service.Process(context.Background(), req)
	require.NoError(t, err)

	_, err = f.service.Process(context.Background(), req)
	assert.ErrorIs(t, err, ErrSignatureReused)
	assert.Len(t, f.submitter.sent, 1)
}

func TestFlashLoanReleasesSignatureOnServerError(t *testing.T) {
	f := newTestFlow(t)
	f.submitter.err = errBoom
	req := f.signedRequest(t, "borrow")

	_, err := f.service.Process(context.Background(), req)
	assert.ErrorIs(t, err, errBoom)

	f.submitter.err = nil
	_, err = f.service.Process(context.Background(), req)
	assert.NoError(t, err)
}

func TestFlashLoanRecoversBorrower(t *testing.T) {
	f := newTestFlow(t)
	req := f.signedRequest(t, "borrow")

	parsed, err := parseRequest(req)
	require.NoError(t, err)
	assert.Equal(t, f.userAddr(), parsed.borrower)
	assert.Equal(t, strategyAddr, parsed.strategy)
	assert.Equal(t, 0, parsed.amount.Cmp(big.NewInt(100)))
}

func TestFlashLoanInvalidRequests(t *testing.T) {
	f := newTestFlow(t)

	tests := []struct {
		name   string
		mutate func(r *FlashLoanRequest)
	}{
		{"bad token", func(r *FlashLoanRequest) { r.Token = "0x1234" }},
		{"bad strategy", func(r *FlashLoanRequest) { r.Strategy = "0xnothex" }},
		{"bad amount", func(r *FlashLoanRequest) { r.Amount = "ten" }},
		{"zero amount", func(r *FlashLoanRequest) { r.Amount = "0" }},
		{"message not hex", func(r *FlashLoanRequest) { r.Message = "borrow" }},
		{"short signature", func(r *FlashLoanRequest) { r.UserSignature = "0x1234" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := f.signedRequest(t, "borrow "+tc.name)
			tc.mutate(req)
			_, err := f.service.Process(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Empty(t, f.submitter.sent)
}

func TestFlashLoanHexAmount(t *testing.T) {
	f := newTestFlow(t)
	req := f.signedRequest(t, "borrow")
	req.Amount = "0x64"

	_, err := f.service.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, f.submitter.sent[0].amount.Cmp(big.NewInt(100)))
}

func TestFlashLoanSuggestsFees(t *testing.T) {
	f := newTestFlow(t)
	f.service.WithFeeReader(fixedFees{})

	_, err := f.service.Process(context.Background(), f.signedRequest(t, "borrow"))
	require.NoError(t, err)

	opts := f.submitter.sent[0].opts
	assert.Equal(t, big.NewInt(113), opts.GasTipCap)
	assert.Equal(t, big.NewInt(2113), opts.GasFeeCap)
	assert.Equal(t, crypto.PubkeyToAddress(f.relayerKey.PublicKey), opts.From)

	// the shared transactor is not touched
	assert.Nil(t, f.service.transactor.GasTipCap)
}

func TestNewFlashLoanServiceWiring(t *testing.T) {
	f := newTestFlow(t)

	s := NewFlashLoanService(f.service.settings, f.mizan, f.service.authorizer, f.simulator, f.submitter,
		f.service.engine, f.service.transactor, f.service.replay, nil, nil)

	assert.Same(t, f.mizan, s.mizan)
	require.NotNil(t, s.metrics)

	// a service without a metrics sink still runs the whole flow
	result, err := s.Process(context.Background(), f.signedRequest(t, "borrow 100"))
	require.NoError(t, err)
	assert.True(t, result.Success)
}
