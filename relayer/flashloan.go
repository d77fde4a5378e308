package relayer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/signer"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/tenderly"
	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/metrics"
	"github.com/AvaProtocol/mizan-relayer/pkg/eip1559"
	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

const (
	statusOK               = "ok"
	statusSubmitted        = "submitted"
	statusInvalid          = "invalid"
	statusReplayed         = "replayed"
	statusSimulationFailed = "simulation_failed"
	statusNoProfit         = "no_profit"
	statusError            = "error"
)

// Simulator runs a transaction against the latest block and returns its call trace.
type Simulator interface {
	SimulateTransaction(ctx context.Context, from, to common.Address, data []byte) (*tenderly.SimulationResult, error)
}

// Submitter broadcasts requestFlashLoan to a borrower strategy.
type Submitter interface {
	RequestFlashLoan(opts *bind.TransactOpts, strategy, loanToken common.Address, loanAmount *big.Int, meta mizan.FlashLoanMeta, signature []byte) (*types.Transaction, error)
}

// Metrics is what the flash loan flow reports on top of the analysis counters.
type Metrics interface {
	profit.Metrics
	IncFlashLoanRequest(status string)
	IncSimulation(status string)
}

// FlashLoanRequest is the body of POST /flashloan. message is the hex encoded payload the
// borrower signed; amount is decimal or 0x hex.
type FlashLoanRequest struct {
	Token         string `json:"token" validate:"required,startswith=0x"`
	Amount        string `json:"amount" validate:"required"`
	Strategy      string `json:"strategy" validate:"required,startswith=0x"`
	UserSignature string `json:"userSignature" validate:"required,startswith=0x"`
	Message       string `json:"message" validate:"required"`
}

type FlashLoanResult struct {
	Success bool                  `json:"success"`
	Hash    string                `json:"hash"`
	Profits []profit.ProfitRecord `json:"profits"`
}

// FlashLoanSettings are the deployment addresses the flow simulates against.
type FlashLoanSettings struct {
	LoanToken   common.Address
	ProfitToken common.Address
	Borrower    common.Address
}

// FlashLoanService turns a signed borrower request into a submitted flash loan: simulate with
// placeholder profits, attribute the real profit takers from the trace, sign for them and submit.
type FlashLoanService struct {
	settings   FlashLoanSettings
	mizan      MizanReader
	authorizer *Authorizer
	simulator  Simulator
	submitter  Submitter
	engine     *profit.Engine
	transactor *bind.TransactOpts
	replay     *replayGuard
	fees       eip1559.FeeReader

	logger  sdklogging.Logger
	metrics Metrics
}

func NewFlashLoanService(
	settings FlashLoanSettings,
	mz MizanReader,
	authorizer *Authorizer,
	simulator Simulator,
	submitter Submitter,
	engine *profit.Engine,
	transactor *bind.TransactOpts,
	replay *replayGuard,
	log sdklogging.Logger,
	m Metrics,
) *FlashLoanService {
	if m == nil {
		m = metrics.NewRelayerMetrics(prometheus.NewRegistry())
	}

	return &FlashLoanService{
		settings:   settings,
		mizan:      mz,
		authorizer: authorizer,
		simulator:  simulator,
		submitter:  submitter,
		engine:     engine,
		transactor: transactor,
		replay:     replay,
		logger:     logger.EnsureLogger(log),
		metrics:    m,
	}
}

// WithFeeReader prices submissions with EIP-1559 fee caps instead of leaving it to the node.
func (s *FlashLoanService) WithFeeReader(fees eip1559.FeeReader) *FlashLoanService {
	s.fees = fees
	return s
}

type parsedRequest struct {
	token     common.Address
	strategy  common.Address
	amount    *big.Int
	borrower  common.Address
	signature []byte
}

func parseRequest(req *FlashLoanRequest) (*parsedRequest, error) {
	if !common.IsHexAddress(req.Token) {
		return nil, fmt.Errorf("%w: token is not an address", ErrInvalidRequest)
	}
	if !common.IsHexAddress(req.Strategy) {
		return nil, fmt.Errorf("%w: strategy is not an address", ErrInvalidRequest)
	}

	amount, ok := new(big.Int).SetString(req.Amount, 0)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrInvalidRequest)
	}

	message, err := hexutil.Decode(req.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: message must be 0x hex: %v", ErrInvalidRequest, err)
	}
	signature, err := hexutil.Decode(req.UserSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: userSignature must be 0x hex: %v", ErrInvalidRequest, err)
	}

	borrower, err := signer.RecoverMessageSigner(message, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return &parsedRequest{
		token:     common.HexToAddress(req.Token),
		strategy:  common.HexToAddress(req.Strategy),
		amount:    amount,
		borrower:  borrower,
		signature: signature,
	}, nil
}

// Process runs the whole request. Errors wrapping ErrInvalidRequest, ErrSignatureReused,
// ErrSimulationFailed or ErrNoProfit are the caller's fault; anything else is ours.
func (s *FlashLoanService) Process(ctx context.Context, req *FlashLoanRequest) (*FlashLoanResult, error) {
	result, err := s.process(ctx, req)
	s.metrics.IncFlashLoanRequest(requestStatus(err))
	return result, err
}

func (s *FlashLoanService) process(ctx context.Context, req *FlashLoanRequest) (*FlashLoanResult, error) {
	parsed, err := parseRequest(req)
	if err != nil {
		return nil, err
	}

	if s.replay != nil {
		if err := s.replay.claim(parsed.signature); err != nil {
			return nil, err
		}
	}

	result, err := s.execute(ctx, parsed)
	if err != nil && s.replay != nil && !isClientError(err) {
		s.replay.release(parsed.signature)
	}
	return result, err
}

func (s *FlashLoanService) execute(ctx context.Context, req *parsedRequest) (*FlashLoanResult, error) {
	log := s.logger.With("borrower", profit.ToLowerHex(req.borrower), "strategy", profit.ToLowerHex(req.strategy))

	sim, err := s.simulate(ctx, req.amount)
	if err != nil {
		s.metrics.IncSimulation(statusError)
		return nil, err
	}

	if !sim.Status && !tenderly.ShouldProceedWithFailedSimulation(sim.Trace) {
		s.metrics.IncSimulation(statusSimulationFailed)
		log.Info("simulation reverted", "frames", len(sim.Trace))
		return nil, ErrSimulationFailed
	}
	if len(sim.Trace) == 0 || sim.Trace[0] == nil {
		s.metrics.IncSimulation(statusSimulationFailed)
		return nil, fmt.Errorf("%w: empty trace", ErrSimulationFailed)
	}
	s.metrics.IncSimulation(statusOK)

	runCtx := profit.RunContext{Contract: sim.Trace[0].To, Sender: req.borrower}
	profits, analysis := s.engine.Analyze(ctx, runCtx, sim.Trace)
	log.Info("trace analyzed", "run", analysis.ID, "profits", len(profits), "frames", analysis.Stats().Frames)
	if len(profits) == 0 {
		return nil, ErrNoProfit
	}

	auth, err := s.authorizer.Authorize(ctx, req.amount, mizan.FromProfitRecords(profits))
	if err != nil {
		return nil, err
	}

	opts := *s.transactor
	opts.Context = ctx
	if s.fees != nil {
		opts.GasFeeCap, opts.GasTipCap, err = eip1559.SuggestFee(ctx, s.fees)
		if err != nil {
			return nil, fmt.Errorf("cannot suggest fees: %w", err)
		}
	}
	tx, err := s.submitter.RequestFlashLoan(&opts, req.strategy, req.token, req.amount, auth.Meta(), auth.Signature)
	if err != nil {
		return nil, err
	}

	log.Info("flash loan submitted", "run", analysis.ID, "tx", tx.Hash().Hex())
	return &FlashLoanResult{
		Success: true,
		Hash:    tx.Hash().Hex(),
		Profits: profits,
	}, nil
}

// simulate runs requestFlashLoan for the configured borrower with placeholder profits. The
// strategy reverts with the no-profit reason when those do not match, which still leaves a
// complete trace to analyze.
func (s *FlashLoanService) simulate(ctx context.Context, amount *big.Int) (*tenderly.SimulationResult, error) {
	relayerAddr := s.authorizer.Address()
	onchainRelayer, err := s.mizan.Relayer(ctx)
	if err != nil {
		return nil, err
	}
	if onchainRelayer != relayerAddr {
		return nil, fmt.Errorf("%w: contract expects %s, we are %s", ErrRelayerMismatch, onchainRelayer.Hex(), relayerAddr.Hex())
	}

	placeholder := []mizan.ProfitMetadata{{Taker: s.settings.Borrower, Token: s.settings.ProfitToken}}
	auth, err := s.authorizer.Authorize(ctx, amount, placeholder)
	if err != nil {
		return nil, err
	}

	calldata, err := mizan.PackRequestFlashLoan(s.settings.LoanToken, amount, auth.Meta(), auth.Signature)
	if err != nil {
		return nil, fmt.Errorf("cannot encode requestFlashLoan: %w", err)
	}

	return s.simulator.SimulateTransaction(ctx, relayerAddr, s.settings.Borrower, calldata)
}

func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSignatureReused) ||
		errors.Is(err, ErrSimulationFailed) ||
		errors.Is(err, ErrNoProfit)
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return statusSubmitted
	case errors.Is(err, ErrInvalidRequest):
		return statusInvalid
	case errors.Is(err, ErrSignatureReused):
		return statusReplayed
	case errors.Is(err, ErrSimulationFailed):
		return statusSimulationFailed
	case errors.Is(err, ErrNoProfit):
		return statusNoProfit
	default:
		return statusError
	}
}
