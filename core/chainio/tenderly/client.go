package tenderly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"

	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

const (
	simulateMethod = "tenderly_simulateTransaction"
	simulationGas  = "0x1000000"

	// revert reason the flash loan strategy emits when the placeholder profit metadata does not
	// match what the trace actually pays out
	NoProfitRevertReason = "FlashLoan: no profit detected"
)

var ErrEmptyResult = errors.New("tenderly returned an empty simulation result")

// Client talks to a Tenderly gateway RPC endpoint
type Client struct {
	httpClient *resty.Client
	logger     sdklogging.Logger
	rpcURL     string
}

// JSON-RPC request structure for Tenderly Gateway
type JSONRPCRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      int           `json:"id"`
}

// JSON-RPC response structure
type JSONRPCResponse struct {
	Jsonrpc string            `json:"jsonrpc"`
	Id      int               `json:"id"`
	Result  *SimulationResult `json:"result,omitempty"`
	Error   *RPCError         `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("tenderly rpc error %d: %s", e.Code, e.Message)
}

// TransactionParams is the call object of tenderly_simulateTransaction
type TransactionParams struct {
	From string `json:"from"`
	To   string `json:"to"`
	Data string `json:"data"`
	Gas  string `json:"gas"`
}

// SimulationResult keeps the parts of the simulation the relayer reads
type SimulationResult struct {
	Status  bool                `json:"status"`
	GasUsed string              `json:"gasUsed,omitempty"`
	Trace   []*profit.TraceNode `json:"trace"`
}

func NewClient(rpcURL string, log sdklogging.Logger) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger.EnsureLogger(log),
		rpcURL:     rpcURL,
	}
}

// SimulateTransaction runs the call against the latest block and returns the status and the
// call trace. A reverted simulation is not an error; callers inspect Status.
func (c *Client) SimulateTransaction(ctx context.Context, from, to common.Address, data []byte) (*SimulationResult, error) {
	req := JSONRPCRequest{
		Jsonrpc: "2.0",
		Method:  simulateMethod,
		Params: []interface{}{
			TransactionParams{
				From: profit.ToLowerHex(from),
				To:   profit.ToLowerHex(to),
				Data: hexutil.Encode(data),
				Gas:  simulationGas,
			},
			"latest",
		},
		Id: 1,
	}

	var rpcResp JSONRPCResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&rpcResp).
		Post(c.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("tenderly simulation request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tenderly simulation returned http %d: %s", resp.StatusCode(), resp.String())
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	if rpcResp.Result == nil {
		return nil, ErrEmptyResult
	}

	c.logger.Debug("tenderly simulation done",
		"from", from.Hex(),
		"to", to.Hex(),
		"status", rpcResp.Result.Status,
		"frames", len(rpcResp.Result.Trace))

	return rpcResp.Result, nil
}

// ShouldProceedWithFailedSimulation reports whether a reverted simulation still carries a usable
// trace: the strategy's flash loan frame, always the third, reverted only because the placeholder
// profits were not met.
func ShouldProceedWithFailedSimulation(trace []*profit.TraceNode) bool {
	if len(trace) < 3 || trace[2] == nil {
		return false
	}

	flashLoanCall := trace[2]
	return flashLoanCall.Type == profit.CallTypeDelegateCall && flashLoanCall.ErrorReason == NoProfitRevertReason
}

// ParseSimulation reads a saved simulation, either the full JSON-RPC envelope or a bare trace
// array.
func ParseSimulation(data []byte) (*SimulationResult, error) {
	var envelope JSONRPCResponse
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error != nil {
			return nil, envelope.Error
		}
		if envelope.Result != nil {
			return envelope.Result, nil
		}
	}

	var result SimulationResult
	if err := json.Unmarshal(data, &result); err == nil && result.Trace != nil {
		return &result, nil
	}

	var trace []*profit.TraceNode
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("cannot parse simulation: %w", err)
	}
	return &SimulationResult{Status: true, Trace: trace}, nil
}
