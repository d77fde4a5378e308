package mizan

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"

	"github.com/AvaProtocol/mizan-relayer/core/profit"
	"github.com/AvaProtocol/mizan-relayer/pkg/byte4"
)

var (
	mizanABI    = mustParse(MizanABI)
	strategyABI = mustParse(BorrowerStrategyABI)
)

// ProfitMetadata is FlashLoan.ProfitMetadata
type ProfitMetadata struct {
	Taker common.Address
	Token common.Address
}

// FlashLoanMeta is FlashLoan.FlashLoanMeta
type FlashLoanMeta struct {
	Profits []ProfitMetadata
	Expiry  *big.Int
	Nonce   [32]byte
}

func FromProfitRecords(records []profit.ProfitRecord) []ProfitMetadata {
	return lo.Map(records, func(r profit.ProfitRecord, _ int) ProfitMetadata {
		return ProfitMetadata{Taker: r.Taker, Token: r.Token}
	})
}

// Client reads from the Mizan contract and submits flash loan requests to borrower strategies.
type Client struct {
	address common.Address
	backend bind.ContractBackend
	mizan   *bind.BoundContract
}

func NewClient(address common.Address, backend bind.ContractBackend) *Client {
	return &Client{
		address: address,
		backend: backend,
		mizan:   bind.NewBoundContract(address, mizanABI, backend, backend, backend),
	}
}

func (c *Client) Address() common.Address {
	return c.address
}

// Relayer returns the account Mizan accepts flash loan authorizations from.
func (c *Client) Relayer(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := c.mizan.Call(&bind.CallOpts{Context: ctx}, &out, "relayer"); err != nil {
		return common.Address{}, fmt.Errorf("mizan relayer(): %w", err)
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) HashProfitMetadata(ctx context.Context, profits []ProfitMetadata) ([32]byte, error) {
	var out []interface{}
	if err := c.mizan.Call(&bind.CallOpts{Context: ctx}, &out, "hashProfitMetadata", profits); err != nil {
		return [32]byte{}, fmt.Errorf("mizan hashProfitMetadata(): %w", err)
	}

	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

func (c *Client) HashFlashLoanRequest(ctx context.Context, loanToken common.Address, loanAmount, expiry *big.Int, nonce, profitHash [32]byte) ([32]byte, error) {
	var out []interface{}
	err := c.mizan.Call(&bind.CallOpts{Context: ctx}, &out, "hashFlashLoanRequest", loanToken, loanAmount, expiry, nonce, profitHash)
	if err != nil {
		return [32]byte{}, fmt.Errorf("mizan hashFlashLoanRequest(): %w", err)
	}

	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

// RequestFlashLoan sends requestFlashLoan to the borrower strategy. Gas estimation runs the call
// first, so a request that would revert is rejected before anything is broadcast.
func (c *Client) RequestFlashLoan(opts *bind.TransactOpts, strategy, loanToken common.Address, loanAmount *big.Int, meta FlashLoanMeta, signature []byte) (*types.Transaction, error) {
	contract := bind.NewBoundContract(strategy, strategyABI, c.backend, c.backend, c.backend)
	tx, err := contract.Transact(opts, "requestFlashLoan", loanToken, loanAmount, meta, signature)
	if err != nil {
		return nil, fmt.Errorf("requestFlashLoan on %s: %w", strategy.Hex(), err)
	}
	return tx, nil
}

// PackRequestFlashLoan encodes the requestFlashLoan calldata used for simulation.
func PackRequestFlashLoan(loanToken common.Address, loanAmount *big.Int, meta FlashLoanMeta, signature []byte) ([]byte, error) {
	return strategyABI.Pack("requestFlashLoan", loanToken, loanAmount, meta, signature)
}

// StrategyMethod names the borrower strategy method the calldata calls.
func StrategyMethod(calldata []byte) (string, error) {
	method, err := byte4.GetMethodFromCalldata(strategyABI, calldata)
	if err != nil {
		return "", err
	}
	return method.Name, nil
}

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
