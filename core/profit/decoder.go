package profit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AvaProtocol/mizan-relayer/pkg/byte4"
)

type TransferKind int

const (
	Unrecognized TransferKind = iota
	NativeTransfer
	Erc20Transfer
	Erc20TransferFrom
	WrapDeposit
	WrapWithdraw
)

func (k TransferKind) String() string {
	switch k {
	case NativeTransfer:
		return "native_transfer"
	case Erc20Transfer:
		return "erc20_transfer"
	case Erc20TransferFrom:
		return "erc20_transfer_from"
	case WrapDeposit:
		return "wrap_deposit"
	case WrapWithdraw:
		return "wrap_withdraw"
	default:
		return "unrecognized"
	}
}

// Transfer is the semantic value movement carried by one call frame.
type Transfer struct {
	Kind   TransferKind
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (t Transfer) Recognized() bool {
	return t.Kind != Unrecognized
}

const wordSize = 32

var (
	ErrShortCalldata = errors.New("calldata shorter than the selector arguments")

	selectorTransfer     = byte4.Selector("transfer(address,uint256)")
	selectorTransferFrom = byte4.Selector("transferFrom(address,address,uint256)")
	selectorDeposit      = byte4.Selector("deposit()")
	selectorWithdraw     = byte4.Selector("withdraw(uint256)")
)

// TransferDecoder turns call frames into transfers. The wrapped-asset check is consulted only
// for deposit() and withdraw(uint256) payloads.
type TransferDecoder struct {
	isWrapped WrappedCheck
}

func NewTransferDecoder(isWrapped WrappedCheck) *TransferDecoder {
	if isWrapped == nil {
		isWrapped = func(context.Context, common.Address) bool { return false }
	}
	return &TransferDecoder{isWrapped: isWrapped}
}

// Decode returns an Unrecognized transfer for frames that move nothing. An error means the
// frame looked like a transfer but its payload could not be read.
func (d *TransferDecoder) Decode(ctx context.Context, node *TraceNode) (Transfer, error) {
	if node == nil || !node.IsCall() {
		return Transfer{}, nil
	}
	if node.malformed != nil {
		return Transfer{}, node.malformed
	}

	// native value takes precedence over any payload, deposit() included
	if node.HasValue() {
		return Transfer{
			Kind:   NativeTransfer,
			Asset:  NativeAsset,
			From:   node.From,
			To:     node.To,
			Amount: new(big.Int).Set(node.Value),
		}, nil
	}

	sel, hasSelector := node.Selector()
	if !hasSelector {
		return Transfer{}, nil
	}

	switch sel {
	case selectorTransfer:
		to, err := addressArg(node.Input, 0)
		if err != nil {
			return Transfer{}, fmt.Errorf("transfer: %w", err)
		}
		amount, err := uintArg(node.Input, 1)
		if err != nil {
			return Transfer{}, fmt.Errorf("transfer: %w", err)
		}
		return Transfer{Kind: Erc20Transfer, Asset: node.To, From: node.From, To: to, Amount: amount}, nil

	case selectorTransferFrom:
		from, err := addressArg(node.Input, 0)
		if err != nil {
			return Transfer{}, fmt.Errorf("transferFrom: %w", err)
		}
		to, err := addressArg(node.Input, 1)
		if err != nil {
			return Transfer{}, fmt.Errorf("transferFrom: %w", err)
		}
		amount, err := uintArg(node.Input, 2)
		if err != nil {
			return Transfer{}, fmt.Errorf("transferFrom: %w", err)
		}
		return Transfer{Kind: Erc20TransferFrom, Asset: node.To, From: from, To: to, Amount: amount}, nil

	case selectorDeposit:
		if !d.isWrapped(ctx, node.To) {
			return Transfer{}, nil
		}
		amount := new(big.Int)
		if node.Value != nil {
			amount.Set(node.Value)
		}
		return Transfer{Kind: WrapDeposit, Asset: node.To, From: NullAddress, To: node.From, Amount: amount}, nil

	case selectorWithdraw:
		if !d.isWrapped(ctx, node.To) {
			return Transfer{}, nil
		}
		amount, err := uintArg(node.Input, 0)
		if err != nil {
			return Transfer{}, fmt.Errorf("withdraw: %w", err)
		}
		return Transfer{Kind: WrapWithdraw, Asset: node.To, From: node.From, To: NullAddress, Amount: amount}, nil
	}

	return Transfer{}, nil
}

func argWord(input []byte, index int) ([]byte, error) {
	start := 4 + index*wordSize
	end := start + wordSize
	if len(input) < end {
		return nil, fmt.Errorf("%w: need %d bytes for argument %d, have %d", ErrShortCalldata, end, index, len(input))
	}
	return input[start:end], nil
}

func addressArg(input []byte, index int) (common.Address, error) {
	word, err := argWord(input, index)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[wordSize-common.AddressLength:]), nil
}

func uintArg(input []byte, index int) (*big.Int, error) {
	word, err := argWord(input, index)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word), nil
}
