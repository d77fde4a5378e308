package profit

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	decoder := NewTransferDecoder(wrappedOnly(wethAddr))

	tests := []struct {
		name     string
		node     *TraceNode
		expected Transfer
	}{
		{
			name:     "native value",
			node:     call(senderAddr, contractAddr, 10, nil),
			expected: Transfer{Kind: NativeTransfer, Asset: NativeAsset, From: senderAddr, To: contractAddr, Amount: big.NewInt(10)},
		},
		{
			name:     "native value wins over an erc20 payload",
			node:     call(senderAddr, loanToken, 3, transferInput(takerAddr, 99)),
			expected: Transfer{Kind: NativeTransfer, Asset: NativeAsset, From: senderAddr, To: loanToken, Amount: big.NewInt(3)},
		},
		{
			name:     "transfer",
			node:     erc20(profitToken, contractAddr, takerAddr, 10),
			expected: Transfer{Kind: Erc20Transfer, Asset: profitToken, From: contractAddr, To: takerAddr, Amount: big.NewInt(10)},
		},
		{
			name:     "transferFrom",
			node:     call(dexAddr, loanToken, 0, transferFromInput(poolAddr, contractAddr, 42)),
			expected: Transfer{Kind: Erc20TransferFrom, Asset: loanToken, From: poolAddr, To: contractAddr, Amount: big.NewInt(42)},
		},
		{
			name:     "valued deposit into wrapped asset is a native transfer",
			node:     call(takerAddr, wethAddr, 5, depositInput()),
			expected: Transfer{Kind: NativeTransfer, Asset: NativeAsset, From: takerAddr, To: wethAddr, Amount: big.NewInt(5)},
		},
		{
			name:     "deposit without value",
			node:     call(takerAddr, wethAddr, 0, depositInput()),
			expected: Transfer{Kind: WrapDeposit, Asset: wethAddr, From: NullAddress, To: takerAddr, Amount: big.NewInt(0)},
		},
		{
			name:     "valued deposit into unknown contract is a native transfer",
			node:     call(takerAddr, loanToken, 5, depositInput()),
			expected: Transfer{Kind: NativeTransfer, Asset: NativeAsset, From: takerAddr, To: loanToken, Amount: big.NewInt(5)},
		},
		{
			name:     "deposit into unknown contract",
			node:     call(takerAddr, loanToken, 0, depositInput()),
			expected: Transfer{},
		},
		{
			name:     "withdraw from wrapped asset",
			node:     call(takerAddr, wethAddr, 0, withdrawInput(5)),
			expected: Transfer{Kind: WrapWithdraw, Asset: wethAddr, From: takerAddr, To: NullAddress, Amount: big.NewInt(5)},
		},
		{
			name:     "withdraw from unknown contract",
			node:     call(takerAddr, loanToken, 0, withdrawInput(5)),
			expected: Transfer{},
		},
		{
			name:     "unknown selector",
			node:     call(takerAddr, loanToken, 0, calldata([4]byte{0x09, 0x5e, 0xa7, 0xb3}, dexAddr.Bytes(), big.NewInt(1).Bytes())),
			expected: Transfer{},
		},
		{
			name:     "delegatecall ignored",
			node:     &TraceNode{Type: CallTypeDelegateCall, From: senderAddr, To: contractAddr, Value: big.NewInt(1), Input: transferInput(takerAddr, 1)},
			expected: Transfer{},
		},
		{
			name:     "staticcall ignored",
			node:     &TraceNode{Type: CallTypeStaticCall, From: senderAddr, To: loanToken, Input: transferInput(takerAddr, 1)},
			expected: Transfer{},
		},
		{
			name:     "no payload no value",
			node:     call(senderAddr, contractAddr, 0, nil),
			expected: Transfer{},
		},
		{
			name:     "payload shorter than a selector",
			node:     call(senderAddr, contractAddr, 0, []byte{0xa9, 0x05}),
			expected: Transfer{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decoder.Decode(context.Background(), tc.node)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestDecodeShortCalldata(t *testing.T) {
	decoder := NewTransferDecoder(wrappedOnly(wethAddr))

	short := [][]byte{
		transferInput(takerAddr, 10)[:40],
		transferFromInput(poolAddr, takerAddr, 10)[:68],
		withdrawInput(5)[:20],
	}
	targets := []common.Address{profitToken, profitToken, wethAddr}

	for i, input := range short {
		_, err := decoder.Decode(context.Background(), call(senderAddr, targets[i], 0, input))
		assert.ErrorIs(t, err, ErrShortCalldata)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	input := append(transferInput(takerAddr, 7), 0x01, 0x02)
	got, err := NewTransferDecoder(nil).Decode(context.Background(), call(senderAddr, profitToken, 0, input))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), got.Amount)
}

func TestDecodeAddressUsesLow20Bytes(t *testing.T) {
	arg := make([]byte, 32)
	for i := 0; i < 12; i++ {
		arg[i] = 0xff
	}
	copy(arg[12:], takerAddr.Bytes())
	input := append(append([]byte{}, selectorTransfer[:]...), arg...)
	input = append(input, word(big.NewInt(1).Bytes())...)

	got, err := NewTransferDecoder(nil).Decode(context.Background(), call(senderAddr, profitToken, 0, input))
	require.NoError(t, err)
	assert.Equal(t, takerAddr, got.To)
}

func TestDecodeMalformedHexFromJSON(t *testing.T) {
	var node TraceNode
	err := json.Unmarshal([]byte(`{"type":"CALL","from":"0xbbbb","to":"0xaaaa","value":"0xzz","input":"0x"}`), &node)
	require.NoError(t, err)

	_, err = NewTransferDecoder(nil).Decode(context.Background(), &node)
	assert.Error(t, err)
}

func TestTraceNodeJSON(t *testing.T) {
	raw := `{
		"type": "call",
		"from": "0x000000000000000000000000000000000000BBBB",
		"to": "0x000000000000000000000000000000000000aaaa",
		"value": "0xa",
		"input": "0x",
		"gas": "0x1000000",
		"gasUsed": "0x5208",
		"calls": [
			{"type": "STATICCALL", "from": "0xaaaa", "to": "0x1111111111111111111111111111111111111111", "input": "0x70a08231"}
		]
	}`

	var node TraceNode
	require.NoError(t, json.Unmarshal([]byte(raw), &node))

	assert.Equal(t, CallTypeCall, node.Type)
	assert.Equal(t, senderAddr, node.From)
	assert.Equal(t, contractAddr, node.To)
	assert.Equal(t, big.NewInt(10), node.Value)
	assert.Empty(t, node.Input)
	require.Len(t, node.Calls, 1)
	assert.Equal(t, CallTypeStaticCall, node.Calls[0].Type)
	assert.Equal(t, 2, node.Count())

	sel, ok := node.Calls[0].Selector()
	assert.True(t, ok)
	assert.Equal(t, [4]byte{0x70, 0xa0, 0x82, 0x31}, sel)
}

func TestTransferKindString(t *testing.T) {
	assert.Equal(t, "erc20_transfer_from", Erc20TransferFrom.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
