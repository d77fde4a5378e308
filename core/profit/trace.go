package profit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
)

// TraceNode is one call frame of a simulated transaction. Children are owned by their parent
// and are visited in the order they appear.
type TraceNode struct {
	Type        CallType
	From        common.Address
	To          common.Address
	Value       *big.Int
	Input       []byte
	Gas         string
	GasUsed     string
	Error       string
	ErrorReason string
	Calls       []*TraceNode

	// set when the frame carried a value or input that is not valid hex; the frame itself is
	// kept so its children can still be walked
	malformed error
}

type traceNodeJSON struct {
	Type        string       `json:"type"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Value       string       `json:"value,omitempty"`
	Input       string       `json:"input"`
	Gas         string       `json:"gas,omitempty"`
	GasUsed     string       `json:"gasUsed,omitempty"`
	Error       string       `json:"error,omitempty"`
	ErrorReason string       `json:"errorReason,omitempty"`
	Calls       []*TraceNode `json:"calls,omitempty"`
}

// UnmarshalJSON accepts the call frame shape returned by tenderly_simulateTransaction. Bad hex
// in value or input does not fail the whole document, it is reported when the frame is decoded.
func (n *TraceNode) UnmarshalJSON(data []byte) error {
	var raw traceNodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	n.Type = CallType(strings.ToUpper(raw.Type))
	n.From = common.HexToAddress(raw.From)
	n.To = common.HexToAddress(raw.To)
	n.Gas = raw.Gas
	n.GasUsed = raw.GasUsed
	n.Error = raw.Error
	n.ErrorReason = raw.ErrorReason
	n.Calls = raw.Calls

	value, err := parseQuantity(raw.Value)
	if err != nil {
		n.malformed = fmt.Errorf("invalid value %q: %w", raw.Value, err)
	}
	n.Value = value

	input, err := parseHexBytes(raw.Input)
	if err != nil && n.malformed == nil {
		n.malformed = fmt.Errorf("invalid input: %w", err)
	}
	n.Input = input

	return nil
}

func (n *TraceNode) MarshalJSON() ([]byte, error) {
	raw := traceNodeJSON{
		Type:        string(n.Type),
		From:        ToLowerHex(n.From),
		To:          ToLowerHex(n.To),
		Input:       "0x" + hex.EncodeToString(n.Input),
		Gas:         n.Gas,
		GasUsed:     n.GasUsed,
		Error:       n.Error,
		ErrorReason: n.ErrorReason,
		Calls:       n.Calls,
	}
	if n.Value != nil {
		raw.Value = "0x" + n.Value.Text(16)
	}
	return json.Marshal(raw)
}

// IsCall reports whether the frame is a plain CALL, the only kind that moves value.
func (n *TraceNode) IsCall() bool {
	return n.Type == CallTypeCall
}

// HasValue reports whether the frame carries a non-zero native amount.
func (n *TraceNode) HasValue() bool {
	return n.Value != nil && n.Value.Sign() > 0
}

// Selector returns the 4-byte function selector of the payload, if there is one.
func (n *TraceNode) Selector() ([4]byte, bool) {
	var sel [4]byte
	if len(n.Input) < 4 {
		return sel, false
	}
	copy(sel[:], n.Input[:4])
	return sel, true
}

// Count returns the number of frames in the subtree rooted at n.
func (n *TraceNode) Count() int {
	total := 1
	for _, c := range n.Calls {
		if c != nil {
			total += c.Count()
		}
	}
	return total
}

func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex quantity")
	}
	return v, nil
}

func parseHexBytes(s string) ([]byte, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return nil, nil
	}
	return hex.DecodeString(digits)
}
