package byte4

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector returns the first four bytes of keccak256 of a canonical signature such as
// "transfer(address,uint256)". Event signatures give the leading bytes of their topic.
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

func Selectors(signatures ...string) [][4]byte {
	out := make([][4]byte, len(signatures))
	for i, sig := range signatures {
		out[i] = Selector(sig)
	}
	return out
}

// GetMethodFromCalldata returns the ABI method a 4-byte selector or full calldata calls
func GetMethodFromCalldata(parsedABI abi.ABI, calldata []byte) (*abi.Method, error) {
	if len(calldata) < 4 {
		return nil, fmt.Errorf("invalid selector length: %d", len(calldata))
	}

	method, err := parsedABI.MethodById(calldata[:4])
	if err != nil {
		return nil, fmt.Errorf("no matching method found for selector: 0x%x", calldata[:4])
	}
	return method, nil
}
