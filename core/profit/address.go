package profit

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// NullAddress stands for "no address": the origin of a mint-style transfer and the
	// destination of a burn-style one. It never gets a ledger entry.
	NullAddress = common.Address{}

	// NativeAsset is the asset key used for transfers of the chain's native currency.
	NativeAsset = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
)

// IsNullAddress reports whether addr is the "no address" sentinel
func IsNullAddress(addr common.Address) bool {
	return addr == NullAddress
}

// ToLowerHex returns the canonical lowercase textual form of an address.
func ToLowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
