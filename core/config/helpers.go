package config

import (
	"github.com/ethereum/go-ethereum/common"
)

// convertToAddressSlice returns the valid addresses and the entries it had to skip
func convertToAddressSlice(addresses []string) ([]common.Address, []string) {
	result := make([]common.Address, 0, len(addresses))
	var skipped []string
	for _, addr := range addresses {
		if common.IsHexAddress(addr) {
			result = append(result, common.HexToAddress(addr))
		} else {
			skipped = append(skipped, addr)
		}
	}
	return result, skipped
}
