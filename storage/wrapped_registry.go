package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const wrappedAssetPrefix = "wrapped:"

func WrappedAssetKey(addr common.Address) []byte {
	return []byte(wrappedAssetPrefix + strings.ToLower(addr.Hex()))
}

// WrappedAssetRegistry keeps the contracts the classifier found to be wrapped native assets,
// so a restarted relayer does not fetch their code again.
type WrappedAssetRegistry struct {
	db Storage
}

func NewWrappedAssetRegistry(db Storage) *WrappedAssetRegistry {
	return &WrappedAssetRegistry{db: db}
}

func (r *WrappedAssetRegistry) LoadWrappedAssets() ([]common.Address, error) {
	keys, err := r.db.ListKeys(wrappedAssetPrefix)
	if err != nil {
		return nil, fmt.Errorf("list wrapped assets: %w", err)
	}

	addrs := make([]common.Address, 0, len(keys))
	for _, k := range keys {
		hex := strings.TrimPrefix(k, wrappedAssetPrefix)
		if !common.IsHexAddress(hex) {
			continue
		}
		addrs = append(addrs, common.HexToAddress(hex))
	}
	return addrs, nil
}

// SaveWrappedAsset stores the discovery time as the value. An address already stored keeps its
// first discovery time.
func (r *WrappedAssetRegistry) SaveWrappedAsset(addr common.Address) error {
	ok, err := r.Has(addr)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return r.db.Set(WrappedAssetKey(addr), []byte(strconv.FormatInt(time.Now().UnixMilli(), 10)))
}

func (r *WrappedAssetRegistry) Has(addr common.Address) (bool, error) {
	return r.db.Exist(WrappedAssetKey(addr))
}

// RemoveWrappedAsset forgets an address; the classifier will scan its code again.
func (r *WrappedAssetRegistry) RemoveWrappedAsset(addr common.Address) error {
	return r.db.Delete(WrappedAssetKey(addr))
}

type WrappedAssetEntry struct {
	Address      common.Address
	DiscoveredAt time.Time
}

// Entries lists the stored addresses with the time they were first stored.
func (r *WrappedAssetRegistry) Entries() ([]WrappedAssetEntry, error) {
	items, err := r.db.GetByPrefix([]byte(wrappedAssetPrefix))
	if err != nil {
		return nil, fmt.Errorf("read wrapped assets: %w", err)
	}

	entries := make([]WrappedAssetEntry, 0, len(items))
	for _, item := range items {
		hex := strings.TrimPrefix(string(item.Key), wrappedAssetPrefix)
		if !common.IsHexAddress(hex) {
			continue
		}
		entry := WrappedAssetEntry{Address: common.HexToAddress(hex)}
		if ms, err := strconv.ParseInt(string(item.Value), 10, 64); err == nil {
			entry.DiscoveredAt = time.UnixMilli(ms).UTC()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
