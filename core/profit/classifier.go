package profit

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/AvaProtocol/mizan-relayer/pkg/byte4"
	"github.com/AvaProtocol/mizan-relayer/pkg/logger"
)

// ContractCodeReader is the chain-state read the classifier depends on. *ethclient.Client
// satisfies it.
type ContractCodeReader interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
}

// WrappedCheck decides whether a token contract follows the deposit/withdraw pattern of a
// wrapped native asset. The decoder only sees this function, so any detection strategy can
// be plugged in.
type WrappedCheck func(ctx context.Context, token common.Address) bool

// Registry persists addresses the classifier learned so a restart does not rescan them.
type Registry interface {
	LoadWrappedAssets() ([]common.Address, error)
	SaveWrappedAsset(addr common.Address) error
}

var (
	// WETH on mainnet and Sepolia
	DefaultWrappedAssets = []common.Address{
		common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"),
		common.HexToAddress("0xfff9976782d46cc05630d1f6ebab18b2324d6b14"),
	}

	wrappedSignatures = []string{
		"deposit()",
		"withdraw(uint256)",
		"deposit(uint256)",
		"Withdrawal(address,uint256)",
		"Deposit(address,uint256)",
	}

	wrappedFragments = byte4.Selectors(wrappedSignatures...)
)

// lookupTimeout bounds one shared eth_getCode, which runs detached from the caller that started it.
const lookupTimeout = 10 * time.Second

// WrappedAssetClassifier memoizes which contracts behave like a wrapped native asset. Only
// positive results are remembered; an address that did not match is scanned again on its next
// occurrence. The memo lives for the whole process and is shared between analyses.
type WrappedAssetClassifier struct {
	reader   ContractCodeReader
	registry Registry
	logger   sdklogging.Logger
	metrics  Metrics

	mu    sync.RWMutex
	known map[common.Address]struct{}

	lookups singleflight.Group
}

func NewWrappedAssetClassifier(reader ContractCodeReader, log sdklogging.Logger, seeds ...common.Address) *WrappedAssetClassifier {
	c := &WrappedAssetClassifier{
		reader:  reader,
		logger:  logger.EnsureLogger(log),
		metrics: noopMetrics{},
		known:   make(map[common.Address]struct{}),
	}
	c.Add(DefaultWrappedAssets...)
	c.Add(seeds...)
	return c
}

// WithMetrics attaches a metrics sink for lookup results.
func (c *WrappedAssetClassifier) WithMetrics(m Metrics) *WrappedAssetClassifier {
	c.metrics = ensureMetrics(m)
	return c
}

// WithRegistry seeds the memo from the registry and writes later discoveries back to it.
func (c *WrappedAssetClassifier) WithRegistry(r Registry) (*WrappedAssetClassifier, error) {
	addrs, err := r.LoadWrappedAssets()
	if err != nil {
		return c, err
	}
	c.Add(addrs...)
	c.registry = r
	return c, nil
}

func (c *WrappedAssetClassifier) Add(addrs ...common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range addrs {
		c.known[a] = struct{}{}
	}
}

func (c *WrappedAssetClassifier) Known(addr common.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.known[addr]
	return ok
}

// Check exposes the classifier as a WrappedCheck.
func (c *WrappedAssetClassifier) Check() WrappedCheck {
	return c.IsWrappedLike
}

// IsWrappedLike never fails: lookup errors and missing code count as "not wrapped".
func (c *WrappedAssetClassifier) IsWrappedLike(ctx context.Context, token common.Address) bool {
	if c.Known(token) {
		c.metrics.IncClassifierLookup(LookupKnown)
		return true
	}
	if c.reader == nil {
		c.metrics.IncClassifierLookup(LookupFailed)
		return false
	}

	// concurrent analyses asking about the same contract share one eth_getCode
	v, err, _ := c.lookups.Do(token.Hex(), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		code, err := c.reader.CodeAt(lookupCtx, token, nil)
		if err != nil {
			return false, err
		}
		if len(code) == 0 {
			c.metrics.IncClassifierLookup(LookupNoCode)
			return false, nil
		}
		if !HasWrappedFragments(code) {
			c.metrics.IncClassifierLookup(LookupNoMatch)
			return false, nil
		}

		c.metrics.IncClassifierLookup(LookupMatched)
		c.Add(token)
		if c.registry != nil {
			if err := c.registry.SaveWrappedAsset(token); err != nil {
				c.logger.Warn("cannot persist wrapped asset", "token", ToLowerHex(token), "error", err)
			}
		}
		c.logger.Debug("classified wrapped asset", "token", ToLowerHex(token))
		return true, nil
	})
	if err != nil {
		c.metrics.IncClassifierLookup(LookupFailed)
		c.logger.Warn("error checking wrapped-like token", "token", ToLowerHex(token), "error", err)
		return false
	}
	return v.(bool)
}

// HasWrappedFragments scans contract bytecode for the selectors and event topic prefixes of a
// WETH-style contract.
func HasWrappedFragments(code []byte) bool {
	for _, frag := range wrappedFragments {
		if bytes.Contains(code, frag[:]) {
			return true
		}
	}
	return false
}
