package relayer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var ErrSignatureReused = errors.New("signature already used")

// replayGuard remembers user signatures for a while so one signed message cannot trigger two
// flash loans.
type replayGuard struct {
	mu    sync.Mutex
	cache *bigcache.BigCache
}

func newReplayGuard(ctx context.Context, window time.Duration) (*replayGuard, error) {
	cache, err := bigcache.New(ctx, bigcache.Config{
		// number of shards (must be a power of 2)
		Shards: 64,

		// time after which entry can be evicted
		LifeWindow: window,

		// Interval between removing expired entries (clean up).
		CleanWindow: time.Minute,

		// rps * lifeWindow, used only in initial memory allocation
		MaxEntriesInWindow: 1000 * 60,

		// a signature key maps to the time it was first seen
		MaxEntrySize: 32,

		// value in MB, 0 means no size limit
		HardMaxCacheSize: 64,
	})
	if err != nil {
		return nil, err
	}

	return &replayGuard{cache: cache}, nil
}

// claim marks signature as used. It fails with ErrSignatureReused if it already is.
func (g *replayGuard) claim(signature []byte) error {
	key := hexutil.Encode(signature)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.cache.Get(key); err == nil {
		return ErrSignatureReused
	}

	return g.cache.Set(key, []byte(time.Now().UTC().Format(time.RFC3339)))
}

// release forgets signature so the user can retry after a failure that was not theirs.
func (g *replayGuard) release(signature []byte) {
	_ = g.cache.Delete(hexutil.Encode(signature))
}

func (g *replayGuard) Close() error {
	return g.cache.Close()
}
