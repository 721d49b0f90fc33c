package planner

import "github.com/inference-sim/prefillcore/cache"

// RadixCacheAdapter binds a *cache.Cache to the PrefillCache contract the
// planner requires. It treats every non-root KV unit owned by the tree
// (evictable or protected) as occupied, so locking a handle does not
// further reduce AvailableSize.
type RadixCacheAdapter struct {
	cache      *cache.Cache
	totalUnits int
}

// NewRadixCacheAdapter wraps c, treating totalUnits as the device's total
// KV-cache capacity in the same units as cache slot indices.
func NewRadixCacheAdapter(c *cache.Cache, totalUnits int) *RadixCacheAdapter {
	return &RadixCacheAdapter{cache: c, totalUnits: totalUnits}
}

func (a *RadixCacheAdapter) MatchReq(inputIDs []int32) (cache.Handle, int, error) {
	if len(inputIDs) == 0 {
		h, _ := a.cache.MatchPrefix(nil)
		return h, 0, nil
	}
	h, _ := a.cache.MatchPrefix(inputIDs)
	return h, h.CachedLen, nil
}

func (a *RadixCacheAdapter) Lock(h cache.Handle) error {
	if err := a.cache.LockHandle(h, false); err != nil {
		return wrapCacheBackend(err)
	}
	return nil
}

func (a *RadixCacheAdapter) Unlock(h cache.Handle) error {
	if err := a.cache.LockHandle(h, true); err != nil {
		return wrapCacheBackend(err)
	}
	return nil
}

func (a *RadixCacheAdapter) AvailableSize() (int, error) {
	info := a.cache.SizeInfo()
	used := info.EvictableSize + info.ProtectedSize
	return a.totalUnits - used, nil
}
