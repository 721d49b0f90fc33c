package planner

import "github.com/inference-sim/prefillcore/cache"

// PrefillCache is the richer, refcounted collaborator the planner binds.
// Implementations may return an error, which the planner wraps as
// CacheBackendError before surfacing it.
type PrefillCache interface {
	// MatchReq returns the longest matched prefix over inputIDs (which the
	// caller has already trimmed to exclude the final token) along with a
	// handle usable with Lock/Unlock.
	MatchReq(inputIDs []int32) (handle cache.Handle, cachedLen int, err error)
	Lock(handle cache.Handle) error
	Unlock(handle cache.Handle) error
	// AvailableSize returns free KV cache units. Some implementations
	// reduce this as a side effect of Lock; callers must re-check after
	// locking.
	AvailableSize() (int, error)
}

// PrefillTable is the device-side slot pool collaborator.
type PrefillTable interface {
	AvailableSize() int
	// Allocate returns a free slot id, or ok=false if the pool is exhausted.
	Allocate() (slot int32, ok bool)
}

// NoopCacheManager is the simple, non-refcounted façade named in the core's
// design notes for workloads with no prefix reuse. It is deliberately kept
// separate from PrefillCache: the planner never binds it, and it has no
// notion of locking or eviction.
type NoopCacheManager struct{}

// MatchPrefix always reports a zero-length match over empty indices, and
// fails EmptyInput on an empty request — it never touches lock/evict state.
func (NoopCacheManager) MatchPrefix(inputIDs []int32) (cachedLen int, indices []int32, err error) {
	if len(inputIDs) == 0 {
		return 0, nil, ErrEmptyInput
	}
	return 0, nil, nil
}
