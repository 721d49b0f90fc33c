package cache

// Handle is an opaque cache handle produced by MatchPrefix. It pins nothing
// by itself; a caller that wants to prevent eviction of the matched path
// must call LockHandle(handle, false). Handle is a plain value type, so it
// is trivially cloneable — every copy locks/unlocks the same underlying
// node.
type Handle struct {
	CachedLen int
	node      *node
}

// rootHandle is the handle returned for an empty or zero-length match: it
// points at the root and carries no cached length.
func rootHandle(root *node) Handle {
	return Handle{CachedLen: 0, node: root}
}
