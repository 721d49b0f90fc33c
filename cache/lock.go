package cache

// LockHandle walks from handle.node toward the root, excluding the root
// itself, touching every ancestor exactly once (the subtree-cumulative
// refcount semantic of invariant 6 requires this even when an intermediate
// node already has ref_count > 0).
//
// unlock=false increments ref_count on each ancestor, transferring the
// node's |key| from evictable to protected the moment ref_count leaves
// zero. unlock=true decrements, transferring back to evictable the moment
// ref_count reaches zero; unlocking a node already at ref_count=0 is a
// caller bug and returns ErrUnlockUnderflow.
func (c *Cache) LockHandle(h Handle, unlock bool) error {
	for n := h.node; n != nil && !n.isRoot(); n = n.parent {
		if unlock {
			if n.refCount == 0 {
				return ErrUnlockUnderflow
			}
			n.refCount--
			if n.refCount == 0 {
				delta := len(n.key)
				c.protectedSize -= delta
				c.evictableSize += delta
				c.metrics.ObserveLockTransition(delta, false)
			}
			continue
		}
		if n.refCount == 0 {
			delta := len(n.key)
			c.evictableSize -= delta
			c.protectedSize += delta
			c.metrics.ObserveLockTransition(delta, true)
		}
		n.refCount++
	}
	return nil
}
