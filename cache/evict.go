package cache

import "container/heap"

// leafHeap is a min-heap of evictable leaves ordered by (timestamp, id):
// older timestamps first, lower id breaking ties. It implements
// container/heap.Interface directly over *node.
type leafHeap []*node

func (h leafHeap) Len() int { return len(h) }
func (h leafHeap) Less(i, j int) bool {
	if h[i].timestamp != h[j].timestamp {
		return h[i].timestamp < h[j].timestamp
	}
	return h[i].id < h[j].id
}
func (h leafHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *leafHeap) Push(x any)   { *h = append(*h, x.(*node)) }
func (h *leafHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Evict releases evictable leaves, oldest-touched first, until the
// cumulative freed length reaches size, and returns the released KV-slot
// indices in the order they were removed. It fails with EvictTooLargeError
// if size exceeds the current evictable size, and with CorruptedTreeError
// if the heap empties before reaching size (which the cache's invariants
// should make unreachable).
func (c *Cache) Evict(size int) ([]int32, error) {
	if size > c.evictableSize {
		return nil, &EvictTooLargeError{Requested: size, Evictable: c.evictableSize}
	}

	h := make(leafHeap, 0)
	c.collectEvictableLeaves(c.root, &h)
	heap.Init(&h)

	var evicted []int32
	freed := 0
	for freed < size {
		if h.Len() == 0 {
			return nil, &CorruptedTreeError{Reason: "evict: evictable leaf heap exhausted before reaching requested size"}
		}
		n := heap.Pop(&h).(*node)
		// Stale entries: the node may have gained children or a lock since
		// it was enqueued. Skip and keep draining.
		if n.isRoot() || !n.isLeaf() || n.refCount != 0 {
			continue
		}

		evicted = append(evicted, n.value...)
		freed += len(n.key)
		c.evictableSize -= len(n.key)

		parent := n.parent
		delete(parent.children, n.firstToken())

		if !parent.isRoot() && parent.isLeaf() && parent.refCount == 0 {
			heap.Push(&h, parent)
		}
	}

	c.metrics.ObserveEvict(freed)
	c.log.WithFields(map[string]any{
		"requested": size,
		"freed":     freed,
	}).Debug("cache: evicted leaves")
	return evicted, nil
}

// collectEvictableLeaves appends every non-root, unrefcounted leaf reachable
// from n into h (unordered; the caller heapifies).
func (c *Cache) collectEvictableLeaves(n *node, h *leafHeap) {
	if !n.isRoot() && n.isLeaf() && n.refCount == 0 {
		*h = append(*h, n)
		return
	}
	for _, child := range n.children {
		c.collectEvictableLeaves(child, h)
	}
}
