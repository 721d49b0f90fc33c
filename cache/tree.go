// Package cache implements the radix prefix cache described in the core's
// design: a token-id-keyed trie whose values are KV-cache slot indices,
// supporting longest-prefix match, in-place insert with edge splitting,
// refcount-based pinning, and LRU-style eviction over a timestamp-ordered
// leaf heap.
package cache

import (
	"github.com/sirupsen/logrus"
)

// SizeInfo reports the running evictable/protected byte accounting.
type SizeInfo struct {
	EvictableSize int
	ProtectedSize int
}

// Cache is a radix prefix cache. It is not safe for concurrent use; callers
// own serialization at the boundary, matching the core's single-threaded
// cooperative concurrency model.
type Cache struct {
	root   *node
	nextID uint64
	clock  uint64

	evictableSize int
	protectedSize int

	metrics MetricsSink
	log     *logrus.Entry
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithMetrics attaches a MetricsSink. Passing nil is equivalent to omitting
// the option.
func WithMetrics(sink MetricsSink) Option {
	return func(c *Cache) {
		if sink != nil {
			c.metrics = sink
		}
	}
}

// WithLogger attaches a logrus logger used for eviction diagnostics (errors
// are returned to the caller, not logged). Defaults to logrus's standard
// logger.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates an empty radix cache. The root node has an empty key/value,
// ref_count=1 forever, and no parent, per invariant 1.
func New(opts ...Option) *Cache {
	root := &node{
		id:        0,
		key:       nil,
		value:     nil,
		children:  make(map[int32]*node),
		parent:    nil,
		refCount:  1,
		timestamp: 0,
	}
	c := &Cache{
		root:    root,
		nextID:  1,
		metrics: noopMetrics{},
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) tick() uint64 {
	c.clock++
	return c.clock
}

// walk descends from the root consuming tokens from ids. At each step it
// indexes children by the next token id. If a child edge is fully consumed
// by the query tail, it descends and refreshes that child's timestamp. If a
// child's edge only partially matches, the child is split at the match
// point and the walk stops there. It returns the deepest node reached and
// how many leading tokens of ids were consumed along the path to it.
//
// touch controls whether fully-traversed nodes have their timestamp
// refreshed. Both MatchPrefix and InsertPrefix pass true: an insert counts
// as an access to the nodes it passes through.
func (c *Cache) walk(ids []int32, touch bool) (n *node, consumed int) {
	cur := c.root
	pos := 0
	for pos < len(ids) {
		child, ok := cur.children[ids[pos]]
		if !ok {
			break
		}
		common := commonPrefixLen(ids[pos:], child.key)
		if common < len(child.key) {
			// Partial match against this child's edge: split it at the
			// match point and stop the walk at the split survivor.
			split := c.splitChild(cur, child, common)
			pos += common
			cur = split
			break
		}
		// Entire child edge consumed by the query tail: descend.
		pos += common
		cur = child
		if touch {
			cur.timestamp = c.tick()
		}
	}
	return cur, pos
}

// commonPrefixLen returns the length of the longest common prefix of a and b.
func commonPrefixLen(a, b []int32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// splitChild splits child at position p (0 < p < len(child.key)), replacing
// it in parent's children with a new internal node s that owns the common
// prefix, and reattaches the truncated child under s. The split does not
// change evictable/protected totals: total bytes are unchanged and s
// inherits child's refcount and timestamp.
func (c *Cache) splitChild(parent, child *node, p int) *node {
	s := newNode(c.nextID, append([]int32(nil), child.key[:p]...), append([]int32(nil), child.value[:p]...), parent, child.timestamp)
	c.nextID++
	s.refCount = child.refCount

	parent.children[child.key[0]] = s
	s.children[child.key[p]] = child

	child.key = child.key[p:]
	child.value = child.value[p:]
	child.parent = s

	return s
}

// MatchPrefix walks the tree and returns a handle to the deepest matched
// node, the concatenation of matched KV-slot indices along the root-to-node
// path, in order. Empty input or zero-match returns a handle with
// CachedLen=0 pointing at root and an empty index slice. Matching refreshes
// the timestamp of every node fully traversed; a split survivor inherits
// the pre-existing timestamp of the node it was split from (it is not
// "touched" by the split itself, only by the continued walk through it).
func (c *Cache) MatchPrefix(ids []int32) (Handle, []int32) {
	if len(ids) == 0 {
		return rootHandle(c.root), nil
	}
	n, consumed := c.walk(ids, true)
	return Handle{CachedLen: consumed, node: n}, reconstructIndices(n)
}

// reconstructIndices concatenates value slices from root to n, in order.
func reconstructIndices(n *node) []int32 {
	if n.isRoot() {
		return nil
	}
	var chain []*node
	for cur := n; !cur.isRoot(); cur = cur.parent {
		chain = append(chain, cur)
	}
	out := make([]int32, 0, len(n.value)) // lower bound; grown below
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].value...)
	}
	return out
}

// InsertPrefix requires len(ids) == len(indices). It walks the tree and, if
// the walk does not consume all of ids, attaches a new leaf under the
// reached node carrying the unconsumed suffix with a fresh timestamp and
// ref_count=0. It returns how many leading tokens were already cached
// before this call (the prefix_len of the walk).
func (c *Cache) InsertPrefix(ids, indices []int32) (int, error) {
	if len(ids) != len(indices) {
		return 0, &MismatchedInputIndicesError{InputLen: len(ids), IndicesLen: len(indices)}
	}
	if len(ids) == 0 {
		return 0, ErrEmptyInput
	}

	n, consumed := c.walk(ids, true)
	if consumed < len(ids) {
		leafKey := append([]int32(nil), ids[consumed:]...)
		leafVal := append([]int32(nil), indices[consumed:]...)
		leaf := newNode(c.nextID, leafKey, leafVal, n, c.tick())
		c.nextID++
		n.children[leafKey[0]] = leaf

		c.evictableSize += len(leafKey)
		c.metrics.ObserveInsert(len(leafKey))
	}
	return consumed, nil
}

// SizeInfo returns the running evictable/protected size counters.
func (c *Cache) SizeInfo() SizeInfo {
	return SizeInfo{EvictableSize: c.evictableSize, ProtectedSize: c.protectedSize}
}
