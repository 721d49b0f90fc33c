package planner

// SlotTable is a reference PrefillTable: a fixed-size free-list of
// device-side request-table slot ids. It is the planner's analogue of the
// radix cache's own free/evictable bookkeeping, provided so the planner is
// runnable without a caller-supplied mock.
type SlotTable struct {
	free []int32
}

// NewSlotTable creates a table with n free slots, numbered 0..n-1.
func NewSlotTable(n int) *SlotTable {
	free := make([]int32, n)
	for i := range free {
		free[i] = int32(n - 1 - i)
	}
	return &SlotTable{free: free}
}

// AvailableSize reports how many slots remain unallocated.
func (t *SlotTable) AvailableSize() int { return len(t.free) }

// Allocate hands out a free slot, or ok=false if the pool is exhausted.
func (t *SlotTable) Allocate() (slot int32, ok bool) {
	if len(t.free) == 0 {
		return 0, false
	}
	idx := len(t.free) - 1
	slot = t.free[idx]
	t.free = t.free[:idx]
	return slot, true
}

// Free returns slot to the pool. Releasing table slots on request
// completion is a caller responsibility outside the admission loop itself;
// this method exists so a caller has something to call.
func (t *SlotTable) Free(slot int32) {
	t.free = append(t.free, slot)
}
