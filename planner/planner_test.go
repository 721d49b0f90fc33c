package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/prefillcore/cache"
)

// fakeCache is a scripted PrefillCache collaborator for tests that need
// precise control over cached_len and capacity without exercising the real
// radix tree.
type fakeCache struct {
	cachedLen      int
	available      int
	lockCalls      int
	unlockCalls    int
	availAfterLock int // if >0, overrides `available` after Lock is called
}

func (f *fakeCache) MatchReq(inputIDs []int32) (cache.Handle, int, error) {
	return cache.Handle{CachedLen: f.cachedLen}, f.cachedLen, nil
}
func (f *fakeCache) Lock(h cache.Handle) error {
	f.lockCalls++
	if f.availAfterLock > 0 {
		f.available = f.availAfterLock
	}
	return nil
}
func (f *fakeCache) Unlock(h cache.Handle) error {
	f.unlockCalls++
	return nil
}
func (f *fakeCache) AvailableSize() (int, error) { return f.available, nil }

func TestScheduleNextBatch_Chunking(t *testing.T) {
	// GIVEN one pending request whose prompt matches 1 cached token, with a
	// token budget of 2 and ample cache/table capacity.
	fc := &fakeCache{cachedLen: 1, available: 1 << 20}
	table := NewSlotTable(4)
	p := New(fc, table)
	p.AddPending(&Request{UID: 1, InputIDs: []int32{10, 11, 12, 13, 14}, OutputLen: 3})

	batch, err := p.ScheduleNextBatch(2, 0)
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Len(t, batch.Reqs, 1)

	r := batch.Reqs[0]
	assert.True(t, r.IsChunked)
	assert.Equal(t, 1, r.CachedLen)
	assert.Equal(t, 3, r.DeviceLen)
	assert.Equal(t, 2, r.ExtendLen())

	// THEN the request was re-queued at the front with updated chunked state.
	require.Equal(t, 1, p.PendingLen())
	requeued := p.pending.Front()
	require.NotNil(t, requeued.Chunked)
	assert.Equal(t, 3, requeued.Chunked.CachedLen)
}

func TestScheduleNextBatch_FIFOAndRequeue(t *testing.T) {
	// GIVEN two pending requests and a table with exactly 3 slots; cache
	// always reports cached_len=0 and never reduces available size on lock.
	fc := &fakeCache{cachedLen: 0, available: 1 << 20}
	table := NewSlotTable(3)
	p := New(fc, table)
	p.AddPending(&Request{UID: 1, InputIDs: make([]int32, 6), OutputLen: 1})
	p.AddPending(&Request{UID: 2, InputIDs: make([]int32, 6), OutputLen: 1})

	// WHEN the first tick runs with budget=3
	batch1, err := p.ScheduleNextBatch(3, 4)
	require.NoError(t, err)
	require.Len(t, batch1.Reqs, 1)
	assert.Equal(t, uint64(1), batch1.Reqs[0].UID)
	assert.True(t, batch1.Reqs[0].IsChunked)

	require.Equal(t, 2, p.PendingLen())
	first := p.pending.Front()
	assert.Equal(t, uint64(1), first.UID)
	require.NotNil(t, first.Chunked)
	second := p.pending.At(1)
	assert.Equal(t, uint64(2), second.UID)

	// WHEN the second tick admits request 1's remaining tokens in full
	batch2, err := p.ScheduleNextBatch(3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, batch2.Reqs)
	assert.Equal(t, uint64(1), batch2.Reqs[0].UID)
	assert.False(t, batch2.Reqs[0].IsChunked)
}

func TestScheduleNextBatch_EmptyQueueIsIdempotent(t *testing.T) {
	fc := &fakeCache{available: 100}
	p := New(fc, NewSlotTable(2))

	b1, err := p.ScheduleNextBatch(10, 0)
	require.NoError(t, err)
	assert.Nil(t, b1)

	b2, err := p.ScheduleNextBatch(10, 0)
	require.NoError(t, err)
	assert.Nil(t, b2)
}

func TestTryAddOne_LockRollbackOnCapacityRecheck(t *testing.T) {
	// GIVEN a cache that reports enough capacity before lock but not after
	// (locking itself consumed the remaining headroom).
	fc := &fakeCache{cachedLen: 0, available: 100, availAfterLock: 1}
	table := NewSlotTable(2)
	p := New(fc, table)
	p.AddPending(&Request{UID: 9, InputIDs: make([]int32, 20), OutputLen: 5})

	batch, err := p.ScheduleNextBatch(50, 0)
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.Equal(t, 1, fc.lockCalls)
	assert.Equal(t, 1, fc.unlockCalls)
	// The table slot must not have been consumed by the rolled-back attempt.
	assert.Equal(t, 2, table.AvailableSize())
}

func TestTryAddOne_EmptyInputFails(t *testing.T) {
	fc := &fakeCache{available: 100}
	p := New(fc, NewSlotTable(1))
	p.AddPending(&Request{UID: 1, InputIDs: nil, OutputLen: 1})

	_, err := p.ScheduleNextBatch(10, 0)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestTryAddOne_TableExhausted(t *testing.T) {
	fc := &fakeCache{available: 1 << 20}
	table := NewSlotTable(0)
	p := New(fc, table)
	p.AddPending(&Request{UID: 1, InputIDs: []int32{1, 2, 3}, OutputLen: 1})

	batch, err := p.ScheduleNextBatch(10, 0)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestMappingBuilders_Golden(t *testing.T) {
	reqs := []ScheduledReq{
		{UID: 1, TableIdx: 7, CachedLen: 2, DeviceLen: 5, OutputLen: 4, MaxDeviceLen: 9, IsChunked: false},
		{UID: 2, TableIdx: 9, CachedLen: 1, DeviceLen: 3, OutputLen: 7, MaxDeviceLen: 10, IsChunked: true},
		{UID: 3, TableIdx: 11, CachedLen: 4, DeviceLen: 5, OutputLen: 1, MaxDeviceLen: 6, IsChunked: false},
	}

	positions := MakePositions(reqs)
	assert.Equal(t, []int32{2, 3, 4, 1, 2, 4}, positions)

	inputMapping := MakeInputMapping(reqs)
	assert.Equal(t, []int32{7, 7, 7, 9, 9, 11}, inputMapping)

	reqMapping, writePos := MakeWriteTuple(reqs)
	assert.Equal(t, []int32{7, 9, 11}, reqMapping)
	assert.Equal(t, []int32{5, -1, 5}, writePos)

	assert.Equal(t, 5, DecodeInflightTokens(reqs))
}

func TestMappingBuilders_LengthsAgree(t *testing.T) {
	reqs := []ScheduledReq{
		{TableIdx: 1, CachedLen: 0, DeviceLen: 4},
		{TableIdx: 2, CachedLen: 2, DeviceLen: 2},
		{TableIdx: 3, CachedLen: 5, DeviceLen: 9},
	}
	positions := MakePositions(reqs)
	mapping := MakeInputMapping(reqs)
	require.Equal(t, len(positions), len(mapping))

	total := 0
	for _, r := range reqs {
		total += r.ExtendLen()
	}
	assert.Equal(t, total, len(positions))
}

func TestProjectPlan(t *testing.T) {
	reqs := []ScheduledReq{{UID: 5}, {UID: 6}, {UID: 7}}
	plan := ProjectPlan(reqs, PhaseDecode)
	assert.Equal(t, []uint64{5, 6, 7}, plan.SelectedUIDs)
	assert.Equal(t, PhaseDecode, plan.Phase)
}

func TestNoopCacheManager(t *testing.T) {
	var m NoopCacheManager
	cachedLen, indices, err := m.MatchPrefix([]int32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0, cachedLen)
	assert.Empty(t, indices)

	_, _, err = m.MatchPrefix(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
