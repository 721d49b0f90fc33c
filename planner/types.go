// Package planner implements the bounded-budget greedy prefill admission
// planner: it decides which pending requests to admit into the next
// prefill batch, how much of each request's prompt to process this tick
// (possibly chunked), and which slot each occupies in a device-side
// request table. It cooperates with a PrefillCache (for reuse matches and
// capacity accounting) and a PrefillTable (for slot allocation).
package planner

import "github.com/inference-sim/prefillcore/cache"

// Request is a pending request awaiting admission. Chunked is present iff
// this request was partially scheduled in a prior tick; when present, the
// planner reuses its cache handle, table slot, and cached length instead of
// performing a fresh cache match and table allocation.
type Request struct {
	UID       uint64
	InputIDs  []int32
	OutputLen int
	Chunked   *ChunkedState
}

// ChunkedState carries what a previously-chunked admission already pinned:
// the locked cache handle, the allocated table slot, and the device length
// materialized so far (which becomes this tick's starting cached length).
type ChunkedState struct {
	Handle    cache.Handle
	TableIdx  int32
	CachedLen int
}

// ScheduledReq describes one request admitted into a batch this tick.
//
// Invariants: 0 <= CachedLen <= DeviceLen <= MaxDeviceLen, and
// MaxDeviceLen == DeviceLen + OutputLen at the moment of scheduling.
type ScheduledReq struct {
	UID          uint64
	TableIdx     int32
	CachedLen    int
	DeviceLen    int
	MaxDeviceLen int
	OutputLen    int
	CacheHandle  cache.Handle
	IsChunked    bool
}

// ExtendLen is the number of tokens to actually run on device this tick.
func (r ScheduledReq) ExtendLen() int { return r.DeviceLen - r.CachedLen }

// RemainLen is the number of tokens still owed before completion.
func (r ScheduledReq) RemainLen() int { return r.MaxDeviceLen - r.DeviceLen }

// CanDecode reports whether the model should emit a token for this request
// on this step: true only for non-chunked requests with a nonzero output
// length.
func (r ScheduledReq) CanDecode() bool { return !r.IsChunked && r.OutputLen > 0 }

// PrefillBatch is the result of a successful schedule_next_batch call.
type PrefillBatch struct {
	Reqs []ScheduledReq
}

// DecodeInflightTokens sums RemainLen over running requests that can
// decode. Callers pass the result as the reservedSize argument to
// ScheduleNextBatch so admission reserves capacity for in-flight decode
// completions that have not yet materialized their full MaxDeviceLen.
func DecodeInflightTokens(running []ScheduledReq) int {
	total := 0
	for _, r := range running {
		if r.CanDecode() {
			total += r.RemainLen()
		}
	}
	return total
}
