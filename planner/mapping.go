package planner

// MakePositions concatenates [CachedLen, CachedLen+1, ..., DeviceLen-1] for
// each request in reqs, in order. "Padded" means reqs may include chunked
// requests; the length of the result is the sum of ExtendLen over reqs.
func MakePositions(reqs []ScheduledReq) []int32 {
	var out []int32
	for _, r := range reqs {
		for pos := r.CachedLen; pos < r.DeviceLen; pos++ {
			out = append(out, int32(pos))
		}
	}
	return out
}

// MakeInputMapping repeats each request's TableIdx ExtendLen times. It has
// the same length as MakePositions's result, and out[i] is the TableIdx of
// whichever request's extend range covers flat index i.
func MakeInputMapping(reqs []ScheduledReq) []int32 {
	var out []int32
	for _, r := range reqs {
		for i := 0; i < r.ExtendLen(); i++ {
			out = append(out, r.TableIdx)
		}
	}
	return out
}

// MakeInputTuple returns (input mapping, positions) for reqs, given the
// positions already computed by MakePositions. It does not recompute them,
// so a caller that already has a positions slice can reuse it as-is.
func MakeInputTuple(reqs []ScheduledReq, positions []int32) ([]int32, []int32) {
	return MakeInputMapping(reqs), positions
}

// MakeWriteTuple returns one entry per request (not per extended token):
// reqMapping[i] is reqs[i].TableIdx, and writePos[i] is reqs[i].DeviceLen
// if the request can decode this step, or -1 if it is chunked (no token
// emitted).
func MakeWriteTuple(reqs []ScheduledReq) (reqMapping, writePos []int32) {
	reqMapping = make([]int32, len(reqs))
	writePos = make([]int32, len(reqs))
	for i, r := range reqs {
		reqMapping[i] = r.TableIdx
		if r.CanDecode() {
			writePos[i] = int32(r.DeviceLen)
		} else {
			writePos[i] = -1
		}
	}
	return reqMapping, writePos
}
