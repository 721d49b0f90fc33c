package planner

import (
	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/prefillcore/cache"
)

// Planner runs the bounded-budget greedy admission loop described in the
// core's design. It is not safe for concurrent use: the surrounding
// serving stack is expected to drive one planner per replica from a single
// scheduler thread, matching the cache's own single-threaded contract.
type Planner struct {
	pending deque.Deque[*Request]
	cache   PrefillCache
	table   PrefillTable
	metrics MetricsSink
	log     *logrus.Entry
}

// Option configures a Planner at construction time.
type Option func(*Planner)

// WithMetrics attaches a MetricsSink.
func WithMetrics(sink MetricsSink) Option {
	return func(p *Planner) {
		if sink != nil {
			p.metrics = sink
		}
	}
}

// WithLogger attaches a logrus logger.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Planner) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Planner bound to the given cache and table collaborators.
func New(cache PrefillCache, table PrefillTable, opts ...Option) *Planner {
	p := &Planner{
		cache:   cache,
		table:   table,
		metrics: noopMetrics{},
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddPending appends req to the back of the FIFO pending queue.
func (p *Planner) AddPending(req *Request) {
	p.pending.PushBack(req)
}

// PendingLen reports how many requests are currently waiting.
func (p *Planner) PendingLen() int {
	return p.pending.Len()
}

// ScheduleNextBatch walks the pending queue in FIFO order under the given
// token budget, admitting whole or chunked prefill work until the first
// request that cannot be admitted this tick. It returns nil if nothing was
// admitted (idempotent on an empty queue: calling twice in a row with
// nothing pending returns nil both times and has no side effects).
func (p *Planner) ScheduleNextBatch(prefillBudget, decodeInflightTokens int) (*PrefillBatch, error) {
	tokenBudget := prefillBudget
	reservedSize := decodeInflightTokens

	var scheduled []ScheduledReq
	var requeue []*Request

	for p.pending.Len() > 0 {
		req := p.pending.Front()
		sched, admitted, err := p.tryAddOne(req, &tokenBudget, &reservedSize)
		if err != nil {
			return nil, err
		}
		if !admitted {
			break
		}
		p.pending.PopFront()
		scheduled = append(scheduled, sched)
		p.metrics.ObserveAdmitted()

		if sched.IsChunked {
			requeue = append(requeue, &Request{
				UID:       req.UID,
				InputIDs:  req.InputIDs,
				OutputLen: req.OutputLen,
				Chunked: &ChunkedState{
					Handle:    sched.CacheHandle,
					TableIdx:  sched.TableIdx,
					CachedLen: sched.DeviceLen,
				},
			})
		}
	}

	if len(scheduled) == 0 {
		return nil, nil
	}

	// Re-queue chunked tails at the front, back-to-front, so their original
	// relative admission order is preserved ahead of whatever was already
	// waiting.
	for i := len(requeue) - 1; i >= 0; i-- {
		p.pending.PushFront(requeue[i])
	}

	p.metrics.ObserveTokenBudgetUsed(prefillBudget - tokenBudget)
	p.log.WithFields(map[string]any{
		"admitted":      len(scheduled),
		"requeued":      len(requeue),
		"token_budget":  prefillBudget,
		"tokens_used":   prefillBudget - tokenBudget,
		"reserved_size": reservedSize,
	}).Debug("planner: scheduled prefill batch")

	return &PrefillBatch{Reqs: scheduled}, nil
}

// tryAddOne attempts to admit a single pending request under the current
// token budget and reserved-size accounting, mutating both by reference.
func (p *Planner) tryAddOne(req *Request, tokenBudget, reservedSize *int) (ScheduledReq, bool, error) {
	if *tokenBudget == 0 {
		p.metrics.ObserveRejected(RejectBudgetExhausted)
		return ScheduledReq{}, false, nil
	}

	var (
		handle    cache.Handle
		cachedLen int
		tableIdx  int32
	)

	if req.Chunked != nil {
		handle = req.Chunked.Handle
		tableIdx = req.Chunked.TableIdx
		cachedLen = req.Chunked.CachedLen
	} else {
		if p.table.AvailableSize() == 0 {
			p.metrics.ObserveRejected(RejectTableFull)
			return ScheduledReq{}, false, nil
		}
		if len(req.InputIDs) == 0 {
			return ScheduledReq{}, false, ErrEmptyInput
		}

		h, cl, err := p.cache.MatchReq(req.InputIDs[:len(req.InputIDs)-1])
		if err != nil {
			return ScheduledReq{}, false, wrapCacheBackend(err)
		}
		handle = h
		cachedLen = cl

		extendLen := len(req.InputIDs) - cachedLen
		estimatedLen := extendLen + req.OutputLen

		avail, err := p.cache.AvailableSize()
		if err != nil {
			return ScheduledReq{}, false, wrapCacheBackend(err)
		}
		if estimatedLen+*reservedSize > avail {
			p.metrics.ObserveRejected(RejectCapacityExceeded)
			return ScheduledReq{}, false, nil
		}

		if err := p.cache.Lock(handle); err != nil {
			return ScheduledReq{}, false, wrapCacheBackend(err)
		}

		avail, err = p.cache.AvailableSize()
		if err != nil {
			return ScheduledReq{}, false, wrapCacheBackend(err)
		}
		if estimatedLen+*reservedSize > avail {
			if uerr := p.cache.Unlock(handle); uerr != nil {
				return ScheduledReq{}, false, wrapCacheBackend(uerr)
			}
			p.metrics.ObserveRejected(RejectCapacityExceeded)
			return ScheduledReq{}, false, nil
		}

		slot, ok := p.table.Allocate()
		if !ok {
			return ScheduledReq{}, false, ErrTableExhausted
		}
		tableIdx = slot
	}

	remainLen := len(req.InputIDs) - cachedLen
	chunkSize := min(*tokenBudget, remainLen)
	isChunked := chunkSize < remainLen

	*tokenBudget -= chunkSize
	*reservedSize += remainLen + req.OutputLen

	deviceLen := cachedLen + chunkSize
	maxDeviceLen := deviceLen + req.OutputLen

	return ScheduledReq{
		UID:          req.UID,
		TableIdx:     tableIdx,
		CachedLen:    cachedLen,
		DeviceLen:    deviceLen,
		MaxDeviceLen: maxDeviceLen,
		OutputLen:    req.OutputLen,
		CacheHandle:  handle,
		IsChunked:    isChunked,
	}, true, nil
}
