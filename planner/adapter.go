package planner

// Phase tags which pass a scheduled batch represents.
type Phase int

const (
	PhasePrefill Phase = iota
	PhaseDecode
)

func (p Phase) String() string {
	switch p {
	case PhasePrefill:
		return "prefill"
	case PhaseDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Plan is the minimal projection of a concrete batch that the transport
// layer needs: which request uids were selected, and in what phase.
type Plan struct {
	SelectedUIDs []uint64
	Phase        Phase
}

// ProjectPlan projects reqs, in order, to a Plan. It keeps the planner
// independent of the transport layer: the transport only ever sees uids
// and a phase tag, never ScheduledReq internals.
func ProjectPlan(reqs []ScheduledReq, phase Phase) Plan {
	uids := make([]uint64, len(reqs))
	for i, r := range reqs {
		uids[i] = r.UID
	}
	return Plan{SelectedUIDs: uids, Phase: phase}
}
