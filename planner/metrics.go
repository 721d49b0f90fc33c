package planner

// MetricsSink receives admission-outcome observability events. A nil sink
// is replaced with a no-op at construction; a Prometheus-backed
// implementation lives in the metrics package.
type MetricsSink interface {
	ObserveAdmitted()
	ObserveRejected(reason string)
	ObserveTokenBudgetUsed(used int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAdmitted() {}
func (noopMetrics) ObserveRejected(string) {}
func (noopMetrics) ObserveTokenBudgetUsed(int) {}

var _ MetricsSink = noopMetrics{}

// Rejection reasons recorded via ObserveRejected.
const (
	RejectBudgetExhausted  = "token_budget_exhausted"
	RejectTableFull        = "table_full"
	RejectCapacityExceeded = "capacity_exceeded"
)
