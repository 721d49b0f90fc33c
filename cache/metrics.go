package cache

// MetricsSink receives observability events from the cache's mutating
// operations. A nil sink (the default) costs nothing on the hot path; a
// Prometheus-backed implementation lives in the metrics package so that this
// package does not itself depend on the Prometheus client.
type MetricsSink interface {
	ObserveInsert(newBytes int)
	ObserveLockTransition(bytes int, toProtected bool)
	ObserveEvict(freedBytes int)
}

// noopMetrics is used when the cache is constructed without a sink.
type noopMetrics struct{}

func (noopMetrics) ObserveInsert(int) {}
func (noopMetrics) ObserveLockTransition(int, bool) {}
func (noopMetrics) ObserveEvict(int) {}

var _ MetricsSink = noopMetrics{}
