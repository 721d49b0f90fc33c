// Package metrics provides a Prometheus-backed MetricsSink shared by the
// cache and planner packages, following the no-op/Prometheus duality used
// elsewhere in the retrieved corpus: when no Sink is attached, the cache and
// planner fall back to their own no-op sinks at no cost, and a Sink built
// with New turns the same events into real time series. New requires a
// non-nil registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sink implements both cache.MetricsSink and planner.MetricsSink. It does
// not import either package (avoiding a dependency cycle neither package
// needs); Go's structural interface satisfaction wires it up at the call
// site.
type Sink struct {
	insertBytes      prometheus.Counter
	lockTransitions  *prometheus.CounterVec
	evictions        prometheus.Counter
	evictedBytes     prometheus.Counter
	admitted         prometheus.Counter
	rejected         *prometheus.CounterVec
	tokenBudgetUsed  prometheus.Gauge
}

// New creates a Sink and registers its collectors with reg. Panics (via
// MustRegister) on duplicate registration — registration failures should
// surface at startup, not be swallowed.
func New(reg *prometheus.Registry) *Sink {
	s := &Sink{
		insertBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "cache",
			Name:      "insert_bytes_total",
			Help:      "Total KV units committed via insert_prefix.",
		}),
		lockTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "cache",
			Name:      "lock_transitions_total",
			Help:      "KV units moved between evictable and protected, labeled by direction.",
		}, []string{"direction"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Number of successful evict() calls.",
		}),
		evictedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "cache",
			Name:      "evicted_bytes_total",
			Help:      "Total KV units freed by eviction.",
		}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "planner",
			Name:      "admitted_total",
			Help:      "Requests admitted into a prefill batch.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prefillcore",
			Subsystem: "planner",
			Name:      "rejected_total",
			Help:      "Admission attempts rejected, labeled by reason.",
		}, []string{"reason"}),
		tokenBudgetUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prefillcore",
			Subsystem: "planner",
			Name:      "token_budget_used",
			Help:      "Tokens consumed from the prefill budget in the last tick that admitted a request.",
		}),
	}
	reg.MustRegister(s.insertBytes, s.lockTransitions, s.evictions, s.evictedBytes,
		s.admitted, s.rejected, s.tokenBudgetUsed)
	return s
}

// --- cache.MetricsSink ---

func (s *Sink) ObserveInsert(newBytes int) {
	s.insertBytes.Add(float64(newBytes))
}

func (s *Sink) ObserveLockTransition(bytes int, toProtected bool) {
	direction := "to_evictable"
	if toProtected {
		direction = "to_protected"
	}
	s.lockTransitions.WithLabelValues(direction).Add(float64(bytes))
}

func (s *Sink) ObserveEvict(freedBytes int) {
	s.evictions.Inc()
	s.evictedBytes.Add(float64(freedBytes))
}

// --- planner.MetricsSink ---

func (s *Sink) ObserveAdmitted() {
	s.admitted.Inc()
}

func (s *Sink) ObserveRejected(reason string) {
	s.rejected.WithLabelValues(reason).Inc()
}

func (s *Sink) ObserveTokenBudgetUsed(used int) {
	s.tokenBudgetUsed.Set(float64(used))
}
