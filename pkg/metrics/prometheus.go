// Package metrics exports deliberation session statistics in Prometheus
// text format, derived from the event stream rather than threaded through
// every call site: Sink wraps an events.Sink and counts events by kind as
// they pass through.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/praetorian-inc/deliberate/pkg/events"
)

// Metrics tracks deliberation session statistics.
type Metrics struct {
	GroupsElected       int64
	CandidatesGenerated int64
	OracleAttempts      int64
	OracleFallbacks     int64
	LevelsCompleted     int64
}

// Sink wraps an events.Sink, tallying counters from the events it forwards.
// It is itself an events.Sink, so it can replace the inner sink anywhere
// one is accepted (coordinator.SingleRun, coordinator.Recursive).
type Sink struct {
	inner   events.Sink
	metrics *Metrics
}

// NewSink wraps inner with a Metrics-tallying decorator. inner may be nil,
// in which case events are only counted, not forwarded.
func NewSink(inner events.Sink) *Sink {
	return &Sink{inner: inner, metrics: &Metrics{}}
}

// Emit forwards e to the inner sink (if any) and updates counters.
func (s *Sink) Emit(e events.Event) {
	switch e.Kind {
	case events.KindCandidateDone:
		atomic.AddInt64(&s.metrics.CandidatesGenerated, 1)
	case events.KindOracleAttempt:
		atomic.AddInt64(&s.metrics.OracleAttempts, 1)
	case events.KindOracleFallback:
		atomic.AddInt64(&s.metrics.OracleFallbacks, 1)
	case events.KindElectionDone:
		atomic.AddInt64(&s.metrics.GroupsElected, 1)
	case events.KindLevelDone:
		atomic.AddInt64(&s.metrics.LevelsCompleted, 1)
	}
	if s.inner != nil {
		s.inner.Emit(e)
	}
}

// Snapshot returns a copy of the current counter values.
func (s *Sink) Snapshot() Metrics {
	return Metrics{
		GroupsElected:       atomic.LoadInt64(&s.metrics.GroupsElected),
		CandidatesGenerated: atomic.LoadInt64(&s.metrics.CandidatesGenerated),
		OracleAttempts:      atomic.LoadInt64(&s.metrics.OracleAttempts),
		OracleFallbacks:     atomic.LoadInt64(&s.metrics.OracleFallbacks),
		LevelsCompleted:     atomic.LoadInt64(&s.metrics.LevelsCompleted),
	}
}

// PrometheusExporter exports a Metrics snapshot in Prometheus text format.
type PrometheusExporter struct {
	sink *Sink
}

// NewPrometheusExporter creates an exporter reading live counters off sink.
func NewPrometheusExporter(sink *Sink) *PrometheusExporter {
	return &PrometheusExporter{sink: sink}
}

// Export returns the current counters in Prometheus text format.
func (e *PrometheusExporter) Export() string {
	m := e.sink.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "deliberate_groups_elected_total %d\n", m.GroupsElected)
	fmt.Fprintf(&b, "deliberate_levels_completed_total %d\n", m.LevelsCompleted)
	fmt.Fprintf(&b, "deliberate_candidates_generated_total %d\n", m.CandidatesGenerated)
	fmt.Fprintf(&b, "deliberate_oracle_attempts_total %d\n", m.OracleAttempts)
	fmt.Fprintf(&b, "deliberate_oracle_fallbacks_total %d\n", m.OracleFallbacks)

	var fallbackRate float64
	if m.OracleAttempts > 0 {
		fallbackRate = float64(m.OracleFallbacks) / float64(m.OracleAttempts)
	}
	fmt.Fprintf(&b, "deliberate_oracle_fallback_rate %s\n", formatFloat(fallbackRate))

	return b.String()
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, e.Export())
	})
}

func formatFloat(f float64) string {
	if f == 0.0 {
		return "0"
	}
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
