// Package metrics exposes Prometheus counters for polling and reconciliation.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prospector"

// Recorder groups the collectors registered for one session follower.
type Recorder struct {
	deltas    *prometheus.CounterVec
	polls     *prometheus.CounterVec
	dropped   prometheus.Counter
	watermark prometheus.Gauge
	pending   prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		deltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_total",
			Help:      "Delta records processed, by entity type and outcome.",
		}, []string{"type", "outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Session queries issued, by kind (full, delta) and result.",
		}, []string{"kind", "result"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crew_shares_dropped_total",
			Help:      "Crew shares dropped after their work order never appeared.",
		}),
		watermark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delta_watermark_ms",
			Help:      "Epoch milliseconds up to which deltas have been consumed.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crew_shares_pending",
			Help:      "Crew shares waiting for their work order.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.deltas, r.polls, r.dropped, r.watermark, r.pending)
	}
	return r
}

// Delta counts one processed delta record.
func (r *Recorder) Delta(typename, outcome string) {
	if r == nil {
		return
	}
	if typename == "" {
		typename = "unknown"
	}
	r.deltas.WithLabelValues(typename, outcome).Inc()
}

// Poll counts one query of the given kind.
func (r *Recorder) Poll(kind string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.polls.WithLabelValues(kind, result).Inc()
}

// DroppedCrewShare counts one crew share given up on.
func (r *Recorder) DroppedCrewShare() {
	if r == nil {
		return
	}
	r.dropped.Inc()
}

// SetWatermark publishes the current delta watermark.
func (r *Recorder) SetWatermark(ms int64) {
	if r == nil {
		return
	}
	r.watermark.Set(float64(ms))
}

// SetPending publishes the pending crew share count.
func (r *Recorder) SetPending(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}

// Handler serves the collectors of g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
