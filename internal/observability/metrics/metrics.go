package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReceptionMetrics exposes counters and gauges for the check-in flow and
// the published wait estimate.
type ReceptionMetrics struct {
	checkinsTotal     *prometheus.CounterVec
	duplicateCheckins prometheus.Counter
	linkAttempts      *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	activeVisits      prometheus.Gauge
	estimatedWait     prometheus.Gauge
	recomputeLatency  prometheus.Histogram
}

func NewReceptionMetrics(reg prometheus.Registerer) *ReceptionMetrics {
	m := &ReceptionMetrics{
		checkinsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "visits",
			Name:      "checkins_total",
			Help:      "Total successful check-ins",
		}, []string{"created_by"}),
		duplicateCheckins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "visits",
			Name:      "duplicate_checkins_total",
			Help:      "Check-in attempts rejected by the same-day dedup",
		}),
		linkAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "patients",
			Name:      "link_attempts_total",
			Help:      "Identity link attempts by outcome",
		}, []string{"outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reception",
			Subsystem: "visits",
			Name:      "status_transitions_total",
			Help:      "Visit status transitions",
		}, []string{"to"}),
		activeVisits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reception",
			Subsystem: "status",
			Name:      "active_visits",
			Help:      "Currently waiting patients as last published",
		}),
		estimatedWait: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reception",
			Subsystem: "status",
			Name:      "estimated_wait_minutes",
			Help:      "Published wait estimate in minutes",
		}),
		recomputeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reception",
			Subsystem: "status",
			Name:      "recompute_seconds",
			Help:      "Latency of one public status recompute",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.checkinsTotal,
		m.duplicateCheckins,
		m.linkAttempts,
		m.statusTransitions,
		m.activeVisits,
		m.estimatedWait,
		m.recomputeLatency,
	)
	return m
}

func (m *ReceptionMetrics) ObserveCheckin(createdBy string) {
	if m == nil {
		return
	}
	m.checkinsTotal.WithLabelValues(createdBy).Inc()
}

func (m *ReceptionMetrics) ObserveDuplicateCheckin() {
	if m == nil {
		return
	}
	m.duplicateCheckins.Inc()
}

func (m *ReceptionMetrics) ObserveLinkAttempt(outcome string) {
	if m == nil {
		return
	}
	m.linkAttempts.WithLabelValues(outcome).Inc()
}

func (m *ReceptionMetrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(to).Inc()
}

func (m *ReceptionMetrics) SetPublished(activeCount, estimatedWaitMinutes int) {
	if m == nil {
		return
	}
	m.activeVisits.Set(float64(activeCount))
	m.estimatedWait.Set(float64(estimatedWaitMinutes))
}

func (m *ReceptionMetrics) ObserveRecompute(seconds float64) {
	if m == nil {
		return
	}
	m.recomputeLatency.Observe(seconds)
}
