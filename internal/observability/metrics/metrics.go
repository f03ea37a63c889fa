package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat router.
type ChatMetrics struct {
	outcomesTotal     *prometheus.CounterVec
	escalationsTotal  *prometheus.CounterVec
	sosDispatchTotal  *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
	bookingsTotal     *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	persistenceErrors *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "chat",
			Name:      "outcomes_total",
			Help:      "Chat requests by routed outcome",
		}, []string{"outcome"}),
		escalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "crisis",
			Name:      "escalations_total",
			Help:      "Crisis escalations by detection level",
		}, []string{"level"}),
		sosDispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "crisis",
			Name:      "sos_dispatch_total",
			Help:      "SOS alert dispatch attempts",
		}, []string{"sent"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "provider",
			Name:      "fallbacks_total",
			Help:      "Silent fallbacks taken when a non-critical provider failed",
		}, []string{"provider"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "booking",
			Name:      "results_total",
			Help:      "Booking resolver results",
		}, []string{"result"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "psycare",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of remote provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psycare",
			Subsystem: "store",
			Name:      "write_errors_total",
			Help:      "Failed record writes",
		}, []string{"record"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.outcomesTotal,
		m.escalationsTotal,
		m.sosDispatchTotal,
		m.fallbacksTotal,
		m.bookingsTotal,
		m.providerLatency,
		m.persistenceErrors,
	)
	return m
}

func (m *ChatMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveEscalation(level string) {
	if m == nil {
		return
	}
	m.escalationsTotal.WithLabelValues(level).Inc()
}

func (m *ChatMetrics) ObserveSOSDispatch(sent bool) {
	if m == nil {
		return
	}
	label := "false"
	if sent {
		label = "true"
	}
	m.sosDispatchTotal.WithLabelValues(label).Inc()
}

func (m *ChatMetrics) ObserveFallback(provider string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(provider).Inc()
}

func (m *ChatMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *ChatMetrics) ObserveProviderLatency(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ChatMetrics) ObservePersistenceError(record string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(record).Inc()
}
