package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the messaging assistant.
type AssistantMetrics struct {
	inboundTotal    *prometheus.CounterVec
	duplicateTotal  *prometheus.CounterVec
	repliesTotal    *prometheus.CounterVec
	bookingsTotal   *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	leadScoreBucket *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigliere",
			Subsystem: "assistant",
			Name:      "inbound_messages_total",
			Help:      "Total inbound messages per channel",
		}, []string{"channel"}),
		duplicateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigliere",
			Subsystem: "assistant",
			Name:      "duplicate_messages_total",
			Help:      "Inbound messages dropped as webhook replays",
		}, []string{"channel"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigliere",
			Subsystem: "assistant",
			Name:      "replies_total",
			Help:      "Replies produced, by source (flow or generator)",
		}, []string{"channel", "source"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigliere",
			Subsystem: "assistant",
			Name:      "bookings_total",
			Help:      "Booking operations completed through conversations",
		}, []string{"operation"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "consigliere",
			Subsystem: "assistant",
			Name:      "turn_latency_seconds",
			Help:      "Latency of processing one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		leadScoreBucket: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigliere",
			Subsystem: "leads",
			Name:      "tier_transitions_total",
			Help:      "Lead tier observations after rescoring",
		}, []string{"tier"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inboundTotal, m.duplicateTotal, m.repliesTotal,
		m.bookingsTotal, m.turnLatency, m.leadScoreBucket,
	)
	return m
}

func (m *AssistantMetrics) ObserveInbound(channel string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(channel).Inc()
}

func (m *AssistantMetrics) ObserveDuplicate(channel string) {
	if m == nil {
		return
	}
	m.duplicateTotal.WithLabelValues(channel).Inc()
}

func (m *AssistantMetrics) ObserveReply(channel, source string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(channel, source).Inc()
}

func (m *AssistantMetrics) ObserveBooking(operation string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation).Inc()
}

func (m *AssistantMetrics) ObserveTurnLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *AssistantMetrics) ObserveLeadTier(tier string) {
	if m == nil {
		return
	}
	m.leadScoreBucket.WithLabelValues(tier).Inc()
}
