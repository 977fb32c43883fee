package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/clinic-booking-assistant/internal/dialogue"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
)

// AssistantMetrics exposes counters/histograms for the chat pipeline.
type AssistantMetrics struct {
	messagesTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
	repliesTotal     *prometheus.CounterVec
	outboundTotal    *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
	remindersTotal   *prometheus.CounterVec
	promotionsTotal  *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialogue",
			Name:      "messages_total",
			Help:      "Inbound messages handled by the booking dialogue",
		}, []string{"intent", "outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "dialogue",
			Name:      "transitions_total",
			Help:      "Dialogue stage transitions",
		}, []string{"from", "to"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "messaging",
			Name:      "rate_limited_total",
			Help:      "Inbound messages rejected by the per-customer rate limit",
		}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "messaging",
			Name:      "replies_total",
			Help:      "Replies produced per source",
		}, []string{"source", "status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound WhatsApp sends",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Appointment reminders processed",
		}, []string{"status"}),
		promotionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "promotions",
			Name:      "sent_total",
			Help:      "Promotion messages processed",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.messagesTotal, m.transitionsTotal, m.rateLimitedTotal, m.repliesTotal,
		m.outboundTotal, m.webhookLatency, m.remindersTotal, m.promotionsTotal,
	)
	return m
}

var _ dialogue.Recorder = (*AssistantMetrics)(nil)

func (m *AssistantMetrics) ObserveMessage(in intent.Intent, outcome dialogue.Outcome) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(string(in), string(outcome)).Inc()
}

func (m *AssistantMetrics) ObserveTransition(from, to session.Stage) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(stageLabel(from), stageLabel(to)).Inc()
}

func (m *AssistantMetrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

func (m *AssistantMetrics) ObserveReply(source, status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(source, status).Inc()
}

func (m *AssistantMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *AssistantMetrics) ObserveWebhookLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

func (m *AssistantMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}

func (m *AssistantMetrics) ObservePromotion(status string) {
	if m == nil {
		return
	}
	m.promotionsTotal.WithLabelValues(status).Inc()
}

func stageLabel(s session.Stage) string {
	if s == session.StageNone {
		return "none"
	}
	return string(s)
}
