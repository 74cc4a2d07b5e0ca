package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	// Session metrics
	sessionsTotal  prometheus.Counter
	sessionsActive prometheus.Gauge

	// Message metrics
	messagesReceivedTotal prometheus.Counter
	messagesRejectedTotal *prometheus.CounterVec
	messagesSizeBytes     prometheus.Histogram

	// Command metrics
	commandsTotal *prometheus.CounterVec

	// Abuse-mitigation metrics
	dnsListHitsTotal  *prometheus.CounterVec
	earlyTalkersTotal prometheus.Counter
	tarpitSeconds     prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailrecv_sessions_total",
			Help: "Total number of SMTP sessions accepted.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mailrecv_sessions_active",
			Help: "Number of currently active SMTP sessions.",
		}),

		messagesReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailrecv_messages_received_total",
			Help: "Total number of messages accepted at end-of-data.",
		}),
		messagesRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailrecv_messages_rejected_total",
			Help: "Total number of messages or sessions rejected.",
		}, []string{"reason"}),
		messagesSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailrecv_messages_size_bytes",
			Help:    "Size of received message bodies in bytes.",
			Buckets: []float64{1024, 10240, 102400, 1048576, 2097152, 10485760},
		}),

		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailrecv_commands_total",
			Help: "Total number of SMTP commands processed.",
		}, []string{"command"}),

		dnsListHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mailrecv_dns_list_hits_total",
			Help: "Total number of DNS allow/block list hits.",
		}, []string{"type", "list"}),
		earlyTalkersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailrecv_early_talkers_total",
			Help: "Total number of sessions flagged as early talkers.",
		}),
		tarpitSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailrecv_tarpit_seconds_total",
			Help: "Total wall-clock time spent in tarpit delays.",
		}),
	}

	// Register all metrics
	reg.MustRegister(
		c.sessionsTotal,
		c.sessionsActive,
		c.messagesReceivedTotal,
		c.messagesRejectedTotal,
		c.messagesSizeBytes,
		c.commandsTotal,
		c.dnsListHitsTotal,
		c.earlyTalkersTotal,
		c.tarpitSeconds,
	)

	return c
}

// SessionOpened increments the session counter and active gauge.
func (c *PrometheusCollector) SessionOpened() {
	c.sessionsTotal.Inc()
	c.sessionsActive.Inc()
}

// SessionClosed decrements the active sessions gauge.
func (c *PrometheusCollector) SessionClosed() {
	c.sessionsActive.Dec()
}

// MessageReceived increments the message counter and observes message size.
func (c *PrometheusCollector) MessageReceived(sizeBytes int64) {
	c.messagesReceivedTotal.Inc()
	c.messagesSizeBytes.Observe(float64(sizeBytes))
}

// MessageRejected increments the message rejected counter.
func (c *PrometheusCollector) MessageRejected(reason string) {
	c.messagesRejectedTotal.WithLabelValues(reason).Inc()
}

// CommandProcessed increments the command counter.
func (c *PrometheusCollector) CommandProcessed(command string) {
	c.commandsTotal.WithLabelValues(command).Inc()
}

// DNSListHit increments the DNSxL hit counter.
func (c *PrometheusCollector) DNSListHit(listType, listName string) {
	c.dnsListHitsTotal.WithLabelValues(listType, listName).Inc()
}

// EarlyTalker increments the early-talker counter.
func (c *PrometheusCollector) EarlyTalker() {
	c.earlyTalkersTotal.Inc()
}

// TarpitDelay adds a tarpit pause to the running total.
func (c *PrometheusCollector) TarpitDelay(seconds float64) {
	c.tarpitSeconds.Add(seconds)
}
