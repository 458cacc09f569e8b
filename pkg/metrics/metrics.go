package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the counters and histograms the two flows report into.
type Metrics struct {
	checkoutStarted    *prometheus.CounterVec
	checkoutResults    *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	codesSent          *prometheus.CounterVec
	verifications      *prometheus.CounterVec
}

// New registers the flow metrics on the provided registerer. A nil registerer
// yields a no-op instance, which keeps metrics optional in tests.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	checkoutStarted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_flows_started_total",
		Help: "Checkout flows that passed amount validation.",
	}, []string{"method"})
	checkoutResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_flows_result_total",
		Help: "Checkout flows that reached a terminal result.",
	}, []string{"method", "status"})
	processingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_processing_seconds",
		Help:    "Wall time spent in the processing state.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	codesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_codes_sent_total",
		Help: "Verification code dispatch attempts.",
	}, []string{"channel", "outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_checks_total",
		Help: "Verification attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkoutStarted, checkoutResults, processingDuration, codesSent, verifications)
	return &Metrics{
		checkoutStarted:    checkoutStarted,
		checkoutResults:    checkoutResults,
		processingDuration: processingDuration,
		codesSent:          codesSent,
		verifications:      verifications,
	}
}

// IncCheckoutStarted counts a flow entering the details state.
func (m *Metrics) IncCheckoutStarted(method string) {
	if m == nil || m.checkoutStarted == nil {
		return
	}
	m.checkoutStarted.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncCheckoutResult counts a terminal flow outcome.
func (m *Metrics) IncCheckoutResult(method, status string) {
	if m == nil || m.checkoutResults == nil {
		return
	}
	m.checkoutResults.WithLabelValues(normalizeLabel(method), normalizeLabel(status)).Inc()
}

// ObserveProcessing records how long the processing state lasted.
func (m *Metrics) ObserveProcessing(method string, duration time.Duration) {
	if m == nil || m.processingDuration == nil {
		return
	}
	m.processingDuration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncCodeSent counts a dispatch attempt and its outcome.
func (m *Metrics) IncCodeSent(channel, outcome string) {
	if m == nil || m.codesSent == nil {
		return
	}
	m.codesSent.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// IncVerification counts a verify call by outcome.
func (m *Metrics) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
