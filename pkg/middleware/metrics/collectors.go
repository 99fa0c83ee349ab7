package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.005, 0.05, 0.5, 1, 5, 10},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)
)

// Bridge internals, labelled by topic. The topic set is fixed at startup so
// cardinality stays bounded.
var (
	MessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_messages_consumed_total", Help: "messages consumed from the broker"},
		[]string{"topic"},
	)

	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_poll_errors_total", Help: "broker errors reported while polling"},
		[]string{"topic"},
	)

	ForwardFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_forward_failures_total", Help: "failed pushes to the time-series write endpoint"},
		[]string{"topic"},
	)

	PumpPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bridge_pump_panics_total", Help: "recovered panics in consumption loops"},
		[]string{"topic"},
	)

	BufferedMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "bridge_buffer_messages", Help: "messages held in the most-recent buffer"},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		MessagesConsumed,
		PollErrors,
		ForwardFailures,
		PumpPanics,
		BufferedMessages,
	)
}
