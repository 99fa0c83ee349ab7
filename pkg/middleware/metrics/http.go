package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path serves the bridge's own metrics. It sits under /-/ so it can never
// shadow a topic route.
const Path = "/-/metrics"

// NewPromHttpHandler returns the metrics handler.
func NewPromHttpHandler() http.Handler { return promhttp.Handler() }

// ProvideMetrics is the Fx provider used by the server wiring.
func ProvideMetrics() http.Handler { return NewPromHttpHandler() }
