package bridge

import (
	"net/http"

	chimd "github.com/go-chi/chi/v5/middleware"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/kafka-bridge/pkg/middleware/metrics"
	"github.com/joeydtaylor/kafka-bridge/pkg/transport/httpx"
)

// PingPath answers liveness probes.
const PingPath = "/-/ping"

// BuildDeps are the collaborators BuildRouter wires around a Server.
type BuildDeps struct {
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
}

// BuildRouter mounts the middleware chain, the operational endpoints and the
// topic routes.
func BuildRouter(s *Server, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat(PingPath))

	if d.LogMW != nil {
		r.Use(d.LogMW.Middleware())
	}
	r.Use(hmetrics.Collect())

	if d.Metrics != nil {
		r.Handle(http.MethodGet, hmetrics.Path, d.Metrics)
	}

	s.Routes(r)
	return r.Mux()
}
