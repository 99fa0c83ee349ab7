package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joeydtaylor/kafka-bridge/pkg/transport/httpx"
	"go.uber.org/zap"
)

// NotFoundBody is returned for any topic outside the configured set.
const NotFoundBody = "Topic not found!"

const contentType = "text/plain; charset=utf-8"

// TransportWriteError means the peer went away while a response was being
// written. It is logged and otherwise ignored.
type TransportWriteError struct {
	Topic string
	Err   error
}

func (e *TransportWriteError) Error() string {
	return fmt.Sprintf("write response for %s: %v", e.Topic, e.Err)
}

func (e *TransportWriteError) Unwrap() error { return e.Err }

// Server dispatches GET /{topic} to the configured Mode.
type Server struct {
	topics map[string]struct{}
	mode   Mode
	log    *zap.Logger
}

// NewServer serves topics through mode.
func NewServer(topics []string, mode Mode, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return &Server{topics: set, mode: mode, log: log}
}

// Mode returns the serving mode chosen at startup.
func (s *Server) Mode() Mode { return s.mode }

// Handle answers a request for topic.
func (s *Server) Handle(ctx context.Context, topic string) (int, string) {
	if _, ok := s.topics[topic]; !ok {
		return http.StatusNotFound, NotFoundBody
	}
	return s.mode.Answer(ctx, topic)
}

// Routes registers the topic route and the not-found fallback on r.
func (s *Server) Routes(r httpx.Router) {
	r.Get("/{topic}", s)
	r.NotFound(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.write(w, strings.TrimPrefix(r.URL.Path, "/"), http.StatusNotFound, NotFoundBody)
	}))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "topic")
	if topic == "" {
		topic = strings.TrimPrefix(r.URL.Path, "/")
	}
	status, body := s.Handle(r.Context(), topic)
	s.write(w, topic, status, body)
}

func (s *Server) write(w http.ResponseWriter, topic string, status int, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		s.log.Warn("client went away before the response was written",
			zap.Error(&TransportWriteError{Topic: topic, Err: err}))
	}
}
