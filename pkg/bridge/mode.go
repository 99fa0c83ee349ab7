// Package bridge answers HTTP scrapes with the latest content of Kafka topics.
package bridge

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/joeydtaylor/kafka-bridge/pkg/buffer"
	"github.com/joeydtaylor/kafka-bridge/pkg/consumer"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/metrics"
	"go.uber.org/zap"
)

// Mode answers a request for a configured topic. It is chosen once at startup.
type Mode interface {
	Name() string
	Answer(ctx context.Context, topic string) (status int, body string)
}

// Placeholder is served by Synchronous mode when the topic is idle, so a
// scrape never gets an empty body.
func Placeholder(topic string) string {
	return `no_messages{topic="` + topic + `"} 1`
}

// Synchronous polls the topic once per request without waiting.
type Synchronous struct {
	handles map[string]consumer.Handle
	locks   map[string]*sync.Mutex
	log     *zap.Logger
}

// NewSynchronous serves from handles, keyed by topic.
func NewSynchronous(handles map[string]consumer.Handle, log *zap.Logger) *Synchronous {
	if log == nil {
		log = zap.NewNop()
	}
	locks := make(map[string]*sync.Mutex, len(handles))
	for topic := range handles {
		locks[topic] = &sync.Mutex{}
	}
	return &Synchronous{handles: handles, locks: locks, log: log}
}

func (s *Synchronous) Name() string { return "synchronous" }

func (s *Synchronous) Answer(ctx context.Context, topic string) (int, string) {
	h, ok := s.handles[topic]
	if !ok {
		return http.StatusNotFound, NotFoundBody
	}

	// Concurrent requests for one topic must not interleave reads on its handle.
	mu := s.locks[topic]
	mu.Lock()
	out := consumer.Poll(ctx, h, 0)
	mu.Unlock()

	switch out.Kind {
	case consumer.KindMessage:
		metrics.MessagesConsumed.WithLabelValues(topic).Inc()
		return http.StatusOK, out.Body
	case consumer.KindFatal:
		metrics.PollErrors.WithLabelValues(topic).Inc()
		s.log.Warn("kafka error", zap.String("topic", topic), zap.Error(out.Err))
		return http.StatusServiceUnavailable, out.Err.Error()
	default:
		s.log.Debug("no new message was received from broker", zap.String("topic", topic))
		return http.StatusOK, Placeholder(topic)
	}
}

// Buffered serves the most-recent buffer filled by the topic's pump.
type Buffered struct {
	bufs map[string]*buffer.Recent
}

// NewBuffered serves from bufs, keyed by topic.
func NewBuffered(bufs map[string]*buffer.Recent) *Buffered {
	return &Buffered{bufs: bufs}
}

func (b *Buffered) Name() string { return "most_recent" }

func (b *Buffered) Answer(_ context.Context, topic string) (int, string) {
	buf, ok := b.bufs[topic]
	if !ok {
		return http.StatusNotFound, NotFoundBody
	}
	return http.StatusOK, strings.Join(buf.Snapshot(), "\n")
}
