package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kzap"
	"go.uber.org/zap"
)

// KafkaOptions configures the per-topic Kafka clients.
type KafkaOptions struct {
	Brokers     []string
	GroupID     string
	ClientID    string
	ResetOffset string // "latest" (default) | "earliest"
	Logger      *zap.Logger
}

// KafkaHandle is a Handle backed by a franz-go consumer-group client
// subscribed to a single topic.
type KafkaHandle struct {
	topic  string
	client *kgo.Client

	mu      sync.Mutex
	pending error // fetch error seen alongside a record, reported on the next poll
}

// NewKafkaHandle joins opts.GroupID and subscribes to topic.
func NewKafkaHandle(topic string, opts KafkaOptions) (*KafkaHandle, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}

	offset := kgo.NewOffset().AtEnd()
	if strings.EqualFold(opts.ResetOffset, "earliest") {
		offset = kgo.NewOffset().AtStart()
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(opts.Brokers...),
		kgo.ConsumerGroup(opts.GroupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(offset),
	}
	if opts.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(opts.ClientID))
	}
	if opts.Logger != nil {
		kopts = append(kopts, kgo.WithLogger(kzap.New(opts.Logger.With(zap.String("topic", topic)))))
	}

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for topic %s: %w", topic, err)
	}
	return &KafkaHandle{topic: topic, client: client}, nil
}

// OpenKafka opens one handle per topic. On failure the handles opened so far
// are closed.
func OpenKafka(topics []string, opts KafkaOptions) (map[string]Handle, error) {
	handles := make(map[string]Handle, len(topics))
	for _, topic := range topics {
		h, err := NewKafkaHandle(topic, opts)
		if err != nil {
			for _, opened := range handles {
				opened.Close()
			}
			return nil, err
		}
		handles[topic] = h
		if opts.Logger != nil {
			opts.Logger.Info("registered consumer",
				zap.String("topic", topic),
				zap.String("groupId", opts.GroupID),
				zap.Strings("brokers", opts.Brokers),
			)
		}
	}
	return handles, nil
}

func (h *KafkaHandle) Topic() string { return h.topic }

// Poll fetches at most one record; the rest stay buffered in the client.
func (h *KafkaHandle) Poll(ctx context.Context, timeout time.Duration) ([]byte, error) {
	h.mu.Lock()
	if err := h.pending; err != nil {
		h.pending = nil
		h.mu.Unlock()
		return nil, err
	}
	h.mu.Unlock()

	pollCtx := ctx
	switch {
	case timeout == 0:
		// A nil context returns buffered records without waiting.
		pollCtx = nil
	case timeout > 0:
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fetches := h.client.PollRecords(pollCtx, 1)
	if fetches.IsClientClosed() {
		return nil, kgo.ErrClientClosed
	}

	var fetchErr error
	fetches.EachError(func(_ string, partition int32, err error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if fetchErr == nil {
			fetchErr = fmt.Errorf("partition %d: %w", partition, err)
		}
	})

	if records := fetches.Records(); len(records) > 0 {
		if fetchErr != nil {
			h.mu.Lock()
			h.pending = fetchErr
			h.mu.Unlock()
		}
		return records[0].Value, nil
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoData
}

func (h *KafkaHandle) Close() { h.client.Close() }
