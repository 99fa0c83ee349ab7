package consumer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by a MemoryHandle after Close.
var ErrClosed = errors.New("consumer: handle closed")

// MemoryHandle is an in-process Handle fed by Publish. It stands in for a
// broker in tests and local runs.
type MemoryHandle struct {
	topic string
	msgs  chan []byte
	done  chan struct{}

	mu   sync.Mutex
	errs []error
	once sync.Once
}

// NewMemoryHandle creates a handle that buffers up to capacity messages.
func NewMemoryHandle(topic string, capacity int) *MemoryHandle {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryHandle{
		topic: topic,
		msgs:  make(chan []byte, capacity),
		done:  make(chan struct{}),
	}
}

// Publish queues a message body. It returns ErrClosed after Close.
func (h *MemoryHandle) Publish(body string) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.msgs <- []byte(body):
		return nil
	case <-h.done:
		return ErrClosed
	}
}

// FailNext makes the next poll return err instead of reading a message.
func (h *MemoryHandle) FailNext(err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
}

func (h *MemoryHandle) Topic() string { return h.topic }

func (h *MemoryHandle) Poll(ctx context.Context, timeout time.Duration) ([]byte, error) {
	h.mu.Lock()
	if len(h.errs) > 0 {
		err := h.errs[0]
		h.errs = h.errs[1:]
		h.mu.Unlock()
		return nil, err
	}
	h.mu.Unlock()

	if timeout == 0 {
		select {
		case m := <-h.msgs:
			return m, nil
		case <-h.done:
			return nil, ErrClosed
		default:
			return nil, ErrNoData
		}
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case m := <-h.msgs:
		return m, nil
	case <-h.done:
		return nil, ErrClosed
	case <-expired:
		return nil, ErrNoData
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *MemoryHandle) Close() {
	h.once.Do(func() { close(h.done) })
}
