package consumer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollMessage(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	if err := h.Publish("up 1 1000"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	out := Poll(context.Background(), h, 0)
	if out.Kind != KindMessage {
		t.Fatalf("Expected message, got %s", out.Kind)
	}
	if out.Body != "up 1 1000" {
		t.Errorf("Expected body %q, got %q", "up 1 1000", out.Body)
	}
}

func TestPollImmediateEmpty(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	start := time.Now()
	out := Poll(context.Background(), h, 0)
	if out.Kind != KindEmpty {
		t.Fatalf("Expected empty, got %s (%v)", out.Kind, out.Err)
	}
	if out.Err != nil {
		t.Errorf("Empty outcome must not carry an error, got %v", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Zero-timeout poll waited %v", elapsed)
	}
}

func TestPollFiniteTimeoutEmpty(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	out := Poll(context.Background(), h, 20*time.Millisecond)
	if out.Kind != KindEmpty {
		t.Fatalf("Expected empty after timeout, got %s", out.Kind)
	}
}

func TestPollFatal(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	brokerErr := errors.New("broker: leader not available")
	h.FailNext(brokerErr)

	out := Poll(context.Background(), h, 0)
	if out.Kind != KindFatal {
		t.Fatalf("Expected fatal, got %s", out.Kind)
	}

	var ce *ConsumptionError
	if !errors.As(out.Err, &ce) {
		t.Fatalf("Expected *ConsumptionError, got %T", out.Err)
	}
	if ce.Topic != "metrics" {
		t.Errorf("Expected topic metrics, got %s", ce.Topic)
	}
	if !errors.Is(out.Err, brokerErr) {
		t.Errorf("Expected cause to be preserved, got %v", out.Err)
	}
}

func TestPollNoDataIsNeverFatal(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	h.FailNext(ErrNoData)
	if out := Poll(context.Background(), h, 0); out.Kind != KindEmpty {
		t.Errorf("Expected ErrNoData to classify as empty, got %s", out.Kind)
	}
}

func TestPollForeverWaitsForMessage(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = h.Publish("late 1 1")
	}()

	done := make(chan Outcome, 1)
	go func() { done <- Poll(context.Background(), h, Forever) }()

	select {
	case out := <-done:
		if out.Kind != KindMessage || out.Body != "late 1 1" {
			t.Errorf("Expected late message, got %s %q", out.Kind, out.Body)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for blocking poll")
	}
}

func TestPollForeverCancelledIsEmpty(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if out := Poll(ctx, h, Forever); out.Kind != KindEmpty {
		t.Errorf("Expected cancellation to classify as empty, got %s (%v)", out.Kind, out.Err)
	}
}

func TestPollClosedHandleIsFatal(t *testing.T) {
	h := NewMemoryHandle("metrics", 10)
	h.Close()

	out := Poll(context.Background(), h, 0)
	if out.Kind != KindFatal || !errors.Is(out.Err, ErrClosed) {
		t.Errorf("Expected fatal ErrClosed, got %s %v", out.Kind, out.Err)
	}
}
