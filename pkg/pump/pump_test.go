package pump

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeydtaylor/kafka-bridge/pkg/buffer"
	"github.com/joeydtaylor/kafka-bridge/pkg/consumer"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingForwarder struct {
	mu       sync.Mutex
	payloads []string
	err      error
}

func (f *recordingForwarder) Forward(_ context.Context, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

func (f *recordingForwarder) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.payloads)
}

// panicHandle panics on its first poll and then delegates to MemoryHandle.
type panicHandle struct {
	*consumer.MemoryHandle
	panicked atomic.Bool
}

func (h *panicHandle) Poll(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if h.panicked.CompareAndSwap(false, true) {
		panic("decoder exploded")
	}
	return h.MemoryHandle.Poll(ctx, timeout)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timeout waiting for condition")
}

func TestPumpFillsBuffer(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-fill", 10)
	defer h.Close()
	buf := buffer.NewRecent(2)

	g := NewGroup(New(h, buf, nil, zap.NewNop()))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	for _, m := range []string{"a 1 1", "b 2 2", "c 3 3"} {
		if err := h.Publish(m); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	waitFor(t, func() bool {
		s := buf.Snapshot()
		return len(s) == 2 && s[1] == "c 3 3"
	})
	if got := buf.Snapshot(); !slices.Equal(got, []string{"b 2 2", "c 3 3"}) {
		t.Errorf("Expected last two messages, got %v", got)
	}
	waitFor(t, func() bool {
		return testutil.ToFloat64(metrics.MessagesConsumed.WithLabelValues("pump-fill")) == 3
	})
}

func TestPumpForwardsConvertedPayload(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-forward", 10)
	defer h.Close()
	fwd := &recordingForwarder{}

	g := NewGroup(New(h, buffer.NewRecent(5), fwd, zap.NewNop()))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	_ = h.Publish("# HELP up up\nup 1 1609459200000")
	waitFor(t, func() bool { return len(fwd.got()) == 1 })

	if got := fwd.got()[0]; got != "up,__name__=up value=1 1609459200000000" {
		t.Errorf("Unexpected forwarded payload %q", got)
	}
}

func TestPumpSkipsForwardForCommentOnlyMessage(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-comment", 10)
	defer h.Close()
	fwd := &recordingForwarder{}
	buf := buffer.NewRecent(5)

	g := NewGroup(New(h, buf, fwd, zap.NewNop()))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	_ = h.Publish("# HELP up up")
	_ = h.Publish("up 1 1")
	waitFor(t, func() bool { return len(fwd.got()) == 1 })

	if buf.Len() != 2 {
		t.Errorf("Expected both messages buffered, got %d", buf.Len())
	}
}

func TestPumpSurvivesForwardFailure(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-fwd-fail", 10)
	defer h.Close()
	fwd := &recordingForwarder{err: errors.New("connection refused")}
	buf := buffer.NewRecent(5)

	core, logs := observer.New(zap.WarnLevel)
	g := NewGroup(New(h, buf, fwd, zap.New(core)))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	_ = h.Publish("up 1 1")
	_ = h.Publish("up 2 2")
	waitFor(t, func() bool { return buf.Len() == 2 && len(fwd.got()) == 2 })
	waitFor(t, func() bool {
		return testutil.ToFloat64(metrics.ForwardFailures.WithLabelValues("pump-fwd-fail")) == 2
	})
	if n := logs.FilterMessage("forward failed").Len(); n != 2 {
		t.Errorf("Expected 2 logged forward failures, got %d", n)
	}
}

func TestPumpSurvivesBrokerError(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-broker-err", 10)
	defer h.Close()
	buf := buffer.NewRecent(5)

	h.FailNext(errors.New("broker: not leader for partition"))
	_ = h.Publish("after 1 1")

	core, logs := observer.New(zap.WarnLevel)
	g := NewGroup(New(h, buf, nil, zap.New(core)))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	waitFor(t, func() bool { return buf.Len() == 1 })
	if logs.FilterMessage("kafka error").Len() != 1 {
		t.Errorf("Expected the broker error to be logged once")
	}
}

func TestPumpRecoversFromPanic(t *testing.T) {
	h := &panicHandle{MemoryHandle: consumer.NewMemoryHandle("pump-panic", 10)}
	defer h.Close()
	buf := buffer.NewRecent(5)

	g := NewGroup(New(h, buf, nil, zap.NewNop()))
	g.Start(context.Background())
	defer g.Stop(context.Background())

	_ = h.Publish("still 1 1")
	waitFor(t, func() bool { return buf.Len() == 1 })

	if got := testutil.ToFloat64(metrics.PumpPanics.WithLabelValues("pump-panic")); got != 1 {
		t.Errorf("Expected one recovered panic, got %v", got)
	}
}

func TestGroupStopEndsPumps(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-stop", 10)
	defer h.Close()

	g := NewGroup(New(h, buffer.NewRecent(1), nil, zap.NewNop()))
	g.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Stop(ctx); err != nil {
		t.Fatalf("Stop did not finish: %v", err)
	}
}

func TestGroupStopWithoutStart(t *testing.T) {
	if err := NewGroup().Stop(context.Background()); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestPumpLogsBufferCapacityOnStart(t *testing.T) {
	h := consumer.NewMemoryHandle("pump-start", 1)
	defer h.Close()
	core, logs := observer.New(zap.InfoLevel)
	p := New(h, buffer.NewRecent(7), nil, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	started := logs.FilterMessage("consumption loop started").All()
	if len(started) != 1 {
		t.Fatalf("Expected one start entry, got %d", len(started))
	}
	fields := started[0].ContextMap()
	if fields["bufferCapacity"] != int64(7) {
		t.Errorf("Expected bufferCapacity 7, got %v", fields["bufferCapacity"])
	}
	if fields["forwarding"] != false {
		t.Errorf("Expected forwarding false, got %v", fields["forwarding"])
	}
}
