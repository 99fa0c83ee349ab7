// Package pump runs the per-topic consumption loops that feed the
// most-recent buffers.
package pump

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeydtaylor/kafka-bridge/pkg/buffer"
	"github.com/joeydtaylor/kafka-bridge/pkg/consumer"
	"github.com/joeydtaylor/kafka-bridge/pkg/convert"
	"github.com/joeydtaylor/kafka-bridge/pkg/middleware/metrics"
	"go.uber.org/zap"
)

// Forwarder pushes a converted payload downstream.
type Forwarder interface {
	Forward(ctx context.Context, payload string) error
}

// Pump moves messages from one topic's handle into its buffer and, when a
// Forwarder is set, on to the time-series backend.
type Pump struct {
	handle  consumer.Handle
	buf     *buffer.Recent
	forward Forwarder // nil disables forwarding
	log     *zap.Logger
}

// New returns a pump for h. fwd may be nil.
func New(h consumer.Handle, buf *buffer.Recent, fwd Forwarder, log *zap.Logger) *Pump {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pump{
		handle:  h,
		buf:     buf,
		forward: fwd,
		log:     log.With(zap.String("topic", h.Topic())),
	}
}

// Run loops until ctx is cancelled. Broker errors and forwarding failures are
// logged and never stop the loop.
func (p *Pump) Run(ctx context.Context) {
	p.log.Info("consumption loop started",
		zap.Int("bufferCapacity", p.buf.Cap()),
		zap.Bool("forwarding", p.forward != nil),
	)
	defer p.log.Info("consumption loop stopped")

	for ctx.Err() == nil {
		p.step(ctx)
	}
}

func (p *Pump) step(ctx context.Context) {
	topic := p.handle.Topic()
	defer func() {
		if r := recover(); r != nil {
			metrics.PumpPanics.WithLabelValues(topic).Inc()
			p.log.Error("recovered panic in consumption loop", zap.Any("panic", r))
		}
	}()

	out := consumer.Poll(ctx, p.handle, consumer.Forever)
	switch out.Kind {
	case consumer.KindEmpty:
		return
	case consumer.KindFatal:
		metrics.PollErrors.WithLabelValues(topic).Inc()
		p.log.Warn("kafka error", zap.Error(out.Err))
		return
	}

	p.log.Debug("adding message", zap.String("msg", out.Body))
	p.buf.Append(out.Body)
	metrics.MessagesConsumed.WithLabelValues(topic).Inc()
	metrics.BufferedMessages.WithLabelValues(topic).Set(float64(p.buf.Len()))

	if p.forward != nil {
		if err := p.push(ctx, out.Body); err != nil {
			p.log.Warn("forward failed", zap.Error(err))
			metrics.ForwardFailures.WithLabelValues(topic).Inc()
		}
	}
}

func (p *Pump) push(ctx context.Context, body string) error {
	payload, err := convert.Convert(body)
	if err != nil {
		p.log.Warn("skipped unparseable exposition lines", zap.Error(err))
	}
	if payload == "" {
		return nil
	}
	if err := p.forward.Forward(ctx, payload); err != nil {
		return fmt.Errorf("push converted message: %w", err)
	}
	return nil
}

// Group runs a set of pumps under one shutdown context.
type Group struct {
	pumps []*Pump

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGroup returns a group over pumps; nothing runs until Start.
func NewGroup(pumps ...*Pump) *Group { return &Group{pumps: pumps} }

// Start launches one goroutine per pump.
func (g *Group) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	for _, p := range g.pumps {
		g.wg.Add(1)
		go func(p *Pump) {
			defer g.wg.Done()
			p.Run(ctx)
		}(p)
	}
}

// Stop cancels all pumps and waits for them, or for ctx to end.
func (g *Group) Stop(ctx context.Context) error {
	if g.cancel == nil {
		return nil
	}
	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
