package consumer

import (
	"context"
	"errors"
	"time"
)

// Kind tags an Outcome.
type Kind int

const (
	KindEmpty Kind = iota
	KindMessage
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindMessage:
		return "message"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the result of one poll. Body is set for KindMessage and Err
// (a *ConsumptionError) for KindFatal.
type Outcome struct {
	Kind Kind
	Body string
	Err  error
}

// Poll runs one poll on h and classifies the result.
func Poll(ctx context.Context, h Handle, timeout time.Duration) Outcome {
	body, err := h.Poll(ctx, timeout)
	switch {
	case err == nil:
		return Outcome{Kind: KindMessage, Body: string(body)}
	case errors.Is(err, ErrNoData):
		return Outcome{Kind: KindEmpty}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// shutting down
		return Outcome{Kind: KindEmpty}
	default:
		return Outcome{Kind: KindFatal, Err: &ConsumptionError{Topic: h.Topic(), Err: err}}
	}
}
