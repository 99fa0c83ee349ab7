// Package consumer polls broker topics and classifies what a poll returned.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Forever makes a poll wait until a record arrives or its context ends.
const Forever time.Duration = -1

// ErrNoData reports that the topic had nothing new within the poll timeout.
// It is an idle condition, not a fault.
var ErrNoData = errors.New("consumer: no new data")

// Handle is a per-topic connection to the broker.
type Handle interface {
	// Topic returns the subscribed topic name.
	Topic() string
	// Poll returns the next message body. A zero timeout only checks what the
	// client already buffered; Forever blocks until data or ctx cancellation.
	// Poll returns ErrNoData when nothing arrived in time.
	Poll(ctx context.Context, timeout time.Duration) ([]byte, error)
	// Close leaves the consumer group and releases the connection.
	Close()
}

// ConsumptionError is a broker-reported fault other than "no data".
type ConsumptionError struct {
	Topic string
	Err   error
}

func (e *ConsumptionError) Error() string {
	return fmt.Sprintf("consume %s: %v", e.Topic, e.Err)
}

func (e *ConsumptionError) Unwrap() error { return e.Err }
