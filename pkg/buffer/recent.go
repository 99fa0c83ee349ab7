// Package buffer keeps the most recent messages of a topic.
package buffer

import (
	"slices"
	"sync"
	"sync/atomic"
)

// AppendWithMaxSize returns a new slice holding the last n-1 elements of buf
// followed by msg. buf is never modified or aliased. n must be at least 1.
func AppendWithMaxSize(buf []string, n int, msg string) []string {
	if n < 1 {
		panic("buffer: capacity must be at least 1")
	}
	keep := buf
	if len(keep) > n-1 {
		keep = keep[len(keep)-(n-1):]
	}
	out := make([]string, 0, len(keep)+1)
	out = append(out, keep...)
	return append(out, msg)
}

// Recent is a bounded FIFO of message bodies. Appends build a new slice and
// swap it in atomically, so readers always see a complete sequence.
type Recent struct {
	size int

	mu   sync.Mutex // serializes writers
	msgs atomic.Pointer[[]string]
}

// NewRecent returns an empty buffer holding at most size messages.
func NewRecent(size int) *Recent {
	if size < 1 {
		panic("buffer: capacity must be at least 1")
	}
	r := &Recent{size: size}
	empty := []string{}
	r.msgs.Store(&empty)
	return r
}

// Append adds body as the newest element, evicting the oldest when full.
func (r *Recent) Append(body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := AppendWithMaxSize(*r.msgs.Load(), r.size, body)
	r.msgs.Store(&next)
}

// Snapshot returns a copy of the buffer, oldest first.
func (r *Recent) Snapshot() []string {
	return slices.Clone(*r.msgs.Load())
}

// Len reports the number of buffered messages.
func (r *Recent) Len() int { return len(*r.msgs.Load()) }

// Cap reports the capacity.
func (r *Recent) Cap() int { return r.size }
