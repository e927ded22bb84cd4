package observer

import (
	"log/slog"
	"sync"
)

// Broadcaster buffers events for a single consumer (the SSE handler in the
// server). When the buffer is full the newest event is dropped rather than
// stalling the pipeline.
type Broadcaster struct {
	mu     sync.RWMutex
	events chan StatusEvent
	closed bool
}

// NewBroadcaster creates a Broadcaster with the given buffer size.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 256
	}
	return &Broadcaster{
		events: make(chan StatusEvent, buffer),
	}
}

// Notify implements Notifier. It never blocks.
func (b *Broadcaster) Notify(event StatusEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.events <- event:
	default:
		slog.Debug("Observer buffer full, dropping event", "job_id", event.JobID, "status", event.Status)
	}
}

// Events returns the receive side of the buffer. The channel is closed by
// Close, so consumers can range over it.
func (b *Broadcaster) Events() <-chan StatusEvent {
	return b.events
}

// Close marks the end of the event stream. Events already buffered remain
// readable; later Notify calls are no-ops.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
}
