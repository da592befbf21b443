package destination

import (
	"context"
	"time"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
)

// Event is a single serialized record routed to a destination
type Event struct {
	// Data is a serialized record (compact json)
	Data []byte

	Time       time.Time
	Index      string
	SourceType string
	Source     string
}

// Sink accepts events of a feed
type Sink interface {
	WriteEvent(ctx context.Context, event *Event) error
}

// Flusher is implemented by sinks that buffer events.
// Flush is called once all records of a window were written.
// Events of a window are delivered all together or not at all,
// the buffer is empty after Flush returns regardless of the outcome
type Flusher interface {
	Flush(ctx context.Context) error

	// Discard drops buffered events without delivering them
	Discard()
}

// Store is a destination that keeps events and knows the watermark of each feed
type Store interface {
	checkpoint.WatermarkProvider
	Sink

	// Setup creates a schema if required
	Setup(ctx context.Context) error

	Close() error
}

// IsBuffered reports if events written to the sink are delivered on Flush only
func IsBuffered(sink Sink) bool {
	_, ok := sink.(Flusher)
	return ok
}

// Flush flushes the sink if it is buffering
func Flush(ctx context.Context, sink Sink) error {
	if flusher, ok := sink.(Flusher); ok {
		return flusher.Flush(ctx)
	}
	return nil
}

// Discard drops buffered events of the sink if it is buffering
func Discard(sink Sink) {
	if flusher, ok := sink.(Flusher); ok {
		flusher.Discard()
	}
}
