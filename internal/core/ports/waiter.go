package ports

import (
	"PushProbe/internal/core/domain"
	"context"
	"time"
)

// EventRecorder is the producer side of the correlation waiter.
// It is called from whatever goroutine delivers the event.
type EventRecorder interface {
	Record(kind domain.EventKind, runID string, payload domain.Payload, err error)
}

// EventWaiter is the consumer side of the correlation waiter.
type EventWaiter interface {
	// WaitFor blocks until an event for (kind, runID) has been recorded,
	// the timeout elapses, or ctx is done. A timeout <= 0 waits on ctx only.
	WaitFor(ctx context.Context, kind domain.EventKind, runID string, timeout time.Duration) (domain.Payload, error)

	// Forget drops any recorded event for (kind, runID).
	Forget(kind domain.EventKind, runID string)
}

// CorrelationWaiter is both sides together.
type CorrelationWaiter interface {
	EventRecorder
	EventWaiter
}
