package correlation

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"sync"
	"time"
)

// SlotWaiter keeps a single observed-event slot shared by all keys.
//
// Every Record overwrites the slot and wakes every waiter; each waiter
// re-checks the full key and goes back to sleep if it does not match.
// Callers must not run overlapping sequences whose keys differ, because a
// later Record for key B hides an earlier, unconsumed event for key A.
type SlotWaiter struct {
	mu   sync.Mutex
	slot *domain.ObservedEvent
	// wake is closed and replaced on every Record.
	wake chan struct{}
}

var _ ports.CorrelationWaiter = (*SlotWaiter)(nil)

// NewSlotWaiter creates an empty single-slot waiter.
func NewSlotWaiter() *SlotWaiter {
	return &SlotWaiter{wake: make(chan struct{})}
}

// Record overwrites the slot and wakes all blocked waiters.
func (w *SlotWaiter) Record(kind domain.EventKind, runID string, payload domain.Payload, err error) {
	ev := &domain.ObservedEvent{
		Key:        domain.NewKey(kind, runID),
		Payload:    payload.Clone(),
		Err:        err,
		ObservedAt: time.Now(),
	}

	w.mu.Lock()
	w.slot = ev
	close(w.wake)
	w.wake = make(chan struct{})
	w.mu.Unlock()
}

// WaitFor blocks until the slot holds an event for (kind, runID).
func (w *SlotWaiter) WaitFor(ctx context.Context, kind domain.EventKind, runID string, timeout time.Duration) (domain.Payload, error) {
	key := domain.NewKey(kind, runID)
	expired, stop := timerFor(timeout)
	defer stop()

	for {
		w.mu.Lock()
		if w.slot != nil && w.slot.Key == key {
			ev := w.slot
			w.mu.Unlock()
			return resultOf(ev)
		}
		wake := w.wake
		w.mu.Unlock()

		select {
		case <-wake:
		case <-expired:
			return nil, &TimeoutError{Key: key, After: timeout}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Forget clears the slot if it currently holds (kind, runID).
func (w *SlotWaiter) Forget(kind domain.EventKind, runID string) {
	key := domain.NewKey(kind, runID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slot != nil && w.slot.Key == key {
		w.slot = nil
	}
}

// Last returns a copy of the most recently recorded event.
func (w *SlotWaiter) Last() (domain.ObservedEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.slot == nil {
		return domain.ObservedEvent{}, false
	}
	ev := *w.slot
	ev.Payload = ev.Payload.Clone()
	return ev, true
}
