package correlation

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"sync"
	"time"
)

// keyedSlot holds the latest event for one key plus its wake channel.
type keyedSlot struct {
	event   *domain.ObservedEvent
	wake    chan struct{}
	waiters int
}

// KeyedWaiter keeps one slot per correlation key, so events for different
// runs never overwrite each other and a Record only wakes the waiters of
// its own key.
//
// Recorded events stay until they are forgotten or outlive the retention
// window; slots created only by waiters are dropped when their last waiter
// leaves.
type KeyedWaiter struct {
	mu        sync.Mutex
	slots     map[domain.CorrelationKey]*keyedSlot
	retention time.Duration
}

var _ ports.CorrelationWaiter = (*KeyedWaiter)(nil)

// DefaultRetention is how long an unclaimed event is kept.
const DefaultRetention = 10 * time.Minute

// NewKeyedWaiter creates an empty per-key waiter with DefaultRetention.
func NewKeyedWaiter() *KeyedWaiter {
	return NewKeyedWaiterWithRetention(DefaultRetention)
}

// NewKeyedWaiterWithRetention creates an empty per-key waiter that evicts
// recorded events older than retention. A retention <= 0 uses DefaultRetention.
func NewKeyedWaiterWithRetention(retention time.Duration) *KeyedWaiter {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &KeyedWaiter{
		slots:     make(map[domain.CorrelationKey]*keyedSlot),
		retention: retention,
	}
}

// slotLocked returns the slot for key, creating it. w.mu must be held.
func (w *KeyedWaiter) slotLocked(key domain.CorrelationKey) *keyedSlot {
	s, ok := w.slots[key]
	if !ok {
		s = &keyedSlot{wake: make(chan struct{})}
		w.slots[key] = s
	}
	return s
}

// dropIfIdleLocked removes a slot nobody needs anymore. w.mu must be held.
func (w *KeyedWaiter) dropIfIdleLocked(key domain.CorrelationKey, s *keyedSlot) {
	if s.event == nil && s.waiters == 0 {
		delete(w.slots, key)
	}
}

// Record stores the event under its key and wakes that key's waiters.
func (w *KeyedWaiter) Record(kind domain.EventKind, runID string, payload domain.Payload, err error) {
	key := domain.NewKey(kind, runID)
	ev := &domain.ObservedEvent{
		Key:        key,
		Payload:    payload.Clone(),
		Err:        err,
		ObservedAt: time.Now(),
	}

	w.mu.Lock()
	w.evictExpiredLocked(ev.ObservedAt)
	s := w.slotLocked(key)
	s.event = ev
	close(s.wake)
	s.wake = make(chan struct{})
	w.mu.Unlock()
}

// evictExpiredLocked forgets events recorded before now-retention.
// w.mu must be held.
func (w *KeyedWaiter) evictExpiredLocked(now time.Time) {
	cutoff := now.Add(-w.retention)
	for key, s := range w.slots {
		if s.event != nil && s.event.ObservedAt.Before(cutoff) {
			s.event = nil
			w.dropIfIdleLocked(key, s)
		}
	}
}

// WaitFor blocks until an event for (kind, runID) is recorded.
func (w *KeyedWaiter) WaitFor(ctx context.Context, kind domain.EventKind, runID string, timeout time.Duration) (domain.Payload, error) {
	key := domain.NewKey(kind, runID)

	w.mu.Lock()
	s := w.slotLocked(key)
	if s.event != nil {
		ev := s.event
		w.mu.Unlock()
		return resultOf(ev)
	}
	s.waiters++
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		s.waiters--
		if w.slots[key] == s {
			w.dropIfIdleLocked(key, s)
		}
		w.mu.Unlock()
	}()

	expired, stop := timerFor(timeout)
	defer stop()

	for {
		w.mu.Lock()
		if s.event != nil {
			ev := s.event
			w.mu.Unlock()
			return resultOf(ev)
		}
		wake := s.wake
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

// Forget drops the recorded event for (kind, runID).
func (w *KeyedWaiter) Forget(kind domain.EventKind, runID string) {
	key := domain.NewKey(kind, runID)
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.slots[key]; ok {
		s.event = nil
		w.dropIfIdleLocked(key, s)
	}
}

// ForgetRun drops every recorded event tagged with runID.
func (w *KeyedWaiter) ForgetRun(runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, s := range w.slots {
		if key.RunID == runID {
			s.event = nil
			w.dropIfIdleLocked(key, s)
		}
	}
}

// Len returns the number of keys currently tracked.
func (w *KeyedWaiter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.slots)
}
