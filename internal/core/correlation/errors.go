package correlation

import (
	"PushProbe/internal/core/domain"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("timed out waiting for event")

// TimeoutError is returned when the expected event did not arrive in time.
type TimeoutError struct {
	Key   domain.CorrelationKey
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.After, e.Key)
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// DeliveryError is returned when the producer recorded a failure
// for the key being waited on.
type DeliveryError struct {
	Key domain.CorrelationKey
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s failed: %v", e.Key, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// resultOf turns a matched event into WaitFor's return values.
// The payload is copied so callers never share the recorded map.
func resultOf(ev *domain.ObservedEvent) (domain.Payload, error) {
	payload := ev.Payload.Clone()
	if ev.Err != nil {
		return payload, &DeliveryError{Key: ev.Key, Err: ev.Err}
	}
	return payload, nil
}

// timerFor returns a channel that fires after timeout, or nil (never fires)
// when timeout <= 0. The stop func must always be called.
func timerFor(timeout time.Duration) (<-chan time.Time, func() bool) {
	if timeout <= 0 {
		return nil, func() bool { return false }
	}
	t := time.NewTimer(timeout)
	return t.C, t.Stop
}
