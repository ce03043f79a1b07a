package domain

import (
	"fmt"
	"time"
)

// EventKind tags a category of asynchronous completion.
type EventKind string

const (
	KindDataPushReceived         EventKind = "data-push-received"
	KindNotificationPushReceived EventKind = "notification-push-received"
	KindPushActivated            EventKind = "push-activated"
	KindPushDeactivated          EventKind = "push-deactivated"
)

// ActivationRunID is the run id carried by activation events.
// The push runtime does not tag them with a caller-issued id.
const ActivationRunID = "n/a"

// RunIDField is the data key that carries the run id inside a push payload.
const RunIDField = "runId"

// Payload is the key/value data delivered with a push message.
type Payload map[string]string

// Clone returns a copy that shares nothing with p.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CorrelationKey matches a producer's event to a consumer's wait.
type CorrelationKey struct {
	Kind  EventKind
	RunID string
}

// NewKey builds a CorrelationKey.
func NewKey(kind EventKind, runID string) CorrelationKey {
	return CorrelationKey{Kind: kind, RunID: runID}
}

func (k CorrelationKey) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.RunID)
}

// ObservedEvent is one recorded arrival.
type ObservedEvent struct {
	Key        CorrelationKey
	Payload    Payload
	Err        error
	ObservedAt time.Time
}
