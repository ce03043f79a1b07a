package probe

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// PushReceiver turns bus events from the push runtime into waiter records.
type PushReceiver struct {
	recorder ports.EventRecorder
	log      zerolog.Logger
}

// NewPushReceiver creates a receiver that records into recorder.
func NewPushReceiver(recorder ports.EventRecorder, baseLogger *zerolog.Logger) *PushReceiver {
	return &PushReceiver{
		recorder: recorder,
		log:      baseLogger.With().Str("component", "push_receiver").Logger(),
	}
}

// Register subscribes the receiver to the push topics.
func (r *PushReceiver) Register(bus ports.EventBus) {
	bus.Subscribe(ports.TopicPushMessage, r.handleMessage)
	bus.Subscribe(ports.TopicPushActivation, r.handleActivation)
}

func (r *PushReceiver) handleMessage(ctx context.Context, event ports.Event) error {
	msg, ok := event.Data.(ports.MessageEvent)
	if !ok {
		r.log.Error().Str("topic", event.Topic).Msg("Unexpected payload on push message topic")
		return nil
	}

	runID := msg.Data[domain.RunIDField]
	if runID == "" {
		r.log.Warn().Str("kind", string(msg.Kind)).Msg("Push message without run id, ignoring")
		return nil
	}

	r.logPayload(msg)
	r.recorder.Record(msg.Kind, runID, msg.Data, nil)
	return nil
}

// logPayload writes one line per received key, in key order.
func (r *PushReceiver) logPayload(msg ports.MessageEvent) {
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r.log.Info().Str("kind", string(msg.Kind)).Msg("Push message received")
	for _, k := range keys {
		r.log.Info().Str("key", k).Str("value", msg.Data[k]).Msg("Push data")
	}
}

func (r *PushReceiver) handleActivation(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.ActivationEvent)
	if !ok {
		r.log.Error().Str("topic", event.Topic).Msg("Unexpected payload on push activation topic")
		return nil
	}

	l := r.log.Info()
	if ev.Err != nil {
		l = r.log.Warn().Err(ev.Err)
	}
	l.Str("kind", string(ev.Kind)).Msg("Activation event received")

	r.recorder.Record(ev.Kind, domain.ActivationRunID, nil, ev.Err)
	return nil
}
