package pushloop

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBus captures published events synchronously.
type recordingBus struct {
	events []ports.Event
}

func (b *recordingBus) Publish(ctx context.Context, topic string, data any) error {
	b.events = append(b.events, ports.Event{Topic: topic, Data: data})
	return nil
}

func (b *recordingBus) Subscribe(topic string, handler ports.EventHandler) {}

func TestMessagingService_OnMessageReceived(t *testing.T) {
	log := zerolog.Nop()

	testCases := []struct {
		name     string
		msg      domain.PushMessage
		wantKind domain.EventKind
		wantData domain.Payload
		dropped  bool
	}{
		{
			name:     "data push",
			msg:      domain.PushMessage{Data: domain.Payload{"testKey": "testValueDirect", "runId": "r1"}},
			wantKind: domain.KindDataPushReceived,
			wantData: domain.Payload{"testKey": "testValueDirect", "runId": "r1"},
		},
		{
			name: "notification push",
			msg: domain.PushMessage{
				Data:         domain.Payload{"runId": "r2"},
				Notification: &domain.Notification{Title: "testNotification", Body: "Hello from push direct"},
			},
			wantKind: domain.KindNotificationPushReceived,
			wantData: domain.Payload{"runId": "r2", "title": "testNotification", "body": "Hello from push direct"},
		},
		{
			name:    "empty data is dropped",
			msg:     domain.PushMessage{Notification: &domain.Notification{Title: "t", Body: "b"}},
			dropped: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &recordingBus{}
			svc := NewMessagingService(bus, &log)

			require.NoError(t, svc.OnMessageReceived(t.Context(), tc.msg))

			if tc.dropped {
				assert.Empty(t, bus.events)
				return
			}
			require.Len(t, bus.events, 1)
			assert.Equal(t, ports.TopicPushMessage, bus.events[0].Topic)
			ev := bus.events[0].Data.(ports.MessageEvent)
			assert.Equal(t, tc.wantKind, ev.Kind)
			assert.Equal(t, tc.wantData, ev.Data)
		})
	}
}

func TestMessagingService_DoesNotMutateInput(t *testing.T) {
	log := zerolog.Nop()
	svc := NewMessagingService(&recordingBus{}, &log)
	msg := domain.PushMessage{
		Data:         domain.Payload{"runId": "r"},
		Notification: &domain.Notification{Title: "t", Body: "b"},
	}

	require.NoError(t, svc.OnMessageReceived(t.Context(), msg))
	assert.Equal(t, domain.Payload{"runId": "r"}, msg.Data)
}
