package pushloop

import (
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"

	"github.com/rs/zerolog"
)

// MessagingService is the on-device push handler. It classifies every
// delivered message and rebroadcasts it on the event bus.
type MessagingService struct {
	bus ports.EventBus
	log zerolog.Logger
}

// NewMessagingService creates the device-side push handler.
func NewMessagingService(bus ports.EventBus, baseLogger *zerolog.Logger) *MessagingService {
	return &MessagingService{
		bus: bus,
		log: baseLogger.With().Str("component", "messaging_service").Logger(),
	}
}

// OnMessageReceived handles one delivered push.
// Messages without data are dropped; notification fields are folded
// into the data so receivers see a single flat map.
func (s *MessagingService) OnMessageReceived(ctx context.Context, msg domain.PushMessage) error {
	if len(msg.Data) == 0 {
		s.log.Debug().Msg("Dropping push message without data")
		return nil
	}
	data := msg.Data.Clone()

	kind := domain.KindDataPushReceived
	if msg.Notification != nil {
		s.log.Info().
			Str("title", msg.Notification.Title).
			Str("body", msg.Notification.Body).
			Msg("Received message notification")
		data["title"] = msg.Notification.Title
		data["body"] = msg.Notification.Body
		kind = domain.KindNotificationPushReceived
	} else {
		s.log.Info().Msg("Received data message")
	}

	return s.bus.Publish(ctx, ports.TopicPushMessage, ports.MessageEvent{Kind: kind, Data: data})
}
