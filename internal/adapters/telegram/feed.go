package telegram

import (
	"PushProbe/internal/bot/messages"
	"PushProbe/internal/core/ports"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// pushFeed mirrors push activity from the event bus into the admin chat.
type pushFeed struct {
	bot    ports.BotClientPort
	chatID int64
	log    zerolog.Logger
}

// SubscribePushFeed posts every received push and activation result to chatID.
func SubscribePushFeed(
	bot ports.BotClientPort,
	chatID int64,
	bus ports.EventBus,
	baseLogger *zerolog.Logger,
) {
	f := &pushFeed{
		bot:    bot,
		chatID: chatID,
		log:    baseLogger.With().Str("component", "push_feed").Logger(),
	}
	bus.Subscribe(ports.TopicPushMessage, f.handleMessage)
	bus.Subscribe(ports.TopicPushActivation, f.handleActivation)
	f.log.Info().Int64("chat_id", chatID).Msg("Push feed subscribed")
}

func (f *pushFeed) handleMessage(ctx context.Context, event ports.Event) error {
	msg, ok := event.Data.(ports.MessageEvent)
	if !ok {
		f.log.Error().Msg("Received bad push message event from bus")
		return nil // Don't retry
	}
	return f.post(ctx, formatMessage(msg))
}

func (f *pushFeed) handleActivation(ctx context.Context, event ports.Event) error {
	ev, ok := event.Data.(ports.ActivationEvent)
	if !ok {
		f.log.Error().Msg("Received bad activation event from bus")
		return nil
	}
	text := fmt.Sprintf("%s: ok", ev.Kind)
	if ev.Err != nil {
		text = fmt.Sprintf("%s: failed: %v", ev.Kind, ev.Err)
	}
	return f.post(ctx, text)
}

func (f *pushFeed) post(ctx context.Context, text string) error {
	params := messages.NewBuilder(f.chatID).WithText(text).Build()
	if _, err := f.bot.SendMessage(ctx, params); err != nil {
		f.log.Error().Err(err).Msg("Failed to post to push feed")
		return err
	}
	return nil
}

// formatMessage renders a push as its kind followed by sorted key=value lines.
func formatMessage(msg ports.MessageEvent) string {
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(msg.Kind))
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s = %s", k, msg.Data[k])
	}
	return b.String()
}
