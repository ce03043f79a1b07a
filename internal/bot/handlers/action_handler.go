package handlers

import (
	"PushProbe/internal/bot"
	"PushProbe/internal/bot/messages"
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"
	"context"

	"github.com/rs/zerolog"
)

// actionHandler runs one console action and replies with its outcome.
type actionHandler struct {
	action  action
	console *probe.Console
	bot     ports.BotClientPort
	log     zerolog.Logger
}

func newActionConstructor(a action) bot.CommandHandlerConstructor {
	return func(console *probe.Console, botClient ports.BotClientPort, baseLogger *zerolog.Logger) ports.CommandHandler {
		return &actionHandler{
			action:  a,
			console: console,
			bot:     botClient,
			log:     baseLogger.With().Str("component", "action_handler").Str("command", a.command).Logger(),
		}
	}
}

func (h *actionHandler) Command() string {
	return h.action.command
}

func (h *actionHandler) Description() string {
	return h.action.description
}

func (h *actionHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	summary, err := h.action.run(ctx, h.console)

	msg := messages.NewBuilder(update.ChatID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Action failed")
		msg.WithText("Failed: " + err.Error())
	} else {
		msg.WithText(summary)
	}
	_, sendErr := h.bot.SendMessage(ctx, msg.Build())
	return sendErr
}
