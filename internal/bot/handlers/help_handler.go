package handlers

import (
	"PushProbe/internal/bot/messages"
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"
	"context"

	"github.com/rs/zerolog"
)

// helpHandler answers /help with the command list. It also serves /start.
type helpHandler struct {
	command string
	console *probe.Console
	bot     ports.BotClientPort
	log     zerolog.Logger
}

// NewHelpHandler creates a new handler for the /help command.
func NewHelpHandler(console *probe.Console, botClient ports.BotClientPort, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &helpHandler{
		command: "help",
		console: console,
		bot:     botClient,
		log:     baseLogger.With().Str("component", "help_handler").Logger(),
	}
}

// NewStartHandler creates the /start alias of /help.
func NewStartHandler(console *probe.Console, botClient ports.BotClientPort, baseLogger *zerolog.Logger) ports.CommandHandler {
	h := NewHelpHandler(console, botClient, baseLogger).(*helpHandler)
	h.command = "start"
	return h
}

func (h *helpHandler) Command() string {
	return h.command
}

func (h *helpHandler) Description() string {
	return "List the available commands"
}

func (h *helpHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	msg := messages.NewBuilder(update.ChatID).
		WithText("PushProbe control bot").
		WithLine("Current run: %s", h.console.RunID()).
		WithLine("").
		WithLine("/runtests - Run the full push test sequence")
	for _, a := range actions {
		msg.WithLine("/%s - %s", a.command, a.description)
	}

	_, err := h.bot.SendMessage(ctx, msg.Build())
	return err
}
