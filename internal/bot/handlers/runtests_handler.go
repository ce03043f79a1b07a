package handlers

import (
	"PushProbe/internal/bot/messages"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// runTestsHandler is the plugin for the /runtests command.
type runTestsHandler struct {
	console *probe.Console
	bot     ports.BotClientPort
	log     zerolog.Logger
}

// NewRunTestsHandler creates a new handler for the /runtests command.
func NewRunTestsHandler(
	console *probe.Console,
	botClient ports.BotClientPort,
	baseLogger *zerolog.Logger,
) ports.CommandHandler {
	return &runTestsHandler{
		console: console,
		bot:     botClient,
		log:     baseLogger.With().Str("component", "runtests_handler").Logger(),
	}
}

func (h *runTestsHandler) Command() string {
	return "runtests"
}

func (h *runTestsHandler) Description() string {
	return "Run the full push test sequence"
}

func (h *runTestsHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	run, err := h.console.BeginPushTests(ctx)
	if err != nil {
		text := "Could not start the push tests."
		if errors.Is(err, probe.ErrRunInProgress) {
			text = "A push test run is already in progress."
		} else {
			h.log.Error().Err(err).Msg("Failed to start push tests")
		}
		_, sendErr := h.bot.SendMessage(ctx, messages.NewBuilder(update.ChatID).WithText(text).Build())
		return sendErr
	}

	started := messages.NewBuilder(update.ChatID).WithText("Running push tests, run " + run.ID.String()).Build()
	if _, err := h.bot.SendMessage(ctx, started); err != nil {
		h.log.Warn().Err(err).Msg("Failed to announce test run")
	}

	h.console.ExecutePushTests(ctx, run)

	_, err = h.bot.SendMessage(ctx, runReport(update.ChatID, run))
	return err
}

// runReport renders one line per executed step.
func runReport(chatID int64, run *domain.TestRun) ports.SendMessageParams {
	msg := messages.NewBuilder(chatID).WithText("Push tests " + string(run.Status))
	for _, s := range run.Steps {
		if s.Error != nil {
			msg.WithLine("%s: %s (%s) %s", s.Name, s.Status, s.Duration.Round(time.Millisecond), *s.Error)
			continue
		}
		msg.WithLine("%s: %s (%s)", s.Name, s.Status, s.Duration.Round(time.Millisecond))
	}
	return msg.Build()
}
