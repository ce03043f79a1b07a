package telegram

import (
	"PushProbe/internal/bot/messages"
	"PushProbe/internal/core/ports"
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Router is the "Bot Facade." It holds all "plugins"
// and routes incoming updates to the correct handler.
type Router struct {
	log             zerolog.Logger
	botClient       ports.BotClientPort
	adminChatID     int64 // 0 means anyone may issue commands
	commandHandlers map[string]ports.CommandHandler
	order           []string
}

// NewRouter creates a new bot facade/router.
func NewRouter(
	botClient ports.BotClientPort,
	adminChatID int64,
	baseLogger *zerolog.Logger,
) *Router {
	return &Router{
		log:             baseLogger.With().Str("component", "tg_router").Logger(),
		botClient:       botClient,
		adminChatID:     adminChatID,
		commandHandlers: make(map[string]ports.CommandHandler),
	}
}

// RegisterCommandHandler adds a "plugin" to the router.
func (r *Router) RegisterCommandHandler(handler ports.CommandHandler) {
	cmd := handler.Command()
	if _, exists := r.commandHandlers[cmd]; !exists {
		r.order = append(r.order, cmd)
	}
	r.commandHandlers[cmd] = handler
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// Commands lists the registered commands in registration order.
func (r *Router) Commands() []ports.BotCommand {
	commands := make([]ports.BotCommand, 0, len(r.order))
	for _, cmd := range r.order {
		commands = append(commands, ports.BotCommand{
			Command:     cmd,
			Description: r.commandHandlers[cmd].Description(),
		})
	}
	return commands
}

// HandleUpdate is the main entry point for a new update from Telegram.
func (r *Router) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	// 1. Convert to our generic BotUpdate
	botUpdate, isSupported := r.parseUpdate(update)
	if !isSupported {
		r.log.Debug().Int("update_id", update.UpdateID).Msg("Received unsupported update type")
		return
	}

	// 2. Add logger context
	ctxLogger := r.log.With().
		Int64("user_id", botUpdate.UserID).
		Int64("chat_id", botUpdate.ChatID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	// 3. Only the admin chat may drive the probe
	if r.adminChatID != 0 && botUpdate.ChatID != r.adminChatID {
		ctxLogger.Warn().Msg("Rejected update from non-admin chat")
		r.reply(ctx, botUpdate.ChatID, "This bot is restricted to its admin chat.")
		return
	}

	// 4. Route commands
	if botUpdate.Command == "" {
		ctxLogger.Info().Str("text", botUpdate.Text).Msg("Received unhandled text message")
		r.reply(ctx, botUpdate.ChatID, "Send /help to list the available commands.")
		return
	}

	handler, ok := r.commandHandlers[botUpdate.Command]
	if !ok {
		ctxLogger.Info().Str("command", botUpdate.Command).Msg("Unknown command")
		r.reply(ctx, botUpdate.ChatID, "Unknown command. Send /help to list the available commands.")
		return
	}

	ctxLogger.Info().Str("handler", botUpdate.Command).Msg("Routing to command handler")
	if err := handler.Handle(ctx, botUpdate); err != nil {
		ctxLogger.Error().Err(err).Msg("Command handler failed")
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	msg := messages.NewBuilder(chatID).WithText(text).Build()
	if _, err := r.botClient.SendMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

// parseUpdate converts a tgbotapi.Update into our internal, simplified struct.
func (r *Router) parseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}

	botUpdate := &ports.BotUpdate{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
		Command:   msg.Command(),
	}
	if msg.From != nil {
		botUpdate.UserID = msg.From.ID
	}
	return botUpdate, true
}
