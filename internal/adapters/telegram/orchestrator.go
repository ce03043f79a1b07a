package telegram

import (
	"PushProbe/internal/bot"
	_ "PushProbe/internal/bot/handlers" // registers the command handlers
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"
	"PushProbe/internal/shared/config"
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Orchestrator wires and runs the control bot.
type Orchestrator struct {
	cfg        *config.Config
	console    *probe.Console
	bus        ports.EventBus
	baseLogger *zerolog.Logger
}

// NewOrchestrator creates a new bot orchestrator.
func NewOrchestrator(
	cfg *config.Config,
	console *probe.Console,
	bus ports.EventBus,
	baseLogger *zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		console:    console,
		bus:        bus,
		baseLogger: baseLogger,
	}
}

// Start connects the bot and serves updates until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	log := o.baseLogger.With().Str("bot", "control").Logger()
	cfg := &o.cfg.Bot

	// 1. Create API
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("connect bot api: %w", err)
	}
	api.Debug = o.cfg.AppEnv == "dev"
	log.Info().Str("username", api.Self.UserName).Msg("Bot API connected")

	// 2. Create Client (Adapter)
	client := NewClient(api, &log)

	// 3. Create Router and register handlers
	router := NewRouter(client, cfg.AdminChatID, &log)
	bot.RegisterAllHandlers(router, o.console, client, &log)

	// 4. Set Menu
	if err := client.SetMenuCommands(ctx, router.Commands()); err != nil {
		log.Warn().Err(err).Msg("Continuing without a bot menu")
	}

	// 5. Mirror push activity into the admin chat
	if cfg.AdminChatID != 0 {
		SubscribePushFeed(client, cfg.AdminChatID, o.bus, &log)
	}

	// 6. Create and Start Server
	server := NewBotServer(api, router, &cfg.Connection, &log)
	return server.Start(ctx)
}
