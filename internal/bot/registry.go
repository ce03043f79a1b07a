package bot

import (
	"PushProbe/internal/core/ports"
	"PushProbe/internal/core/probe"

	"github.com/rs/zerolog"
)

// CommandHandlerConstructor builds a handler from the shared dependencies.
type CommandHandlerConstructor func(*probe.Console, ports.BotClientPort, *zerolog.Logger) ports.CommandHandler

// Registrar receives the built handlers.
type Registrar interface {
	RegisterCommandHandler(handler ports.CommandHandler)
	Commands() []ports.BotCommand
}

var commandRegistry []CommandHandlerConstructor

// RegisterCommand is called by handlers in their init() function
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterAllHandlers builds every registered handler and passes it to the router.
func RegisterAllHandlers(
	router Registrar,
	console *probe.Console,
	botClient ports.BotClientPort,
	baseLogger *zerolog.Logger,
) {
	log := baseLogger.With().Str("component", "handler_registry").Logger()

	for _, constructor := range commandRegistry {
		router.RegisterCommandHandler(constructor(console, botClient, baseLogger))
	}
	log.Info().Int("commands", len(commandRegistry)).Msg("Registered command handlers")
}
