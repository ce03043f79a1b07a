package ports

import (
	"context"
)

// --- Bot Message Structures ---

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "MarkdownV2" or "HTML"
}

// BotCommand is one entry of the bot menu.
type BotCommand struct {
	Command     string
	Description string
}

// --- Bot Client Port (Outbound) ---

// BotClientPort defines the interface for *sending* messages.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) (int, error)
	SetMenuCommands(ctx context.Context, commands []BotCommand) error
}

// --- Bot Handler Port (Inbound) ---

// BotUpdate represents a simplified, generic update.
type BotUpdate struct {
	MessageID int
	ChatID    int64
	UserID    int64
	Text      string
	Command   string
}

// CommandHandler defines the "plugin" interface for handling bot commands.
type CommandHandler interface {
	// Command returns the command string without the "/" (e.g., "activate")
	Command() string
	// Description is shown in the bot menu.
	Description() string
	// Handle processes the update.
	Handle(ctx context.Context, update *BotUpdate) error
}
