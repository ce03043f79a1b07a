package messages

import (
	"PushProbe/internal/core/ports"
	"fmt"
	"strings"
)

// Builder helps construct SendMessageParams.
type Builder struct {
	params ports.SendMessageParams
	lines  []string
}

// NewBuilder creates a new plain-text message builder.
func NewBuilder(chatID int64) *Builder {
	return &Builder{
		params: ports.SendMessageParams{ChatID: chatID},
	}
}

// WithText sets the first line of the message.
func (b *Builder) WithText(text string) *Builder {
	b.lines = append(b.lines[:0], text)
	return b
}

// WithLine appends a formatted line.
func (b *Builder) WithLine(format string, args ...any) *Builder {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
	return b
}

// WithParseMode overrides the default (plain) parse mode.
func (b *Builder) WithParseMode(mode string) *Builder {
	b.params.ParseMode = mode
	return b
}

// Build returns the final SendMessageParams struct.
func (b *Builder) Build() ports.SendMessageParams {
	params := b.params
	params.Text = strings.Join(b.lines, "\n")
	return params
}
