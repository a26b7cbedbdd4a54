// Package notify delivers formatted alerts to the configured messaging channel.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier is the interface for alert delivery backends.
type Notifier interface {
	// Send delivers one formatted message. Markup is Telegram-style Markdown.
	Send(ctx context.Context, text string) error
}

// Log is a development backend that writes alerts to the logger.
type Log struct {
	log zerolog.Logger
}

// NewLog creates a log-backed notifier.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

func (n *Log) Send(_ context.Context, text string) error {
	n.log.Info().Str("alert", text).Msg("notify")
	return nil
}
