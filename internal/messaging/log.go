package messaging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender writes messages to the log instead of sending them.
// Used in development when no provider credentials are configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a dry-run sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and returns a generated id.
func (s *LogSender) Send(ctx context.Context, to, body string) (string, error) {
	id := "log-" + uuid.NewString()
	s.logger.InfoContext(ctx, "message not sent (log provider)",
		slog.String("to", to),
		slog.String("id", id),
		slog.String("body", body),
	)
	return id, nil
}
