// Package bot answers inbound commands and sends the daily reading.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapponejosh/readingplan-bot/internal/messaging"
)

// Command is a recognized inbound command.
type Command int

const (
	CommandHelp Command = iota // anything unrecognized, including empty text
	CommandRead
	CommandStats
	CommandRemind
)

func (c Command) String() string {
	switch c {
	case CommandRead:
		return "READ"
	case CommandStats:
		return "STATS"
	case CommandRemind:
		return "REMIND"
	default:
		return "HELP"
	}
}

// ParseCommand maps free text to a Command. Matching ignores case and
// surrounding whitespace; every input maps to exactly one Command.
func ParseCommand(text string) Command {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "READ":
		return CommandRead
	case "STATS":
		return CommandStats
	case "REMIND":
		return CommandRemind
	default:
		return CommandHelp
	}
}

// Replies sent back to the user.
const (
	ReplyRead   = "✅ Marked today's reading as complete."
	ReplyRemind = "⏰ Reminder set for 8 PM!"
	ReplyHelp   = "🤖 Commands:\nREAD – Mark today's reading\nSTATS – Check progress\nREMIND – Set reminder"
)

// StatsReply reports the number of completed days.
func StatsReply(days int) string {
	return fmt.Sprintf("📊 You’ve completed %d days!", days)
}

// ProgressStore persists completed-day counters per user.
type ProgressStore interface {
	// IncrementProgress adds one completed day, creating the user at 1,
	// and returns the new count.
	IncrementProgress(ctx context.Context, userID string) (int, error)
	// GetProgress returns the count, or 0 for an unknown user.
	GetProgress(ctx context.Context, userID string) (int, error)
}

// Reply is the outcome of one inbound message.
type Reply struct {
	Command Command
	UserID  string
	Message string
}

// CommandHandler executes inbound commands against the progress store.
type CommandHandler struct {
	store  ProgressStore
	logger *slog.Logger
}

// NewCommandHandler creates a handler backed by store.
func NewCommandHandler(store ProgressStore, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{store: store, logger: logger}
}

// Handle runs the command in body for the sender from. Store failures
// are returned; unknown commands are answered with help text.
func (h *CommandHandler) Handle(ctx context.Context, from, body string) (Reply, error) {
	reply := Reply{
		Command: ParseCommand(body),
		UserID:  messaging.NormalizeAddress(from),
	}

	switch reply.Command {
	case CommandRead:
		if reply.UserID == "" {
			return reply, errors.New("read: missing sender")
		}
		days, err := h.store.IncrementProgress(ctx, reply.UserID)
		if err != nil {
			return reply, fmt.Errorf("read: %w", err)
		}
		h.logger.InfoContext(ctx, "reading marked complete",
			slog.String("user_id", reply.UserID),
			slog.Int("days_completed", days),
		)
		reply.Message = ReplyRead

	case CommandStats:
		days, err := h.store.GetProgress(ctx, reply.UserID)
		if err != nil {
			return reply, fmt.Errorf("stats: %w", err)
		}
		reply.Message = StatsReply(days)

	case CommandRemind:
		// Acknowledged only; no reminder job exists.
		reply.Message = ReplyRemind

	default:
		reply.Message = ReplyHelp
	}

	return reply, nil
}
