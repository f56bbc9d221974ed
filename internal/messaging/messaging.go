// Package messaging sends outbound text messages through a provider.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapponejosh/readingplan-bot/internal/config"
)

// Sender delivers one text message to one recipient and returns the
// provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// channelPrefixes are the address prefixes providers put in front of a
// sender's number, e.g. "whatsapp:+254700123456".
var channelPrefixes = []string{"whatsapp:", "sms:", "telegram:"}

// NormalizeAddress strips whitespace and a channel prefix so the same
// person always maps to the same user id.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	lower := strings.ToLower(addr)
	for _, p := range channelPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(addr[len(p):])
		}
	}
	return addr
}

// New builds the Sender selected by cfg.MessagingProvider.
func New(cfg *config.Config, logger *slog.Logger) (Sender, error) {
	switch cfg.MessagingProvider {
	case config.ProviderTwilio:
		return NewTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, cfg.TwilioChannel), nil
	case config.ProviderTelegram:
		return NewTelegramSender(cfg.TelegramToken)
	case config.ProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown messaging provider: %s", cfg.MessagingProvider)
	}
}
