package messaging

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramAPI is the part of the bot client used here.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender sends messages to Telegram chats. Recipients are chat ids.
type TelegramSender struct {
	api telegramAPI
}

// NewTelegramSender connects to the Bot API with token.
func NewTelegramSender(token string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	return &TelegramSender{api: api}, nil
}

// Send delivers body to the chat named by to.
func (s *TelegramSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	chatID, err := strconv.ParseInt(NormalizeAddress(to), 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram recipient %q is not a chat id", to)
	}

	msg := tgbotapi.NewMessage(chatID, body)
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := s.api.Send(msg)
	if err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}

	return strconv.Itoa(sent.MessageID), nil
}
