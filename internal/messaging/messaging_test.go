package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/zapponejosh/readingplan-bot/internal/config"
	"github.com/zapponejosh/readingplan-bot/internal/logger"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"whatsapp:+254700123456", "+254700123456"},
		{"WhatsApp:+254700123456", "+254700123456"},
		{"  whatsapp: +254700123456 ", "+254700123456"},
		{"sms:+15551234567", "+15551234567"},
		{"telegram:12345", "12345"},
		{"+254700123456", "+254700123456"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAddress(tt.in); got != tt.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// -----------------------------------------------------------------
// Twilio
// -----------------------------------------------------------------

type fakeTwilio struct {
	params []*twilioApi.CreateMessageParams
	sid    *string
	err    error
}

func (f *fakeTwilio) CreateMessage(p *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return &twilioApi.ApiV2010Message{Sid: f.sid}, nil
}

func TestTwilioSender_WhatsApp(t *testing.T) {
	sid := "SM123"
	api := &fakeTwilio{sid: &sid}
	s := newTwilioSender(api, "+14155238886", "")

	id, err := s.Send(context.Background(), "+254700123456", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "SM123" {
		t.Errorf("Send() id = %q, want SM123", id)
	}

	p := api.params[0]
	if *p.From != "whatsapp:+14155238886" {
		t.Errorf("From = %q", *p.From)
	}
	if *p.To != "whatsapp:+254700123456" {
		t.Errorf("To = %q", *p.To)
	}
	if *p.Body != "hello" {
		t.Errorf("Body = %q", *p.Body)
	}
}

func TestTwilioSender_PrefixedRecipientNotDoubled(t *testing.T) {
	sid := "SM1"
	api := &fakeTwilio{sid: &sid}
	s := newTwilioSender(api, "whatsapp:+14155238886", "whatsapp")

	if _, err := s.Send(context.Background(), "whatsapp:+254700123456", "x"); err != nil {
		t.Fatal(err)
	}
	if got := *api.params[0].To; got != "whatsapp:+254700123456" {
		t.Errorf("To = %q", got)
	}
	if got := *api.params[0].From; got != "whatsapp:+14155238886" {
		t.Errorf("From = %q", got)
	}
}

func TestTwilioSender_SMS(t *testing.T) {
	sid := "SM1"
	api := &fakeTwilio{sid: &sid}
	s := newTwilioSender(api, "+15550000000", "sms")

	if _, err := s.Send(context.Background(), "+15551111111", "x"); err != nil {
		t.Fatal(err)
	}
	if got := *api.params[0].To; got != "+15551111111" {
		t.Errorf("To = %q, want bare number", got)
	}
}

func TestTwilioSender_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		s := newTwilioSender(&fakeTwilio{err: errors.New("unreachable")}, "+1", "whatsapp")
		_, err := s.Send(context.Background(), "+2", "x")
		if err == nil || !strings.Contains(err.Error(), "unreachable") {
			t.Errorf("Send() error = %v, want wrapped provider error", err)
		}
	})

	t.Run("missing sid", func(t *testing.T) {
		s := newTwilioSender(&fakeTwilio{}, "+1", "whatsapp")
		if _, err := s.Send(context.Background(), "+2", "x"); err == nil {
			t.Error("Send() error = nil, want error")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		api := &fakeTwilio{}
		s := newTwilioSender(api, "+1", "whatsapp")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Send(ctx, "+2", "x"); !errors.Is(err, context.Canceled) {
			t.Errorf("Send() error = %v, want context.Canceled", err)
		}
		if len(api.params) != 0 {
			t.Error("CreateMessage called after cancel")
		}
	})
}

// -----------------------------------------------------------------
// Telegram
// -----------------------------------------------------------------

type fakeTelegram struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: 42}, nil
}

func TestTelegramSender(t *testing.T) {
	api := &fakeTelegram{}
	s := &TelegramSender{api: api}

	id, err := s.Send(context.Background(), "telegram:123456", "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "42" {
		t.Errorf("Send() id = %q, want 42", id)
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	if api.sent[0].ChatID != 123456 || api.sent[0].Text != "hello" {
		t.Errorf("sent = %+v", api.sent[0])
	}
}

func TestTelegramSender_Errors(t *testing.T) {
	s := &TelegramSender{api: &fakeTelegram{}}
	if _, err := s.Send(context.Background(), "+254700123456", "x"); err == nil {
		t.Error("Send() to phone number error = nil, want error")
	}

	s = &TelegramSender{api: &fakeTelegram{err: errors.New("blocked")}}
	if _, err := s.Send(context.Background(), "99", "x"); err == nil {
		t.Error("Send() error = nil, want error")
	}
}

// -----------------------------------------------------------------
// Log sender and provider selection
// -----------------------------------------------------------------

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := NewLogSender(logger.New(&buf, "info", "text"))

	id, err := s.Send(context.Background(), "+1555", "📖 Day 1")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.HasPrefix(id, "log-") {
		t.Errorf("id = %q, want log- prefix", id)
	}
	if !strings.Contains(buf.String(), "+1555") {
		t.Errorf("log output missing recipient: %s", buf.String())
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr bool
	}{
		{"log", config.Config{MessagingProvider: config.ProviderLog}, "*messaging.LogSender", false},
		{"twilio", config.Config{MessagingProvider: config.ProviderTwilio, TwilioSID: "AC1", TwilioToken: "t", TwilioFrom: "+1"}, "*messaging.TwilioSender", false},
		{"unknown", config.Config{MessagingProvider: "pigeon"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&tt.cfg, slog.Default())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch s.(type) {
			case *LogSender:
				if tt.want != "*messaging.LogSender" {
					t.Errorf("New() = %T, want %s", s, tt.want)
				}
			case *TwilioSender:
				if tt.want != "*messaging.TwilioSender" {
					t.Errorf("New() = %T, want %s", s, tt.want)
				}
			default:
				t.Errorf("New() = %T", s)
			}
		})
	}
}
