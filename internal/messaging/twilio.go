package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the part of the Twilio REST client used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender sends messages through Twilio's Messages API.
type TwilioSender struct {
	api     messageCreator
	from    string
	channel string // whatsapp or sms
}

// NewTwilioSender creates a sender for the given account.
// from is the bare sender number; the channel prefix is added per message.
func NewTwilioSender(accountSID, authToken, from, channel string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, from, channel)
}

func newTwilioSender(api messageCreator, from, channel string) *TwilioSender {
	if channel == "" {
		channel = "whatsapp"
	}
	return &TwilioSender{api: api, from: from, channel: channel}
}

// Send delivers body to the recipient number. The Twilio client has no
// context support; ctx is only checked before the call.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.address(s.from))
	params.SetTo(s.address(to))
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio create message: %w", err)
	}
	if msg == nil || msg.Sid == nil {
		return "", errors.New("twilio create message: response has no sid")
	}

	return *msg.Sid, nil
}

// address prefixes a number with the channel ("whatsapp:+1555...").
// SMS numbers are sent bare.
func (s *TwilioSender) address(number string) string {
	number = NormalizeAddress(number)
	if s.channel == "sms" {
		return number
	}
	return s.channel + ":" + number
}
