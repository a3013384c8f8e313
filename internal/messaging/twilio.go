package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioOpts holds configuration options for the Twilio WhatsApp sender.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption configures the Twilio WhatsApp sender.
type TwilioOption func(*TwilioOpts)

func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioSender sends WhatsApp text and voice messages through the Twilio
// messaging API. Voice messages go out as media messages carrying the
// synthesized audio ref.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

var (
	_ TextSender  = (*TwilioSender)(nil)
	_ VoiceSender = (*TwilioSender)(nil)
)

// NewTwilioSender creates a Twilio-backed WhatsApp sender. Options fall back
// to the TWILIO_* environment variables.
func NewTwilioSender(opts ...TwilioOption) (*TwilioSender, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio sender config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: "whatsapp:" + cfg.FromNumber}, nil
}

func (t *TwilioSender) SendText(_ context.Context, phone, text string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + phone)
	params.SetFrom(t.from)
	params.SetBody(text)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioSender.SendText failed", "to", phone, "error", err)
		return "", &SendError{Channel: "WHATSAPP_TEXT", Recipient: phone, Err: err}
	}
	slog.Debug("TwilioSender.SendText sent", "to", phone, "sid_set", resp.Sid != nil)
	return sidOrEmpty(resp.Sid), nil
}

func (t *TwilioSender) SendVoice(_ context.Context, phone, audioRef string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + phone)
	params.SetFrom(t.from)
	params.SetMediaUrl([]string{audioRef})

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioSender.SendVoice failed", "to", phone, "error", err)
		return "", &SendError{Channel: "WHATSAPP_VOICE", Recipient: phone, Err: err}
	}
	slog.Debug("TwilioSender.SendVoice sent", "to", phone, "sid_set", resp.Sid != nil)
	return sidOrEmpty(resp.Sid), nil
}

func sidOrEmpty(sid *string) string {
	if sid == nil {
		return ""
	}
	return *sid
}
