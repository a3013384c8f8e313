package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/speech"
)

func newTestDispatcher() (*Dispatcher, *MockSender, *speech.MockSynthesizer) {
	sender := &MockSender{}
	synth := &speech.MockSynthesizer{}
	return NewDispatcher(sender, sender, sender, synth), sender, synth
}

func TestDispatchText(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	user := models.User{ID: 1, PhoneNumber: "+1111", PreferredLanguage: "en"}

	providerID, payload, err := d.Dispatch(context.Background(), models.ChannelWhatsAppText, user, "hello")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !strings.HasPrefix(providerID, "mock-whatsapp-text-") {
		t.Errorf("provider id = %q", providerID)
	}
	if payload.Text != "hello" || payload.AudioRef != "" || payload.Subject != "" {
		t.Errorf("payload = %+v", payload)
	}
	msgs := sender.Messages()
	if len(msgs) != 1 || msgs[0].Recipient != "+1111" || msgs[0].Text != "hello" {
		t.Errorf("sent = %+v", msgs)
	}
}

func TestDispatchVoice(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	user := models.User{ID: 1, PhoneNumber: "+1111", PreferredLanguage: "hi"}

	providerID, payload, err := d.Dispatch(context.Background(), models.ChannelWhatsAppVoice, user, "namaste")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if providerID == "" {
		t.Error("expected provider id")
	}
	if payload.AudioRef == "" {
		t.Errorf("payload missing audio ref: %+v", payload)
	}
	msgs := sender.Messages()
	if len(msgs) != 1 || msgs[0].AudioRef != payload.AudioRef {
		t.Errorf("sent = %+v", msgs)
	}
}

func TestDispatchVoiceSynthesisFailure(t *testing.T) {
	d, sender, synth := newTestDispatcher()
	synth.Err = errors.New("tts unavailable")
	user := models.User{ID: 1, PhoneNumber: "+1111", PreferredLanguage: "en"}

	_, payload, err := d.Dispatch(context.Background(), models.ChannelWhatsAppVoice, user, "hello")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
	if payload.Text != "hello" {
		t.Errorf("payload = %+v", payload)
	}
	if len(sender.Messages()) != 0 {
		t.Error("send must not be attempted after synthesis failure")
	}
}

func TestDispatchEmail(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	user := models.User{ID: 1, PhoneNumber: "+1111", Email: "a@b.test"}

	_, payload, err := d.Dispatch(context.Background(), models.ChannelEmail, user, "salary due")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if payload.Subject != DefaultEmailSubject {
		t.Errorf("subject = %q", payload.Subject)
	}
	msgs := sender.Messages()
	if len(msgs) != 1 || msgs[0].Recipient != "a@b.test" || msgs[0].Subject != DefaultEmailSubject {
		t.Errorf("sent = %+v", msgs)
	}
}

func TestDispatchEmailMissingAddress(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	user := models.User{ID: 7, PhoneNumber: "+1111"}

	_, _, err := d.Dispatch(context.Background(), models.ChannelEmail, user, "salary due")
	if !errors.Is(err, models.ErrMissingContact) {
		t.Fatalf("error = %v, want ErrMissingContact", err)
	}
	if len(sender.Messages()) != 0 {
		t.Error("send must not be attempted without an address")
	}
}

func TestDispatchUnknownChannel(t *testing.T) {
	d, _, _ := newTestDispatcher()
	_, _, err := d.Dispatch(context.Background(), models.Channel("CARRIER_PIGEON"), models.User{ID: 1}, "hi")
	if !errors.Is(err, models.ErrDataIntegrity) {
		t.Fatalf("error = %v, want ErrDataIntegrity", err)
	}
}

func TestSendErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := &SendError{Channel: "EMAIL", Recipient: "a@b.test", Err: base}
	if !errors.Is(err, base) {
		t.Error("SendError should unwrap to its cause")
	}
}
