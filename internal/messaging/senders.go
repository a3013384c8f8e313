// Package messaging delivers rendered messages over WhatsApp text, WhatsApp
// voice, and email. Concrete senders wrap Twilio and AWS SES; the Dispatcher
// routes a rendered message to the right sender for its channel and handles
// voice synthesis. Mock senders back tests and credential-less deployments.
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/util"
)

// TextSender delivers a WhatsApp text message and returns the provider
// message id.
type TextSender interface {
	SendText(ctx context.Context, phone, text string) (string, error)
}

// VoiceSender delivers a WhatsApp voice message referencing synthesized audio.
type VoiceSender interface {
	SendVoice(ctx context.Context, phone, audioRef string) (string, error)
}

// EmailSender delivers an email.
type EmailSender interface {
	SendEmail(ctx context.Context, email, subject, text string) (string, error)
}

// SendError wraps a provider failure with the channel and recipient that
// triggered it.
type SendError struct {
	Channel   string
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send over %s to %s failed: %v", e.Channel, e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// SynthesisError marks a voice dispatch that failed before any send was
// attempted.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("voice synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// SentMessage records one mock delivery.
type SentMessage struct {
	Recipient string
	Text      string
	AudioRef  string
	Subject   string
}

// MockSender implements all three sender interfaces, recording calls. When
// Err is set every send fails with it.
type MockSender struct {
	mu   sync.Mutex
	Err  error
	Sent []SentMessage
}

var (
	_ TextSender  = (*MockSender)(nil)
	_ VoiceSender = (*MockSender)(nil)
	_ EmailSender = (*MockSender)(nil)
)

func (m *MockSender) SendText(_ context.Context, phone, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, SentMessage{Recipient: phone, Text: text})
	return util.GenerateMockProviderID("whatsapp-text"), nil
}

func (m *MockSender) SendVoice(_ context.Context, phone, audioRef string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, SentMessage{Recipient: phone, AudioRef: audioRef})
	return util.GenerateMockProviderID("whatsapp-voice"), nil
}

func (m *MockSender) SendEmail(_ context.Context, email, subject, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, SentMessage{Recipient: email, Subject: subject, Text: text})
	return util.GenerateMockProviderID("email"), nil
}

// Messages returns a copy of the recorded deliveries.
func (m *MockSender) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}
