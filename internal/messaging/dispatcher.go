package messaging

import (
	"context"
	"fmt"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/speech"
)

// DefaultEmailSubject is used for engine-driven email sends; templates carry
// no subject of their own.
const DefaultEmailSubject = "Notification from Unified AI Command Centre"

// Dispatcher routes a rendered message to the sender for its channel. For the
// voice channel it synthesizes audio first; a synthesis failure aborts the
// dispatch before any send. The dispatcher itself writes no logs; the caller
// persists the returned payload together with the outcome.
type Dispatcher struct {
	text  TextSender
	voice VoiceSender
	email EmailSender
	synth speech.Synthesizer
}

func NewDispatcher(text TextSender, voice VoiceSender, email EmailSender, synth speech.Synthesizer) *Dispatcher {
	return &Dispatcher{text: text, voice: voice, email: email, synth: synth}
}

// Dispatch sends text to the user over the given channel. It returns the
// provider message id and the payload that was (or would have been)
// delivered; the payload is valid even when err is non-nil so the caller can
// record the failed attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, channel models.Channel, user models.User, text string) (string, models.Payload, error) {
	switch channel {
	case models.ChannelWhatsAppText:
		payload := models.Payload{Text: text}
		providerID, err := d.text.SendText(ctx, user.PhoneNumber, text)
		return providerID, payload, err

	case models.ChannelWhatsAppVoice:
		payload := models.Payload{Text: text}
		audioRef, err := d.synth.Synthesize(ctx, text, user.PreferredLanguage)
		if err != nil {
			return "", payload, &SynthesisError{Err: err}
		}
		payload.AudioRef = audioRef
		providerID, err := d.voice.SendVoice(ctx, user.PhoneNumber, audioRef)
		return providerID, payload, err

	case models.ChannelEmail:
		payload := models.Payload{Subject: DefaultEmailSubject, Text: text}
		if user.Email == "" {
			return "", payload, fmt.Errorf("user %d has no email address: %w", user.ID, models.ErrMissingContact)
		}
		providerID, err := d.email.SendEmail(ctx, user.Email, DefaultEmailSubject, text)
		return providerID, payload, err

	default:
		return "", models.Payload{}, fmt.Errorf("unknown channel %q: %w", channel, models.ErrDataIntegrity)
	}
}
