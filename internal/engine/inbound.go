package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/classifier"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// InboundResult reports what HandleInbound did with one webhook delivery.
type InboundResult struct {
	UserID    int64              `json:"user_id"`
	Duplicate bool               `json:"duplicate,omitempty"`
	Text      string             `json:"text,omitempty"`
	Language  string             `json:"language,omitempty"`
	Intent    models.Intent      `json:"intent,omitempty"`
	Sentiment models.Sentiment   `json:"sentiment,omitempty"`
	ReplySent bool               `json:"reply_sent"`
	OptedOut  bool               `json:"opted_out,omitempty"`
	Outcome   models.StepOutcome `json:"outcome,omitempty"`
}

// HandleInbound processes one inbound WhatsApp message: dedup, transcription
// for voice, classification, transcript append, automated reply, and
// REPLY_BASED advancement of the user's active instances. A replayed
// ProviderMessageID is a no-op. Unknown phone numbers are ErrNotFound; the
// webhook boundary decides how to answer the provider.
func (e *Engine) HandleInbound(ctx context.Context, msg models.InboundMessage) (InboundResult, error) {
	if err := msg.Validate(); err != nil {
		return InboundResult{}, err
	}

	user, err := e.store.GetUserByPhone(msg.PhoneNumber)
	if err != nil {
		return InboundResult{}, fmt.Errorf("failed to load user by phone: %w", err)
	}
	if user == nil {
		return InboundResult{}, fmt.Errorf("no user with phone %s: %w", msg.PhoneNumber, models.ErrNotFound)
	}
	result := InboundResult{UserID: user.ID}

	// Replay protection keys off the provider message id. Deliveries without
	// one get a derived id so the dedup table stays uniform, but replays of
	// those cannot be detected. Only a fully processed id counts as a
	// duplicate: a delivery that failed mid-pipeline never reached
	// MarkProcessed, so the provider's retry of the same id must run again
	// rather than be swallowed.
	messageID := msg.ProviderMessageID
	if messageID == "" {
		messageID = "derived-" + uuid.NewString()
	}
	fresh, err := e.dedup.RecordInbound(messageID, user.ID)
	if err != nil {
		return result, fmt.Errorf("failed to record inbound message id: %w", err)
	}
	if !fresh {
		processed, err := e.dedup.IsDuplicate(messageID)
		if err != nil {
			return result, fmt.Errorf("failed to check inbound message id: %w", err)
		}
		if processed {
			slog.Info("Engine.HandleInbound: duplicate delivery ignored", "user_id", user.ID, "message_id", messageID)
			result.Duplicate = true
			return result, nil
		}
		slog.Info("Engine.HandleInbound: retrying delivery that previously failed", "user_id", user.ID, "message_id", messageID)
	}

	channel := models.ChannelWhatsAppText
	text := msg.Text
	if msg.AudioRef != "" {
		channel = models.ChannelWhatsAppVoice
		text, err = e.transcriber.Transcribe(ctx, msg.AudioRef)
		if err != nil {
			return result, fmt.Errorf("failed to transcribe inbound audio: %w", err)
		}
	}
	result.Text = text

	c, err := e.classifier.Classify(ctx, text)
	if err != nil {
		// A classifier outage must not drop the message; fall back to the
		// neutral defaults and keep the transcript complete.
		slog.Warn("Engine.HandleInbound: classification failed, using defaults", "user_id", user.ID, "error", err)
		c = classifier.Classification{
			Language:  models.DefaultLanguage,
			Intent:    models.IntentGeneralQuery,
			Sentiment: models.SentimentNeutral,
		}
	}
	result.Language = c.Language
	result.Intent = c.Intent
	result.Sentiment = c.Sentiment

	_, err = e.store.AddConversation(models.Conversation{
		UserID:      user.ID,
		Direction:   models.DirectionInbound,
		Channel:     channel,
		MessageText: text,
		AudioRef:    msg.AudioRef,
		Language:    c.Language,
		Intent:      c.Intent,
		Sentiment:   c.Sentiment,
	})
	if err != nil {
		return result, fmt.Errorf("failed to record inbound conversation: %w", err)
	}

	decision := DecideReply(c.Intent, c.Language)
	result.Outcome = decision.Outcome

	if decision.OptOut {
		user.Status = models.UserStatusInactive
		if err := e.store.SaveUser(*user); err != nil {
			return result, fmt.Errorf("failed to deactivate user %d: %w", user.ID, err)
		}
		result.OptedOut = true
		slog.Info("Engine.HandleInbound: user opted out", "user_id", user.ID)
	}

	if decision.ReplyText != "" {
		n, err := e.dispatchOutbound(ctx, *user, models.ChannelWhatsAppText, decision.ReplyText, nil, nil)
		if err != nil {
			return result, err
		}
		result.ReplySent = n.Status == models.NotificationSent
	}

	if err := e.advanceReplyBased(ctx, user.ID, c.Intent, decision.Outcome); err != nil {
		return result, err
	}

	if err := e.dedup.MarkProcessed(messageID); err != nil {
		slog.Warn("Engine.HandleInbound: failed to mark message processed", "message_id", messageID, "error", err)
	}
	slog.Info("Engine.HandleInbound: inbound handled", "user_id", user.ID, "intent", c.Intent, "language", c.Language, "outcome", decision.Outcome)
	return result, nil
}

// advanceReplyBased applies a classified reply to the user's IN_PROGRESS
// instances that are waiting on a REPLY_BASED step. A matching expected
// intent advances on SUCCESS; an opt-out fails the workflow; anything else
// leaves the step waiting. Per-instance failures are isolated.
func (e *Engine) advanceReplyBased(ctx context.Context, userID int64, intent models.Intent, policyOutcome models.StepOutcome) error {
	instances, err := e.store.ListActiveWorkflowInstancesByUser(userID)
	if err != nil {
		return fmt.Errorf("failed to list active instances for user %d: %w", userID, err)
	}
	for _, instance := range instances {
		if instance.CurrentStepID == nil {
			continue
		}
		step, err := e.store.GetWorkflowStep(*instance.CurrentStepID)
		if err != nil || step == nil || step.TriggerType != models.TriggerReplyBased {
			if err != nil {
				slog.Error("Engine.advanceReplyBased: failed to load step", "instance_id", instance.ID, "error", err)
			}
			continue
		}

		outcome := models.OutcomeNone
		switch {
		case policyOutcome == models.OutcomeFailure:
			outcome = models.OutcomeFailure
		case step.ExpectedIntent != "" && step.ExpectedIntent == intent:
			outcome = models.OutcomeSuccess
		}
		if outcome == models.OutcomeNone {
			continue
		}
		if err := e.Advance(ctx, instance.ID, outcome); err != nil {
			slog.Error("Engine.advanceReplyBased: advance failed", "instance_id", instance.ID, "outcome", outcome, "error", err)
		}
	}
	return nil
}
