package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

func TestHandleInboundPaymentDone(t *testing.T) {
	f := newFixture()
	f.user(t, "+1111", "en")

	result, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber:       "+1111",
		Text:              "payment done",
		ProviderMessageID: "SM1",
	})
	if err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if result.Intent != models.IntentCompletion {
		t.Errorf("intent = %s, want COMPLETION", result.Intent)
	}
	if !result.ReplySent {
		t.Error("expected an automated reply")
	}

	msgs := f.sender.Messages()
	if len(msgs) != 1 || msgs[0].Text != "Thank you! Your payment has been recorded." {
		t.Fatalf("sent = %+v", msgs)
	}

	convs, _ := f.store.ListConversations(result.UserID)
	if len(convs) != 2 {
		t.Fatalf("got %d conversation rows, want inbound + outbound", len(convs))
	}
	var inbound, outbound int
	for _, c := range convs {
		switch c.Direction {
		case models.DirectionInbound:
			inbound++
		case models.DirectionOutbound:
			outbound++
		}
	}
	if inbound != 1 || outbound != 1 {
		t.Errorf("inbound = %d, outbound = %d", inbound, outbound)
	}

	notifications, _ := f.store.ListNotifications(result.UserID)
	if len(notifications) != 1 || notifications[0].Status != models.NotificationSent {
		t.Errorf("notifications = %+v", notifications)
	}
}

func TestHandleInboundOptOutDeactivatesUser(t *testing.T) {
	// Opt-out flips the user to INACTIVE and fails the workflow whatever the
	// detected language is.
	tests := []struct {
		name string
		text string
	}{
		{"english", "please unsubscribe me"},
		{"hindi", "aap mujhe message mat bhejo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			u := f.user(t, "+1111", "en")
			wf, _ := f.chain(t, 2)
			instance, _ := f.engine.StartInstance(context.Background(), u.ID, wf.ID)

			result, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{
				PhoneNumber: "+1111",
				Text:        tt.text,
			})
			if err != nil {
				t.Fatalf("HandleInbound failed: %v", err)
			}
			if result.Intent != models.IntentOptOut {
				t.Fatalf("intent = %s, want OPT_OUT", result.Intent)
			}
			if result.Outcome != models.OutcomeFailure {
				t.Errorf("outcome = %s, want FAILURE", result.Outcome)
			}
			if !result.OptedOut {
				t.Error("result should report the opt-out")
			}

			got, _ := f.store.GetUser(u.ID)
			if got.Status != models.UserStatusInactive {
				t.Errorf("user status = %s, want INACTIVE", got.Status)
			}
			inst, _ := f.store.GetWorkflowInstance(instance.ID)
			if inst.Status != models.WorkflowFailed {
				t.Errorf("instance status = %s, want FAILED", inst.Status)
			}
		})
	}
}

func TestHandleInboundGeneralQueryLeavesStepWaiting(t *testing.T) {
	f := newFixture()
	u := f.user(t, "+1111", "en")
	wf, steps := f.chain(t, 2)
	instance, _ := f.engine.StartInstance(context.Background(), u.ID, wf.ID)

	result, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber: "+1111",
		Text:        "when is my next shift",
	})
	if err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if result.Intent != models.IntentGeneralQuery || result.Outcome != models.OutcomeNone {
		t.Errorf("result = %+v", result)
	}
	if result.ReplySent {
		t.Error("general queries get no automated reply")
	}

	got, _ := f.store.GetWorkflowInstance(instance.ID)
	if got.Status != models.WorkflowInProgress || *got.CurrentStepID != steps[0].ID {
		t.Errorf("instance must be unchanged: %+v", got)
	}

	convs, _ := f.store.ListConversations(u.ID)
	if len(convs) != 1 || convs[0].Direction != models.DirectionInbound {
		t.Errorf("conversations = %+v", convs)
	}
}

func TestHandleInboundAdvancesOnExpectedIntent(t *testing.T) {
	f := newFixture()
	u := f.user(t, "+1111", "en")
	wf, steps := f.chain(t, 2)
	instance, _ := f.engine.StartInstance(context.Background(), u.ID, wf.ID)

	_, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber: "+1111",
		Text:        "payment done",
	})
	if err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}

	got, _ := f.store.GetWorkflowInstance(instance.ID)
	if got.CurrentStepID == nil || *got.CurrentStepID != steps[1].ID {
		t.Errorf("current step = %v, want %d", got.CurrentStepID, steps[1].ID)
	}
	if got.Status != models.WorkflowInProgress {
		t.Errorf("status = %s", got.Status)
	}
}

func TestHandleInboundDuplicateDelivery(t *testing.T) {
	f := newFixture()
	f.user(t, "+1111", "en")

	msg := models.InboundMessage{PhoneNumber: "+1111", Text: "payment done", ProviderMessageID: "SM9"}
	first, err := f.engine.HandleInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("first HandleInbound failed: %v", err)
	}
	second, err := f.engine.HandleInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("second HandleInbound failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("second delivery should be flagged as duplicate")
	}

	convs, _ := f.store.ListConversations(first.UserID)
	if len(convs) != 2 {
		t.Errorf("duplicate delivery must not add transcript rows, got %d", len(convs))
	}
	if len(f.sender.Messages()) != 1 {
		t.Errorf("duplicate delivery must not re-send the reply, got %d sends", len(f.sender.Messages()))
	}
}

func TestHandleInboundRetryAfterFailure(t *testing.T) {
	// A delivery that fails mid-pipeline never reaches MarkProcessed, so the
	// provider's retry of the same message id must be processed in full, not
	// swallowed as a duplicate.
	f := newFixture()
	u := f.user(t, "+1111", "en")
	f.trans.Transcript = "payment done"
	f.trans.Err = errors.New("whisper unavailable")

	msg := models.InboundMessage{PhoneNumber: "+1111", AudioRef: "media/in-7.ogg", ProviderMessageID: "SM7"}
	if _, err := f.engine.HandleInbound(context.Background(), msg); err == nil {
		t.Fatal("expected the first delivery to fail")
	}

	f.trans.Err = nil
	retry, err := f.engine.HandleInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if retry.Duplicate {
		t.Fatal("retry of a failed delivery must not be flagged as duplicate")
	}
	if retry.Intent != models.IntentCompletion || !retry.ReplySent {
		t.Errorf("retry result = %+v", retry)
	}

	convs, _ := f.store.ListConversations(u.ID)
	if len(convs) != 2 {
		t.Errorf("got %d conversation rows, want inbound + outbound", len(convs))
	}

	// Once the retry succeeded, a further replay is a duplicate again.
	replay, err := f.engine.HandleInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !replay.Duplicate {
		t.Error("replay after successful processing should be a duplicate")
	}
}

func TestHandleInboundVoiceTranscription(t *testing.T) {
	f := newFixture()
	u := f.user(t, "+1111", "en")
	f.trans.Transcript = "payment done"

	result, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber: "+1111",
		AudioRef:    "media/in-1.ogg",
	})
	if err != nil {
		t.Fatalf("HandleInbound failed: %v", err)
	}
	if result.Text != "payment done" || result.Intent != models.IntentCompletion {
		t.Errorf("result = %+v", result)
	}

	convs, _ := f.store.ListConversations(u.ID)
	var in *models.Conversation
	for i := range convs {
		if convs[i].Direction == models.DirectionInbound {
			in = &convs[i]
		}
	}
	if in == nil || in.Channel != models.ChannelWhatsAppVoice || in.AudioRef != "media/in-1.ogg" || in.MessageText != "payment done" {
		t.Errorf("inbound row = %+v", in)
	}
}

func TestHandleInboundValidation(t *testing.T) {
	f := newFixture()
	f.user(t, "+1111", "en")

	_, err := f.engine.HandleInbound(context.Background(), models.InboundMessage{PhoneNumber: "+1111"})
	if !errors.Is(err, models.ErrInvalidInbound) {
		t.Errorf("neither text nor audio: error = %v, want ErrInvalidInbound", err)
	}
	_, err = f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber: "+1111", Text: "hi", AudioRef: "a.ogg",
	})
	if !errors.Is(err, models.ErrInvalidInbound) {
		t.Errorf("both text and audio: error = %v, want ErrInvalidInbound", err)
	}
	_, err = f.engine.HandleInbound(context.Background(), models.InboundMessage{
		PhoneNumber: "+9999", Text: "hi",
	})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown phone: error = %v, want ErrNotFound", err)
	}
}
