// Package engine orchestrates workflow advancement, templated multi-channel
// dispatch, and inbound reply handling. It is the only component that mutates
// WorkflowInstance state, serialized per instance id; all persistence goes
// through an injected store handle.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/classifier"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/messaging"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/speech"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/store"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/template"
)

// Engine drives the notification workflows.
type Engine struct {
	store       store.Store
	dedup       store.DedupRepo
	dispatcher  *messaging.Dispatcher
	classifier  classifier.Classifier
	transcriber speech.Transcriber
	locks       *instanceLocks
}

func New(st store.Store, dedup store.DedupRepo, dispatcher *messaging.Dispatcher, cl classifier.Classifier, tr speech.Transcriber) *Engine {
	return &Engine{
		store:       st,
		dedup:       dedup,
		dispatcher:  dispatcher,
		classifier:  cl,
		transcriber: tr,
		locks:       newInstanceLocks(),
	}
}

// dispatchOutbound sends rendered text to a user and persists the attempt: a
// Notification row always, an OUTBOUND Conversation row only when the send
// succeeded (an unsent message must not appear in the transcript). Returns
// the persisted notification; the send error, if any, is folded into its
// status rather than returned.
func (e *Engine) dispatchOutbound(ctx context.Context, user models.User, channel models.Channel, text string, templateID, instanceID *int64) (models.Notification, error) {
	providerID, payload, sendErr := e.dispatcher.Dispatch(ctx, channel, user, text)

	n := models.Notification{
		UserID:             user.ID,
		WorkflowInstanceID: instanceID,
		Channel:            channel,
		TemplateID:         templateID,
		Payload:            payload,
		Status:             models.NotificationSent,
		ProviderMessageID:  providerID,
	}
	if sendErr != nil {
		n.Status = models.NotificationFailed
		n.ErrorMessage = sendErr.Error()
		slog.Warn("Engine.dispatchOutbound: dispatch failed", "user_id", user.ID, "channel", channel, "error", sendErr)
	}
	n, err := e.store.AddNotification(n)
	if err != nil {
		return n, fmt.Errorf("failed to record notification for user %d: %w", user.ID, err)
	}

	if sendErr == nil {
		_, err = e.store.AddConversation(models.Conversation{
			UserID:      user.ID,
			Direction:   models.DirectionOutbound,
			Channel:     channel,
			MessageText: text,
			AudioRef:    payload.AudioRef,
			Language:    user.PreferredLanguage,
		})
		if err != nil {
			return n, fmt.Errorf("failed to record outbound conversation for user %d: %w", user.ID, err)
		}
	}
	return n, nil
}

// SendNotification renders templateID for each target user and dispatches it
// over channel. Unknown users are skipped with a warning; per-user send
// failures are recorded as FAILED notifications and reported in the result,
// never aborting the batch. A missing template aborts the whole call.
func (e *Engine) SendNotification(ctx context.Context, channel models.Channel, userIDs []int64, templateID int64, vars map[string]string) ([]models.SendResult, error) {
	tpl, err := e.store.GetTemplate(templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", templateID, err)
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %d: %w", templateID, models.ErrNotFound)
	}
	if channel == "" {
		channel = tpl.Channel
	}

	results := make([]models.SendResult, 0, len(userIDs))
	for _, userID := range userIDs {
		user, err := e.store.GetUser(userID)
		if err != nil {
			return results, fmt.Errorf("failed to load user %d: %w", userID, err)
		}
		if user == nil {
			slog.Warn("Engine.SendNotification: user not found, skipping", "user_id", userID)
			continue
		}

		text := template.Render(tpl.Body, withName(vars, user.Name))
		n, err := e.dispatchOutbound(ctx, *user, channel, text, &tpl.ID, nil)
		if err != nil {
			return results, err
		}
		results = append(results, models.SendResult{
			UserID:         user.ID,
			NotificationID: n.ID,
			Status:         n.Status,
			Error:          n.ErrorMessage,
		})
	}
	slog.Info("Engine.SendNotification: batch complete", "template_id", templateID, "targets", len(userIDs), "sent", len(results))
	return results, nil
}

// DispatchStep renders and sends the current step's template for an
// instance. Steps without a template are a silent pass-through (pure wait
// steps). The step snapshot is taken under the instance lock; the network
// send happens outside it.
func (e *Engine) DispatchStep(ctx context.Context, instanceID int64, vars map[string]string) error {
	lock := e.locks.get(instanceID)
	lock.Lock()
	instance, step, err := e.loadCurrentStep(instanceID)
	lock.Unlock()
	if err != nil || step == nil || step.TemplateID == nil {
		return err
	}

	user, err := e.store.GetUser(instance.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", instance.UserID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", instance.UserID, models.ErrNotFound)
	}
	tpl, err := e.store.GetTemplate(*step.TemplateID)
	if err != nil {
		return fmt.Errorf("failed to load template %d: %w", *step.TemplateID, err)
	}
	if tpl == nil {
		return fmt.Errorf("template %d: %w", *step.TemplateID, models.ErrNotFound)
	}

	text := template.Render(tpl.Body, withName(vars, user.Name))
	n, err := e.dispatchOutbound(ctx, *user, tpl.Channel, text, &tpl.ID, &instance.ID)
	if err != nil {
		return err
	}
	slog.Debug("Engine.DispatchStep: step dispatched", "instance_id", instanceID, "step_id", step.ID, "notification_id", n.ID, "status", n.Status)
	return nil
}

// loadCurrentStep fetches an instance and its current step. A nil step with
// nil error means the instance is terminal or waiting without a step.
func (e *Engine) loadCurrentStep(instanceID int64) (*models.WorkflowInstance, *models.WorkflowStep, error) {
	instance, err := e.store.GetWorkflowInstance(instanceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow instance %d: %w", instanceID, err)
	}
	if instance == nil {
		return nil, nil, fmt.Errorf("workflow instance %d: %w", instanceID, models.ErrNotFound)
	}
	if instance.CurrentStepID == nil {
		return instance, nil, nil
	}
	step, err := e.store.GetWorkflowStep(*instance.CurrentStepID)
	if err != nil {
		return instance, nil, fmt.Errorf("failed to load workflow step %d: %w", *instance.CurrentStepID, err)
	}
	if step == nil {
		return instance, nil, fmt.Errorf("workflow step %d: %w", *instance.CurrentStepID, models.ErrNotFound)
	}
	if step.WorkflowID != instance.WorkflowID {
		return instance, nil, fmt.Errorf("instance %d current step %d belongs to workflow %d, not %d: %w",
			instance.ID, step.ID, step.WorkflowID, instance.WorkflowID, models.ErrDataIntegrity)
	}
	return instance, step, nil
}

// withName merges the caller's variables with the target user's name. The
// user's own name always wins so a batch-wide variable set cannot mislabel
// individual recipients.
func withName(vars map[string]string, name string) map[string]string {
	merged := make(map[string]string, len(vars)+1)
	for k, v := range vars {
		merged[k] = v
	}
	merged["name"] = name
	return merged
}
