package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// StartInstance creates an IN_PROGRESS instance positioned at the workflow's
// lowest step_order. The workflow must exist and be active.
func (e *Engine) StartInstance(ctx context.Context, userID, workflowID int64) (models.WorkflowInstance, error) {
	user, err := e.store.GetUser(userID)
	if err != nil {
		return models.WorkflowInstance{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil {
		return models.WorkflowInstance{}, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	workflow, err := e.store.GetWorkflow(workflowID)
	if err != nil {
		return models.WorkflowInstance{}, fmt.Errorf("failed to load workflow %d: %w", workflowID, err)
	}
	if workflow == nil {
		return models.WorkflowInstance{}, fmt.Errorf("workflow %d: %w", workflowID, models.ErrNotFound)
	}
	if !workflow.IsActive {
		return models.WorkflowInstance{}, fmt.Errorf("workflow %d is not active: %w", workflowID, models.ErrDataIntegrity)
	}

	steps, err := e.store.ListWorkflowSteps(workflowID)
	if err != nil {
		return models.WorkflowInstance{}, fmt.Errorf("failed to load steps for workflow %d: %w", workflowID, err)
	}
	if len(steps) == 0 {
		return models.WorkflowInstance{}, fmt.Errorf("workflow %d has no steps: %w", workflowID, models.ErrDataIntegrity)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	first := steps[0].ID

	instance, err := e.store.CreateWorkflowInstance(models.WorkflowInstance{
		UserID:        userID,
		WorkflowID:    workflowID,
		CurrentStepID: &first,
		Status:        models.WorkflowInProgress,
	})
	if err != nil {
		return instance, fmt.Errorf("failed to create workflow instance: %w", err)
	}
	slog.Info("Engine.StartInstance: instance started", "instance_id", instance.ID, "user_id", userID, "workflow_id", workflowID, "first_step_id", first)
	return instance, nil
}

// Advance moves an instance along its successor graph. The whole
// load-transition-persist sequence runs under the per-instance lock; no
// network I/O happens here. A NONE outcome is a no-op, as is advancing an
// instance that is already terminal or not IN_PROGRESS.
func (e *Engine) Advance(ctx context.Context, instanceID int64, outcome models.StepOutcome) error {
	lock := e.locks.get(instanceID)
	lock.Lock()
	defer lock.Unlock()

	instance, step, err := e.loadCurrentStep(instanceID)
	if err != nil {
		return err
	}
	if step == nil || instance.Status != models.WorkflowInProgress || outcome == models.OutcomeNone {
		slog.Debug("Engine.Advance: no transition", "instance_id", instanceID, "outcome", outcome, "status", instance.Status)
		return nil
	}

	var next *int64
	switch outcome {
	case models.OutcomeSuccess:
		next = step.NextStepOnSuccess
	case models.OutcomeFailure:
		next = step.NextStepOnFailure
	default:
		return fmt.Errorf("unknown advancement outcome %q: %w", outcome, models.ErrDataIntegrity)
	}

	if next == nil {
		instance.CurrentStepID = nil
		if outcome == models.OutcomeSuccess {
			instance.Status = models.WorkflowCompleted
		} else {
			instance.Status = models.WorkflowFailed
		}
	} else {
		succ, err := e.store.GetWorkflowStep(*next)
		if err != nil {
			return fmt.Errorf("failed to load successor step %d: %w", *next, err)
		}
		if succ == nil || succ.WorkflowID != instance.WorkflowID {
			return fmt.Errorf("step %d: successor %d is not part of workflow %d: %w",
				step.ID, *next, instance.WorkflowID, models.ErrDataIntegrity)
		}
		instance.CurrentStepID = &succ.ID
	}

	if err := e.store.SaveWorkflowInstance(*instance); err != nil {
		return fmt.Errorf("failed to persist workflow instance %d: %w", instanceID, err)
	}
	slog.Info("Engine.Advance: instance advanced", "instance_id", instanceID, "outcome", outcome, "status", instance.Status, "current_step_set", instance.CurrentStepID != nil)
	return nil
}

// TickTimeBased dispatches and advances every IN_PROGRESS instance whose
// current step is TIME_BASED. The scheduler calls this on its cron cadence;
// per-instance failures are logged and isolated. Returns how many instances
// were advanced.
func (e *Engine) TickTimeBased(ctx context.Context) (int, error) {
	instances, err := e.store.ListWorkflowInstancesByStatus(models.WorkflowInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to list in-progress instances: %w", err)
	}
	advanced := 0
	for _, instance := range instances {
		if instance.CurrentStepID == nil {
			continue
		}
		step, err := e.store.GetWorkflowStep(*instance.CurrentStepID)
		if err != nil {
			slog.Error("Engine.TickTimeBased: failed to load step", "instance_id", instance.ID, "error", err)
			continue
		}
		if step == nil || step.TriggerType != models.TriggerTimeBased {
			continue
		}
		if err := e.DispatchStep(ctx, instance.ID, nil); err != nil {
			slog.Error("Engine.TickTimeBased: dispatch failed", "instance_id", instance.ID, "error", err)
			continue
		}
		if err := e.Advance(ctx, instance.ID, models.OutcomeSuccess); err != nil {
			slog.Error("Engine.TickTimeBased: advance failed", "instance_id", instance.ID, "error", err)
			continue
		}
		advanced++
	}
	return advanced, nil
}

// PauseInstance sets an IN_PROGRESS instance to PAUSED.
func (e *Engine) PauseInstance(ctx context.Context, instanceID int64) error {
	return e.setStatus(instanceID, models.WorkflowInProgress, models.WorkflowPaused)
}

// ResumeInstance sets a PAUSED instance back to IN_PROGRESS. The trigger for
// resuming is external; this only performs the transition.
func (e *Engine) ResumeInstance(ctx context.Context, instanceID int64) error {
	return e.setStatus(instanceID, models.WorkflowPaused, models.WorkflowInProgress)
}

func (e *Engine) setStatus(instanceID int64, from, to models.WorkflowStatus) error {
	lock := e.locks.get(instanceID)
	lock.Lock()
	defer lock.Unlock()

	instance, err := e.store.GetWorkflowInstance(instanceID)
	if err != nil {
		return fmt.Errorf("failed to load workflow instance %d: %w", instanceID, err)
	}
	if instance == nil {
		return fmt.Errorf("workflow instance %d: %w", instanceID, models.ErrNotFound)
	}
	if instance.Status != from {
		return fmt.Errorf("workflow instance %d is %s, not %s: %w", instanceID, instance.Status, from, models.ErrDataIntegrity)
	}
	instance.Status = to
	if err := e.store.SaveWorkflowInstance(*instance); err != nil {
		return fmt.Errorf("failed to persist workflow instance %d: %w", instanceID, err)
	}
	slog.Info("Engine.setStatus: instance status changed", "instance_id", instanceID, "from", from, "to", to)
	return nil
}
