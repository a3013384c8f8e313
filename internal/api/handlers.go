package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/engine"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	if u.PreferredLanguage == "" {
		u.PreferredLanguage = models.DefaultLanguage
	}
	if u.Status == "" {
		u.Status = models.UserStatusActive
	}
	if err := u.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	created, err := s.store.CreateUser(u)
	if err != nil {
		slog.Error("Server.createUserHandler: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to create user"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		slog.Error("Server.listUsersHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list users"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(users))
}

func (s *Server) createTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	if err := t.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	created, err := s.store.CreateTemplate(t)
	if err != nil {
		slog.Error("Server.createTemplateHandler: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to create template"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) listTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates()
	if err != nil {
		slog.Error("Server.listTemplatesHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list templates"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(templates))
}

func (s *Server) createWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	var wf models.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	if wf.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("name is required"))
		return
	}
	created, err := s.store.CreateWorkflow(wf)
	if err != nil {
		slog.Error("Server.createWorkflowHandler: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to create workflow"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) listWorkflowsHandler(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.store.ListWorkflows()
	if err != nil {
		slog.Error("Server.listWorkflowsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list workflows"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(workflows))
}

// createWorkflowStepHandler creates a step and re-validates the workflow's
// successor graph with the new step in place. Successors may only reference
// steps that already exist, so a create can never introduce a cycle, but the
// same-workflow constraint is checked here rather than on advance.
func (s *Server) createWorkflowStepHandler(w http.ResponseWriter, r *http.Request) {
	var step models.WorkflowStep
	if err := json.NewDecoder(r.Body).Decode(&step); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	if _, err := models.ParseTriggerType(string(step.TriggerType)); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if step.ExpectedIntent != "" {
		if _, err := models.ParseIntent(string(step.ExpectedIntent)); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}
	workflow, err := s.store.GetWorkflow(step.WorkflowID)
	if err != nil || workflow == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("workflow does not exist"))
		return
	}

	existing, err := s.store.ListWorkflowSteps(step.WorkflowID)
	if err != nil {
		slog.Error("Server.createWorkflowStepHandler: list steps failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to validate workflow graph"))
		return
	}
	candidate := step
	candidate.ID = -1
	if err := engine.ValidateWorkflowGraph(append(existing, candidate)); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	created, err := s.store.CreateWorkflowStep(step)
	if err != nil {
		slog.Error("Server.createWorkflowStepHandler: create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to create workflow step"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

// updateWorkflowStepHandler rewires a step, typically to link successor
// pointers after all steps exist. The full graph is validated with the
// update applied before anything is persisted; this is where cycles are
// caught.
func (s *Server) updateWorkflowStepHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid step id"))
		return
	}
	current, err := s.store.GetWorkflowStep(id)
	if err != nil {
		slog.Error("Server.updateWorkflowStepHandler: load failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to load workflow step"))
		return
	}
	if current == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("workflow step not found"))
		return
	}

	var step models.WorkflowStep
	if err := json.NewDecoder(r.Body).Decode(&step); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	step.ID = id
	step.WorkflowID = current.WorkflowID
	if _, err := models.ParseTriggerType(string(step.TriggerType)); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if step.ExpectedIntent != "" {
		if _, err := models.ParseIntent(string(step.ExpectedIntent)); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}

	existing, err := s.store.ListWorkflowSteps(current.WorkflowID)
	if err != nil {
		slog.Error("Server.updateWorkflowStepHandler: list steps failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to validate workflow graph"))
		return
	}
	for i := range existing {
		if existing[i].ID == id {
			existing[i] = step
		}
	}
	if err := engine.ValidateWorkflowGraph(existing); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.store.UpdateWorkflowStep(step); err != nil {
		slog.Error("Server.updateWorkflowStepHandler: update failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to update workflow step"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(step))
}

func (s *Server) listWorkflowStepsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid workflow id"))
		return
	}
	steps, err := s.store.ListWorkflowSteps(id)
	if err != nil {
		slog.Error("Server.listWorkflowStepsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list workflow steps"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(steps))
}

func (s *Server) startInstanceHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     int64 `json:"user_id"`
		WorkflowID int64 `json:"workflow_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	instance, err := s.engine.StartInstance(r.Context(), req.UserID, req.WorkflowID)
	if err != nil {
		writeEngineError(w, err, "failed to start workflow instance")
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(instance))
}

func (s *Server) getInstanceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid instance id"))
		return
	}
	instance, err := s.store.GetWorkflowInstance(id)
	if err != nil {
		slog.Error("Server.getInstanceHandler: load failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to load workflow instance"))
		return
	}
	if instance == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("workflow instance not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(instance))
}

func (s *Server) advanceInstanceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid instance id"))
		return
	}
	var req struct {
		Outcome string `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	outcome, err := models.ParseStepOutcome(req.Outcome)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.engine.Advance(r.Context(), id, outcome); err != nil {
		writeEngineError(w, err, "failed to advance workflow instance")
		return
	}
	instance, err := s.store.GetWorkflowInstance(id)
	if err != nil {
		slog.Error("Server.advanceInstanceHandler: reload failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to load workflow instance"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(instance))
}

func (s *Server) dispatchStepHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid instance id"))
		return
	}
	var req struct {
		Variables map[string]string `json:"variables"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
			return
		}
	}
	if err := s.engine.DispatchStep(r.Context(), id, req.Variables); err != nil {
		writeEngineError(w, err, "failed to dispatch workflow step")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("step dispatched", nil))
}

func (s *Server) pauseInstanceHandler(w http.ResponseWriter, r *http.Request) {
	statusChange(w, r, s.engine.PauseInstance, "instance paused")
}

func (s *Server) resumeInstanceHandler(w http.ResponseWriter, r *http.Request) {
	statusChange(w, r, s.engine.ResumeInstance, "instance resumed")
}

func statusChange(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) error, message string) {
	id, err := pathID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid instance id"))
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeEngineError(w, err, "failed to change instance status")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(message, nil))
}

func (s *Server) sendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel    string            `json:"channel"`
		UserIDs    []int64           `json:"user_ids"`
		TemplateID int64             `json:"template_id"`
		Variables  map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	var channel models.Channel
	if req.Channel != "" {
		parsed, err := models.ParseChannel(req.Channel)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		channel = parsed
	}
	results, err := s.engine.SendNotification(r.Context(), channel, req.UserIDs, req.TemplateID, req.Variables)
	if err != nil {
		writeEngineError(w, err, "failed to send notifications")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}

func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid user_id"))
		return
	}
	notifications, err := s.store.ListNotifications(userID)
	if err != nil {
		slog.Error("Server.listNotificationsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list notifications"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(notifications))
}

func (s *Server) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := queryUserID(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid user_id"))
		return
	}
	conversations, err := s.store.ListConversations(userID)
	if err != nil {
		slog.Error("Server.listConversationsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list conversations"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(conversations))
}

func (s *Server) whatsAppWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var msg models.InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	result, err := s.engine.HandleInbound(r.Context(), msg)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInbound) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		if errors.Is(err, models.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("no user for this phone number"))
			return
		}
		slog.Error("Server.whatsAppWebhookHandler: inbound handling failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to process inbound message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}

// writeEngineError translates engine sentinel errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
	case errors.Is(err, models.ErrDataIntegrity):
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	default:
		slog.Error("Server: engine operation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(fallback))
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryUserID parses the optional user_id filter; 0 means unfiltered.
func queryUserID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
