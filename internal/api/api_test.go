package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/classifier"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/engine"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/messaging"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/speech"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/store"
)

func newTestServer() (*Server, *store.InMemoryStore, *messaging.MockSender) {
	st := store.NewInMemoryStore()
	sender := &messaging.MockSender{}
	dispatcher := messaging.NewDispatcher(sender, sender, sender, &speech.MockSynthesizer{})
	eng := engine.New(st, st, dispatcher, classifier.NewKeyword(), &speech.MockTranscriber{})
	return NewServer(st, eng), st, sender
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthHandler(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "ok" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestCreateAndListUsers(t *testing.T) {
	srv, _, _ := newTestServer()
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]interface{}{
		"name":         "Lakshmi",
		"phone_number": "+919900112233",
		"user_type":    "MAID",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/users", nil)
	resp := decodeEnvelope(t, rec)
	users, _ := resp.Result.([]interface{})
	if len(users) != 1 {
		t.Fatalf("users = %+v", resp.Result)
	}
	u := users[0].(map[string]interface{})
	if u["preferred_language"] != "en" || u["status"] != "ACTIVE" {
		t.Errorf("defaults not applied: %+v", u)
	}
}

func TestCreateUserValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/users", map[string]interface{}{
		"name": "No Phone", "user_type": "EMPLOYER",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/templates", map[string]interface{}{
		"name": "bad", "channel": "SMS", "language": "en", "body": "x",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown channel accepted: status = %d", rec.Code)
	}
}

func TestWorkflowStepGraphValidation(t *testing.T) {
	srv, st, _ := newTestServer()
	h := srv.Handler()

	wf, _ := st.CreateWorkflow(models.Workflow{Name: "w", IsActive: true})
	s1, _ := st.CreateWorkflowStep(models.WorkflowStep{WorkflowID: wf.ID, StepOrder: 1, TriggerType: models.TriggerReplyBased})
	s2, _ := st.CreateWorkflowStep(models.WorkflowStep{WorkflowID: wf.ID, StepOrder: 2, TriggerType: models.TriggerReplyBased, NextStepOnSuccess: &s1.ID})

	// Linking s1 -> s2 closes a cycle; the update must be rejected.
	rec := doJSON(t, h, http.MethodPut, fmt.Sprintf("/workflow-steps/%d", s1.ID), map[string]interface{}{
		"step_order":           1,
		"trigger_type":         "REPLY_BASED",
		"next_step_on_success": s2.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("cycle accepted: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got, _ := st.GetWorkflowStep(s1.ID)
	if got.NextStepOnSuccess != nil {
		t.Error("rejected update must not be persisted")
	}

	// Free-form intents are rejected on update, same as on create.
	rec = doJSON(t, h, http.MethodPut, fmt.Sprintf("/workflow-steps/%d", s1.ID), map[string]interface{}{
		"step_order":      1,
		"trigger_type":    "REPLY_BASED",
		"expected_intent": "PLEASE_PAY",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown intent accepted on update: status = %d", rec.Code)
	}
	got, _ = st.GetWorkflowStep(s1.ID)
	if got.ExpectedIntent != "" {
		t.Error("rejected intent must not be persisted")
	}

	// A successor in a foreign workflow is rejected on create.
	other, _ := st.CreateWorkflow(models.Workflow{Name: "other", IsActive: true})
	foreign, _ := st.CreateWorkflowStep(models.WorkflowStep{WorkflowID: other.ID, StepOrder: 1, TriggerType: models.TriggerEventBased})
	rec = doJSON(t, h, http.MethodPost, "/workflow-steps", map[string]interface{}{
		"workflow_id":          wf.ID,
		"step_order":           3,
		"trigger_type":         "REPLY_BASED",
		"next_step_on_success": foreign.ID,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("cross-workflow successor accepted: status = %d", rec.Code)
	}
}

func TestInstanceLifecycleEndpoints(t *testing.T) {
	srv, st, _ := newTestServer()
	h := srv.Handler()

	u, _ := st.CreateUser(models.User{Name: "Ravi", PhoneNumber: "+1111", UserType: models.UserTypeEmployer, PreferredLanguage: "en", Status: models.UserStatusActive})
	wf, _ := st.CreateWorkflow(models.Workflow{Name: "w", IsActive: true})
	st.CreateWorkflowStep(models.WorkflowStep{WorkflowID: wf.ID, StepOrder: 1, TriggerType: models.TriggerReplyBased, ExpectedIntent: models.IntentCompletion})

	rec := doJSON(t, h, http.MethodPost, "/workflow-instances", map[string]interface{}{
		"user_id": u.ID, "workflow_id": wf.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	instance := resp.Result.(map[string]interface{})
	id := int64(instance["id"].(float64))

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/workflow-instances/%d/pause", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/workflow-instances/%d/resume", id), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/workflow-instances/%d/advance", id), map[string]interface{}{
		"outcome": "SUCCESS",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("advance: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp = decodeEnvelope(t, rec)
	advanced := resp.Result.(map[string]interface{})
	if advanced["status"] != "COMPLETED" {
		t.Errorf("instance after advance = %+v", advanced)
	}

	rec = doJSON(t, h, http.MethodPost, "/workflow-instances/999/advance", map[string]interface{}{"outcome": "SUCCESS"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("advance missing instance: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/workflow-instances/%d/advance", id), map[string]interface{}{"outcome": "MAYBE"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid outcome: status = %d", rec.Code)
	}
}

func TestSendNotificationEndpoint(t *testing.T) {
	srv, st, sender := newTestServer()
	h := srv.Handler()

	u, _ := st.CreateUser(models.User{Name: "Asha", PhoneNumber: "+2222", UserType: models.UserTypeMaid, PreferredLanguage: "en", Status: models.UserStatusActive})
	tpl, _ := st.CreateTemplate(models.Template{Name: "t", Channel: models.ChannelWhatsAppText, Language: "en", Body: "Hi {name}"})

	rec := doJSON(t, h, http.MethodPost, "/notifications/send", map[string]interface{}{
		"channel":     "WHATSAPP_TEXT",
		"user_ids":    []int64{u.ID, 999},
		"template_id": tpl.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	results := resp.Result.([]interface{})
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	if len(sender.Messages()) != 1 || sender.Messages()[0].Text != "Hi Asha" {
		t.Errorf("sent = %+v", sender.Messages())
	}

	rec = doJSON(t, h, http.MethodPost, "/notifications/send", map[string]interface{}{
		"user_ids": []int64{u.ID}, "template_id": int64(42),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing template: status = %d", rec.Code)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	srv, st, sender := newTestServer()
	h := srv.Handler()

	u, _ := st.CreateUser(models.User{Name: "Asha", PhoneNumber: "+1111", UserType: models.UserTypeMaid, PreferredLanguage: "en", Status: models.UserStatusActive})

	rec := doJSON(t, h, http.MethodPost, "/webhook/whatsapp", map[string]interface{}{
		"phone_number":        "+1111",
		"text":                "payment done",
		"provider_message_id": "SM1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	result := resp.Result.(map[string]interface{})
	if result["intent"] != "COMPLETION" {
		t.Errorf("result = %+v", result)
	}
	if len(sender.Messages()) != 1 {
		t.Errorf("expected automated reply, sent = %+v", sender.Messages())
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/conversations?user_id=%d", u.ID), nil)
	resp = decodeEnvelope(t, rec)
	convs := resp.Result.([]interface{})
	if len(convs) != 2 {
		t.Errorf("conversations = %+v", convs)
	}

	rec = doJSON(t, h, http.MethodPost, "/webhook/whatsapp", map[string]interface{}{
		"phone_number": "+9999", "text": "hello",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown phone: status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/webhook/whatsapp", map[string]interface{}{
		"phone_number": "+1111",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: status = %d", rec.Code)
	}
}
