package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nilIfNilInt64 maps an optional int64 to a nullable column value.
func nilIfNilInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.PhoneNumber, &email, &u.UserType, &u.PreferredLanguage, &u.Status, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	u.Email = email.String
	return u, nil
}

func scanTemplate(row rowScanner) (models.Template, error) {
	var t models.Template
	err := row.Scan(&t.ID, &t.Name, &t.Channel, &t.Language, &t.Body, &t.CreatedAt)
	return t, err
}

func scanWorkflow(row rowScanner) (models.Workflow, error) {
	var w models.Workflow
	var description, wfType sql.NullString
	err := row.Scan(&w.ID, &w.Name, &description, &wfType, &w.IsActive, &w.CreatedAt)
	if err != nil {
		return w, err
	}
	w.Description = description.String
	w.Type = wfType.String
	return w, nil
}

func scanWorkflowStep(row rowScanner) (models.WorkflowStep, error) {
	var s models.WorkflowStep
	var templateID, onSuccess, onFailure sql.NullInt64
	var expectedIntent sql.NullString
	err := row.Scan(&s.ID, &s.WorkflowID, &s.StepOrder, &s.TriggerType, &templateID, &expectedIntent, &onSuccess, &onFailure)
	if err != nil {
		return s, err
	}
	if templateID.Valid {
		s.TemplateID = &templateID.Int64
	}
	if onSuccess.Valid {
		s.NextStepOnSuccess = &onSuccess.Int64
	}
	if onFailure.Valid {
		s.NextStepOnFailure = &onFailure.Int64
	}
	s.ExpectedIntent = models.Intent(expectedIntent.String)
	return s, nil
}

func scanWorkflowInstance(row rowScanner) (models.WorkflowInstance, error) {
	var i models.WorkflowInstance
	var currentStep sql.NullInt64
	err := row.Scan(&i.ID, &i.UserID, &i.WorkflowID, &currentStep, &i.Status, &i.StartedAt, &i.UpdatedAt)
	if err != nil {
		return i, err
	}
	if currentStep.Valid {
		i.CurrentStepID = &currentStep.Int64
	}
	return i, nil
}

func scanNotification(row rowScanner) (models.Notification, error) {
	var n models.Notification
	var instanceID, templateID sql.NullInt64
	var payloadJSON, providerID, errorMessage sql.NullString
	err := row.Scan(&n.ID, &n.UserID, &instanceID, &n.Channel, &templateID, &payloadJSON, &n.Status, &providerID, &errorMessage, &n.CreatedAt)
	if err != nil {
		return n, fmt.Errorf("scan notification failed: %w", err)
	}
	if instanceID.Valid {
		n.WorkflowInstanceID = &instanceID.Int64
	}
	if templateID.Valid {
		n.TemplateID = &templateID.Int64
	}
	n.ProviderMessageID = providerID.String
	n.ErrorMessage = errorMessage.String
	if payloadJSON.String != "" {
		if err := json.Unmarshal([]byte(payloadJSON.String), &n.Payload); err != nil {
			return n, fmt.Errorf("decode notification payload failed: %w", err)
		}
	}
	return n, nil
}

func scanConversation(row rowScanner) (models.Conversation, error) {
	var c models.Conversation
	var text, audioRef, language, intent, sentiment sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Direction, &c.Channel, &text, &audioRef, &language, &intent, &sentiment, &c.Timestamp)
	if err != nil {
		return c, fmt.Errorf("scan conversation failed: %w", err)
	}
	c.MessageText = text.String
	c.AudioRef = audioRef.String
	c.Language = language.String
	c.Intent = models.Intent(intent.String)
	c.Sentiment = models.Sentiment(sentiment.String)
	return c, nil
}

// encodePayload serializes a notification payload for storage.
func encodePayload(p models.Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode notification payload failed: %w", err)
	}
	return string(data), nil
}
