// Package models defines the core data structures for the Unified AI Command Centre.
//
// It includes the domain entities (users, templates, workflows, notifications,
// conversations) and the closed enumerations shared across modules. Free-form
// strings from the transport layer are parsed into these enums at the boundary;
// an unknown value is a data-integrity error, never a silently accepted string.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the engine and its collaborators.
var (
	// ErrNotFound indicates a referenced user, template, workflow or step does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMissingContact indicates the user lacks the contact field required by the channel.
	ErrMissingContact = errors.New("missing contact for channel")
	// ErrDataIntegrity indicates a violated structural invariant (unknown enum value,
	// cross-workflow successor pointer, cyclic step graph). Operations reject and leave
	// state unchanged.
	ErrDataIntegrity = errors.New("data integrity violation")
	// ErrDuplicateMessage indicates an inbound message was already processed.
	ErrDuplicateMessage = errors.New("duplicate inbound message")
	// ErrInvalidInbound indicates an inbound payload carried neither text nor audio,
	// or both.
	ErrInvalidInbound = errors.New("inbound message must carry exactly one of text or audio")
)

// DefaultLanguage is the fallback language for reply localization.
const DefaultLanguage = "en"

// UserType distinguishes the two user classes the system communicates with.
type UserType string

const (
	UserTypeEmployer UserType = "EMPLOYER"
	UserTypeMaid     UserType = "MAID"
)

// ParseUserType validates a raw user type value.
func ParseUserType(s string) (UserType, error) {
	switch UserType(s) {
	case UserTypeEmployer, UserTypeMaid:
		return UserType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown user type %q", ErrDataIntegrity, s)
	}
}

// UserStatus is the lifecycle status of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

// ParseUserStatus validates a raw user status value.
func ParseUserStatus(s string) (UserStatus, error) {
	switch UserStatus(s) {
	case UserStatusActive, UserStatusInactive:
		return UserStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown user status %q", ErrDataIntegrity, s)
	}
}

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelWhatsAppText  Channel = "WHATSAPP_TEXT"
	ChannelWhatsAppVoice Channel = "WHATSAPP_VOICE"
	ChannelEmail         Channel = "EMAIL"
)

// ParseChannel validates a raw channel value.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWhatsAppText, ChannelWhatsAppVoice, ChannelEmail:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("%w: unknown channel %q", ErrDataIntegrity, s)
	}
}

// TriggerType describes how a workflow step advances.
type TriggerType string

const (
	TriggerTimeBased  TriggerType = "TIME_BASED"
	TriggerEventBased TriggerType = "EVENT_BASED"
	TriggerReplyBased TriggerType = "REPLY_BASED"
)

// ParseTriggerType validates a raw trigger type value.
func ParseTriggerType(s string) (TriggerType, error) {
	switch TriggerType(s) {
	case TriggerTimeBased, TriggerEventBased, TriggerReplyBased:
		return TriggerType(s), nil
	default:
		return "", fmt.Errorf("%w: unknown trigger type %q", ErrDataIntegrity, s)
	}
}

// WorkflowStatus is the lifecycle status of a workflow instance.
type WorkflowStatus string

const (
	WorkflowInProgress WorkflowStatus = "IN_PROGRESS"
	WorkflowCompleted  WorkflowStatus = "COMPLETED"
	WorkflowPaused     WorkflowStatus = "PAUSED"
	WorkflowFailed     WorkflowStatus = "FAILED"
)

// ParseWorkflowStatus validates a raw workflow status value.
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	switch WorkflowStatus(s) {
	case WorkflowInProgress, WorkflowCompleted, WorkflowPaused, WorkflowFailed:
		return WorkflowStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown workflow status %q", ErrDataIntegrity, s)
	}
}

// StepOutcome is the signal fed into workflow advancement.
type StepOutcome string

const (
	OutcomeSuccess StepOutcome = "SUCCESS"
	OutcomeFailure StepOutcome = "FAILURE"
	OutcomeNone    StepOutcome = "NONE"
)

// ParseStepOutcome validates a raw advancement outcome value.
func ParseStepOutcome(s string) (StepOutcome, error) {
	switch StepOutcome(s) {
	case OutcomeSuccess, OutcomeFailure, OutcomeNone:
		return StepOutcome(s), nil
	}
	return "", fmt.Errorf("invalid step outcome %q: %w", s, ErrDataIntegrity)
}

// NotificationStatus is the delivery status of an outbound notification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// Direction marks a conversation entry as inbound or outbound.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Intent is a closed-vocabulary label describing the purpose of an inbound message.
type Intent string

const (
	IntentCompletion   Intent = "COMPLETION"
	IntentUPIQuery     Intent = "UPI_QUERY"
	IntentOptOut       Intent = "OPT_OUT"
	IntentConfused     Intent = "CONFUSED"
	IntentGeneralQuery Intent = "GENERAL_QUERY"
)

// ParseIntent validates a raw intent label.
func ParseIntent(s string) (Intent, error) {
	switch Intent(s) {
	case IntentCompletion, IntentUPIQuery, IntentOptOut, IntentConfused, IntentGeneralQuery:
		return Intent(s), nil
	default:
		return "", fmt.Errorf("%w: unknown intent %q", ErrDataIntegrity, s)
	}
}

// Sentiment is the classified emotional tone of an inbound message.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentConfused Sentiment = "CONFUSED"
)

// ParseSentiment validates a raw sentiment label.
func ParseSentiment(s string) (Sentiment, error) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentConfused:
		return Sentiment(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sentiment %q", ErrDataIntegrity, s)
	}
}

// User is a communication target: an employer or a domestic worker.
// Created externally; the engine mutates only Status (opt-out flips it to INACTIVE).
type User struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	PhoneNumber       string     `json:"phone_number"`
	Email             string     `json:"email,omitempty"`
	UserType          UserType   `json:"user_type"`
	PreferredLanguage string     `json:"preferred_language"`
	Status            UserStatus `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Validate checks required fields on user creation.
func (u *User) Validate() error {
	if u.Name == "" {
		return errors.New("name is required")
	}
	if u.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	if _, err := ParseUserType(string(u.UserType)); err != nil {
		return err
	}
	return nil
}

// Template is an immutable message template with {placeholder} tokens in its body.
type Template struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Channel   Channel   `json:"channel"`
	Language  string    `json:"language"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required fields on template creation.
func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Body == "" {
		return errors.New("body is required")
	}
	if t.Language == "" {
		return errors.New("language is required")
	}
	if _, err := ParseChannel(string(t.Channel)); err != nil {
		return err
	}
	return nil
}

// Workflow is a named, ordered template of steps defining a multi-message campaign.
type Workflow struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// WorkflowStep is one node in a workflow's successor graph. Successor pointers
// are step IDs within the same workflow; nil terminates the workflow in that branch.
type WorkflowStep struct {
	ID                int64       `json:"id"`
	WorkflowID        int64       `json:"workflow_id"`
	StepOrder         int         `json:"step_order"`
	TriggerType       TriggerType `json:"trigger_type"`
	TemplateID        *int64      `json:"template_id,omitempty"`
	ExpectedIntent    Intent      `json:"expected_intent,omitempty"`
	NextStepOnSuccess *int64      `json:"next_step_on_success,omitempty"`
	NextStepOnFailure *int64      `json:"next_step_on_failure,omitempty"`
}

// WorkflowInstance is one user's live execution of a workflow. CurrentStepID is
// nil before start and after termination. Only the engine mutates it, serialized
// per instance id.
type WorkflowInstance struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"user_id"`
	WorkflowID    int64          `json:"workflow_id"`
	CurrentStepID *int64         `json:"current_step_id,omitempty"`
	Status        WorkflowStatus `json:"status"`
	StartedAt     time.Time      `json:"started_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Payload is the rendered content of one dispatch attempt, persisted as JSON.
type Payload struct {
	Text     string `json:"text,omitempty"`
	Subject  string `json:"subject,omitempty"`
	AudioRef string `json:"audio_ref,omitempty"`
}

// Notification is an append-only record of one outbound dispatch attempt.
// Never mutated after creation; delivery-status callbacks are out of scope.
type Notification struct {
	ID                 int64              `json:"id"`
	UserID             int64              `json:"user_id"`
	WorkflowInstanceID *int64             `json:"workflow_instance_id,omitempty"`
	Channel            Channel            `json:"channel"`
	TemplateID         *int64             `json:"template_id,omitempty"`
	Payload            Payload            `json:"payload"`
	Status             NotificationStatus `json:"status"`
	ProviderMessageID  string             `json:"provider_message_id,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// Conversation is an append-only transcript entry for one inbound or outbound
// message. Ordering is the persisted timestamp, ties broken by insertion order.
type Conversation struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Direction   Direction `json:"direction"`
	Channel     Channel   `json:"channel"`
	MessageText string    `json:"message_text,omitempty"`
	AudioRef    string    `json:"audio_ref,omitempty"`
	Language    string    `json:"language,omitempty"`
	Intent      Intent    `json:"intent,omitempty"`
	Sentiment   Sentiment `json:"sentiment,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// InboundMessage is the webhook boundary event for an incoming WhatsApp message.
// Exactly one of Text/AudioRef must be present. ProviderMessageID, when supplied,
// is the idempotency key protecting against duplicate webhook deliveries.
type InboundMessage struct {
	PhoneNumber       string `json:"phone_number"`
	Text              string `json:"text,omitempty"`
	AudioRef          string `json:"audio_ref,omitempty"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// Validate enforces the exactly-one-of-text-or-audio contract.
func (m *InboundMessage) Validate() error {
	if m.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	hasText := m.Text != ""
	hasAudio := m.AudioRef != ""
	if hasText == hasAudio {
		return ErrInvalidInbound
	}
	return nil
}

// SendResult is the per-user outcome of a batch notification send.
type SendResult struct {
	UserID         int64              `json:"user_id"`
	NotificationID int64              `json:"notification_id"`
	Status         NotificationStatus `json:"status"`
	Error          string             `json:"error,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the standard JSON envelope returned by every endpoint.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
