// Package store provides storage backends for the Unified AI Command Centre.
//
// It defines the Store interface consumed by the workflow engine and the HTTP
// handlers, with in-memory, SQLite and PostgreSQL implementations. The SQL
// backends run embedded migrations at startup. Notification and conversation
// records are append-only; the store never mutates them after insertion.
package store

import (
	"strings"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// Store is the persistence boundary for all domain records. Lookup methods
// return (nil, nil) when the record does not exist; callers decide whether
// that is an error.
type Store interface {
	// Users. Users are created externally; the engine only flips Status.
	CreateUser(u models.User) (models.User, error)
	GetUser(id int64) (*models.User, error)
	GetUserByPhone(phone string) (*models.User, error)
	ListUsers() ([]models.User, error)
	SaveUser(u models.User) error

	// Templates are immutable once referenced by a send; only create/read.
	CreateTemplate(t models.Template) (models.Template, error)
	GetTemplate(id int64) (*models.Template, error)
	ListTemplates() ([]models.Template, error)

	// Workflows and their step graphs.
	CreateWorkflow(w models.Workflow) (models.Workflow, error)
	GetWorkflow(id int64) (*models.Workflow, error)
	ListWorkflows() ([]models.Workflow, error)
	CreateWorkflowStep(s models.WorkflowStep) (models.WorkflowStep, error)
	UpdateWorkflowStep(s models.WorkflowStep) error
	GetWorkflowStep(id int64) (*models.WorkflowStep, error)
	ListWorkflowSteps(workflowID int64) ([]models.WorkflowStep, error)

	// Workflow instances: the only engine-mutable state.
	CreateWorkflowInstance(i models.WorkflowInstance) (models.WorkflowInstance, error)
	GetWorkflowInstance(id int64) (*models.WorkflowInstance, error)
	SaveWorkflowInstance(i models.WorkflowInstance) error
	ListWorkflowInstancesByStatus(status models.WorkflowStatus) ([]models.WorkflowInstance, error)
	ListActiveWorkflowInstancesByUser(userID int64) ([]models.WorkflowInstance, error)

	// Append-only logs. ListConversations returns newest first (timestamp,
	// ties broken by insertion order); userID 0 means no filter.
	AddNotification(n models.Notification) (models.Notification, error)
	ListNotifications(userID int64) ([]models.Notification, error)
	AddConversation(c models.Conversation) (models.Conversation, error)
	ListConversations(userID int64) ([]models.Conversation, error)

	Close() error
}

// DedupRepo tracks inbound provider message IDs so duplicate webhook
// deliveries do not double-advance a workflow. A message ID is only a
// duplicate once processing finished; a recorded ID whose delivery failed
// mid-pipeline stays retryable.
type DedupRepo interface {
	// IsDuplicate reports whether a message ID has already been fully
	// processed (recorded and marked processed).
	IsDuplicate(messageID string) (bool, error)

	// RecordInbound inserts a new inbound message record. Returns false if the
	// message was already recorded.
	RecordInbound(messageID string, userID int64) (bool, error)

	// MarkProcessed sets the processed timestamp for a message.
	MarkProcessed(messageID string) error
}

// Opts holds configuration for SQL-backed stores.
type Opts struct {
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
