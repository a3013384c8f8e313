// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// Connection pool settings for the PostgreSQL store.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

var (
	_ Store     = (*PostgresStore)(nil)
	_ DedupRepo = (*PostgresStore)(nil)
)

// NewPostgresStore creates a new PostgreSQL store with the given DSN and runs
// migrations on open.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.New: creating PostgreSQL store", "dsn_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateUser(u models.User) (models.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO users (name, phone_number, email, user_type, preferred_language, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		u.Name, u.PhoneNumber, nilIfEmpty(u.Email), u.UserType, u.PreferredLanguage, u.Status, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		slog.Error("PostgresStore CreateUser failed", "error", err, "phone", u.PhoneNumber)
		return u, fmt.Errorf("failed to insert user %s: %w", u.PhoneNumber, err)
	}
	slog.Debug("PostgresStore CreateUser succeeded", "id", u.ID)
	return u, nil
}

const pgUserColumns = `id, name, phone_number, email, user_type, preferred_language, status, created_at`

func (s *PostgresStore) GetUser(id int64) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUser failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByPhone(phone string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+pgUserColumns+` FROM users WHERE phone_number = $1`, phone)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetUserByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load user by phone: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + pgUserColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) SaveUser(u models.User) error {
	res, err := s.db.Exec(
		`UPDATE users SET name = $1, phone_number = $2, email = $3, user_type = $4, preferred_language = $5, status = $6 WHERE id = $7`,
		u.Name, u.PhoneNumber, nilIfEmpty(u.Email), u.UserType, u.PreferredLanguage, u.Status, u.ID)
	if err != nil {
		slog.Error("PostgresStore SaveUser failed", "error", err, "id", u.ID)
		return fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateTemplate(t models.Template) (models.Template, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO templates (name, channel, language, body, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		t.Name, t.Channel, t.Language, t.Body, t.CreatedAt).Scan(&t.ID)
	if err != nil {
		slog.Error("PostgresStore CreateTemplate failed", "error", err, "name", t.Name)
		return t, fmt.Errorf("failed to insert template %s: %w", t.Name, err)
	}
	return t, nil
}

func (s *PostgresStore) GetTemplate(id int64) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT id, name, channel, language, body, created_at FROM templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTemplates() ([]models.Template, error) {
	rows, err := s.db.Query(`SELECT id, name, channel, language, body, created_at FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()
	var templates []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *PostgresStore) CreateWorkflow(w models.Workflow) (models.Workflow, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO workflows (name, description, type, is_active, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		w.Name, nilIfEmpty(w.Description), nilIfEmpty(w.Type), w.IsActive, w.CreatedAt).Scan(&w.ID)
	if err != nil {
		slog.Error("PostgresStore CreateWorkflow failed", "error", err, "name", w.Name)
		return w, fmt.Errorf("failed to insert workflow %s: %w", w.Name, err)
	}
	return w, nil
}

func (s *PostgresStore) GetWorkflow(id int64) (*models.Workflow, error) {
	row := s.db.QueryRow(`SELECT id, name, description, type, is_active, created_at FROM workflows WHERE id = $1`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %d: %w", id, err)
	}
	return &w, nil
}

func (s *PostgresStore) ListWorkflows() ([]models.Workflow, error) {
	rows, err := s.db.Query(`SELECT id, name, description, type, is_active, created_at FROM workflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()
	var workflows []models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

const pgStepColumns = `id, workflow_id, step_order, trigger_type, template_id, expected_intent, next_step_on_success, next_step_on_failure`

func (s *PostgresStore) CreateWorkflowStep(step models.WorkflowStep) (models.WorkflowStep, error) {
	err := s.db.QueryRow(
		`INSERT INTO workflow_steps (workflow_id, step_order, trigger_type, template_id, expected_intent, next_step_on_success, next_step_on_failure) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		step.WorkflowID, step.StepOrder, step.TriggerType, nilIfNilInt64(step.TemplateID),
		nilIfEmpty(string(step.ExpectedIntent)), nilIfNilInt64(step.NextStepOnSuccess), nilIfNilInt64(step.NextStepOnFailure)).Scan(&step.ID)
	if err != nil {
		slog.Error("PostgresStore CreateWorkflowStep failed", "error", err, "workflow_id", step.WorkflowID)
		return step, fmt.Errorf("failed to insert workflow step: %w", err)
	}
	return step, nil
}

func (s *PostgresStore) UpdateWorkflowStep(step models.WorkflowStep) error {
	res, err := s.db.Exec(
		`UPDATE workflow_steps SET step_order = $1, trigger_type = $2, template_id = $3, expected_intent = $4, next_step_on_success = $5, next_step_on_failure = $6 WHERE id = $7`,
		step.StepOrder, step.TriggerType, nilIfNilInt64(step.TemplateID),
		nilIfEmpty(string(step.ExpectedIntent)), nilIfNilInt64(step.NextStepOnSuccess), nilIfNilInt64(step.NextStepOnFailure), step.ID)
	if err != nil {
		slog.Error("PostgresStore UpdateWorkflowStep failed", "error", err, "id", step.ID)
		return fmt.Errorf("failed to update workflow step %d: %w", step.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetWorkflowStep(id int64) (*models.WorkflowStep, error) {
	row := s.db.QueryRow(`SELECT `+pgStepColumns+` FROM workflow_steps WHERE id = $1`, id)
	step, err := scanWorkflowStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow step %d: %w", id, err)
	}
	return &step, nil
}

func (s *PostgresStore) ListWorkflowSteps(workflowID int64) ([]models.WorkflowStep, error) {
	rows, err := s.db.Query(`SELECT `+pgStepColumns+` FROM workflow_steps WHERE workflow_id = $1 ORDER BY step_order`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}
	defer rows.Close()
	var steps []models.WorkflowStep
	for rows.Next() {
		step, err := scanWorkflowStep(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step row: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

const pgInstanceColumns = `id, user_id, workflow_id, current_step_id, status, started_at, updated_at`

func (s *PostgresStore) CreateWorkflowInstance(i models.WorkflowInstance) (models.WorkflowInstance, error) {
	now := time.Now()
	if i.StartedAt.IsZero() {
		i.StartedAt = now
	}
	i.UpdatedAt = now
	err := s.db.QueryRow(
		`INSERT INTO workflow_instances (user_id, workflow_id, current_step_id, status, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		i.UserID, i.WorkflowID, nilIfNilInt64(i.CurrentStepID), i.Status, i.StartedAt, i.UpdatedAt).Scan(&i.ID)
	if err != nil {
		slog.Error("PostgresStore CreateWorkflowInstance failed", "error", err, "user_id", i.UserID, "workflow_id", i.WorkflowID)
		return i, fmt.Errorf("failed to insert workflow instance: %w", err)
	}
	return i, nil
}

func (s *PostgresStore) GetWorkflowInstance(id int64) (*models.WorkflowInstance, error) {
	row := s.db.QueryRow(`SELECT `+pgInstanceColumns+` FROM workflow_instances WHERE id = $1`, id)
	i, err := scanWorkflowInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow instance %d: %w", id, err)
	}
	return &i, nil
}

func (s *PostgresStore) SaveWorkflowInstance(i models.WorkflowInstance) error {
	res, err := s.db.Exec(
		`UPDATE workflow_instances SET current_step_id = $1, status = $2, updated_at = $3 WHERE id = $4`,
		nilIfNilInt64(i.CurrentStepID), i.Status, time.Now(), i.ID)
	if err != nil {
		slog.Error("PostgresStore SaveWorkflowInstance failed", "error", err, "id", i.ID)
		return fmt.Errorf("failed to update workflow instance %d: %w", i.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListWorkflowInstancesByStatus(status models.WorkflowStatus) ([]models.WorkflowInstance, error) {
	rows, err := s.db.Query(`SELECT `+pgInstanceColumns+` FROM workflow_instances WHERE status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow instances: %w", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (s *PostgresStore) ListActiveWorkflowInstancesByUser(userID int64) ([]models.WorkflowInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+pgInstanceColumns+` FROM workflow_instances WHERE user_id = $1 AND status = $2 ORDER BY id`,
		userID, models.WorkflowInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflow instances: %w", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

const pgNotificationColumns = `id, user_id, workflow_instance_id, channel, template_id, payload, status, provider_message_id, error_message, created_at`

func (s *PostgresStore) AddNotification(n models.Notification) (models.Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	payload, err := encodePayload(n.Payload)
	if err != nil {
		return n, err
	}
	err = s.db.QueryRow(
		`INSERT INTO notifications (user_id, workflow_instance_id, channel, template_id, payload, status, provider_message_id, error_message, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		n.UserID, nilIfNilInt64(n.WorkflowInstanceID), n.Channel, nilIfNilInt64(n.TemplateID),
		payload, n.Status, nilIfEmpty(n.ProviderMessageID), nilIfEmpty(n.ErrorMessage), n.CreatedAt).Scan(&n.ID)
	if err != nil {
		slog.Error("PostgresStore AddNotification failed", "error", err, "user_id", n.UserID)
		return n, fmt.Errorf("failed to insert notification for user %d: %w", n.UserID, err)
	}
	slog.Debug("PostgresStore AddNotification succeeded", "id", n.ID, "status", n.Status)
	return n, nil
}

func (s *PostgresStore) ListNotifications(userID int64) ([]models.Notification, error) {
	query := `SELECT ` + pgNotificationColumns + ` FROM notifications`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()
	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

const pgConversationColumns = `id, user_id, direction, channel, message_text, audio_ref, language, intent, sentiment, timestamp`

func (s *PostgresStore) AddConversation(c models.Conversation) (models.Conversation, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	err := s.db.QueryRow(
		`INSERT INTO conversations (user_id, direction, channel, message_text, audio_ref, language, intent, sentiment, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		c.UserID, c.Direction, c.Channel, nilIfEmpty(c.MessageText), nilIfEmpty(c.AudioRef),
		nilIfEmpty(c.Language), nilIfEmpty(string(c.Intent)), nilIfEmpty(string(c.Sentiment)), c.Timestamp).Scan(&c.ID)
	if err != nil {
		slog.Error("PostgresStore AddConversation failed", "error", err, "user_id", c.UserID)
		return c, fmt.Errorf("failed to insert conversation for user %d: %w", c.UserID, err)
	}
	return c, nil
}

func (s *PostgresStore) ListConversations(userID int64) ([]models.Conversation, error) {
	query := `SELECT ` + pgConversationColumns + ` FROM conversations`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()
	var conversations []models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (s *PostgresStore) IsDuplicate(messageID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT message_id FROM inbound_dedup WHERE message_id = $1 AND processed_at IS NOT NULL`, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) RecordInbound(messageID string, userID int64) (bool, error) {
	res, err := s.db.Exec(
		`INSERT INTO inbound_dedup (message_id, user_id, received_at) VALUES ($1, $2, $3) ON CONFLICT (message_id) DO NOTHING`,
		messageID, userID, time.Now())
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PostgresStore) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(`UPDATE inbound_dedup SET processed_at = $1 WHERE message_id = $2`, time.Now(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
