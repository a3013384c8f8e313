// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Store     = (*SQLiteStore)(nil)
	_ DedupRepo = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the SQLite database file; the directory is
// created if it doesn't exist and migrations run on open.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.New: creating SQLite store", "dsn_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateUser(u models.User) (models.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO users (name, phone_number, email, user_type, preferred_language, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.PhoneNumber, nilIfEmpty(u.Email), u.UserType, u.PreferredLanguage, u.Status, u.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateUser failed", "error", err, "phone", u.PhoneNumber)
		return u, fmt.Errorf("failed to insert user %s: %w", u.PhoneNumber, err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return u, fmt.Errorf("failed to read user id: %w", err)
	}
	slog.Debug("SQLiteStore CreateUser succeeded", "id", u.ID)
	return u, nil
}

const sqliteUserColumns = `id, name, phone_number, email, user_type, preferred_language, status, created_at`

func (s *SQLiteStore) GetUser(id int64) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &u, nil
}

func (s *SQLiteStore) GetUserByPhone(phone string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT `+sqliteUserColumns+` FROM users WHERE phone_number = ?`, phone)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUserByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load user by phone: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + sqliteUserColumns + ` FROM users ORDER BY id`)
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

func (s *SQLiteStore) SaveUser(u models.User) error {
	res, err := s.db.Exec(
		`UPDATE users SET name = ?, phone_number = ?, email = ?, user_type = ?, preferred_language = ?, status = ? WHERE id = ?`,
		u.Name, u.PhoneNumber, nilIfEmpty(u.Email), u.UserType, u.PreferredLanguage, u.Status, u.ID)
	if err != nil {
		slog.Error("SQLiteStore SaveUser failed", "error", err, "id", u.ID)
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

func (s *SQLiteStore) CreateTemplate(t models.Template) (models.Template, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO templates (name, channel, language, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.Channel, t.Language, t.Body, t.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateTemplate failed", "error", err, "name", t.Name)
		return t, fmt.Errorf("failed to insert template %s: %w", t.Name, err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return t, fmt.Errorf("failed to read template id: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) GetTemplate(id int64) (*models.Template, error) {
	row := s.db.QueryRow(`SELECT id, name, channel, language, body, created_at FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTemplates() ([]models.Template, error) {
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

func (s *SQLiteStore) CreateWorkflow(w models.Workflow) (models.Workflow, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO workflows (name, description, type, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.Name, nilIfEmpty(w.Description), nilIfEmpty(w.Type), w.IsActive, w.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateWorkflow failed", "error", err, "name", w.Name)
		return w, fmt.Errorf("failed to insert workflow %s: %w", w.Name, err)
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return w, fmt.Errorf("failed to read workflow id: %w", err)
	}
	return w, nil
}

func (s *SQLiteStore) GetWorkflow(id int64) (*models.Workflow, error) {
	row := s.db.QueryRow(`SELECT id, name, description, type, is_active, created_at FROM workflows WHERE id = ?`, id)
	w, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow %d: %w", id, err)
	}
	return &w, nil
}

func (s *SQLiteStore) ListWorkflows() ([]models.Workflow, error) {
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

const sqliteStepColumns = `id, workflow_id, step_order, trigger_type, template_id, expected_intent, next_step_on_success, next_step_on_failure`

func (s *SQLiteStore) CreateWorkflowStep(step models.WorkflowStep) (models.WorkflowStep, error) {
	res, err := s.db.Exec(
		`INSERT INTO workflow_steps (workflow_id, step_order, trigger_type, template_id, expected_intent, next_step_on_success, next_step_on_failure) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		step.WorkflowID, step.StepOrder, step.TriggerType, nilIfNilInt64(step.TemplateID),
		nilIfEmpty(string(step.ExpectedIntent)), nilIfNilInt64(step.NextStepOnSuccess), nilIfNilInt64(step.NextStepOnFailure))
	if err != nil {
		slog.Error("SQLiteStore CreateWorkflowStep failed", "error", err, "workflow_id", step.WorkflowID)
		return step, fmt.Errorf("failed to insert workflow step: %w", err)
	}
	step.ID, err = res.LastInsertId()
	if err != nil {
		return step, fmt.Errorf("failed to read workflow step id: %w", err)
	}
	return step, nil
}

func (s *SQLiteStore) UpdateWorkflowStep(step models.WorkflowStep) error {
	res, err := s.db.Exec(
		`UPDATE workflow_steps SET step_order = ?, trigger_type = ?, template_id = ?, expected_intent = ?, next_step_on_success = ?, next_step_on_failure = ? WHERE id = ?`,
		step.StepOrder, step.TriggerType, nilIfNilInt64(step.TemplateID),
		nilIfEmpty(string(step.ExpectedIntent)), nilIfNilInt64(step.NextStepOnSuccess), nilIfNilInt64(step.NextStepOnFailure), step.ID)
	if err != nil {
		slog.Error("SQLiteStore UpdateWorkflowStep failed", "error", err, "id", step.ID)
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

func (s *SQLiteStore) GetWorkflowStep(id int64) (*models.WorkflowStep, error) {
	row := s.db.QueryRow(`SELECT `+sqliteStepColumns+` FROM workflow_steps WHERE id = ?`, id)
	step, err := scanWorkflowStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow step %d: %w", id, err)
	}
	return &step, nil
}

func (s *SQLiteStore) ListWorkflowSteps(workflowID int64) ([]models.WorkflowStep, error) {
	rows, err := s.db.Query(`SELECT `+sqliteStepColumns+` FROM workflow_steps WHERE workflow_id = ? ORDER BY step_order`, workflowID)
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

const sqliteInstanceColumns = `id, user_id, workflow_id, current_step_id, status, started_at, updated_at`

func (s *SQLiteStore) CreateWorkflowInstance(i models.WorkflowInstance) (models.WorkflowInstance, error) {
	now := time.Now()
	if i.StartedAt.IsZero() {
		i.StartedAt = now
	}
	i.UpdatedAt = now
	res, err := s.db.Exec(
		`INSERT INTO workflow_instances (user_id, workflow_id, current_step_id, status, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		i.UserID, i.WorkflowID, nilIfNilInt64(i.CurrentStepID), i.Status, i.StartedAt, i.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateWorkflowInstance failed", "error", err, "user_id", i.UserID, "workflow_id", i.WorkflowID)
		return i, fmt.Errorf("failed to insert workflow instance: %w", err)
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return i, fmt.Errorf("failed to read workflow instance id: %w", err)
	}
	return i, nil
}

func (s *SQLiteStore) GetWorkflowInstance(id int64) (*models.WorkflowInstance, error) {
	row := s.db.QueryRow(`SELECT `+sqliteInstanceColumns+` FROM workflow_instances WHERE id = ?`, id)
	i, err := scanWorkflowInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow instance %d: %w", id, err)
	}
	return &i, nil
}

func (s *SQLiteStore) SaveWorkflowInstance(i models.WorkflowInstance) error {
	res, err := s.db.Exec(
		`UPDATE workflow_instances SET current_step_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		nilIfNilInt64(i.CurrentStepID), i.Status, time.Now(), i.ID)
	if err != nil {
		slog.Error("SQLiteStore SaveWorkflowInstance failed", "error", err, "id", i.ID)
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

func (s *SQLiteStore) ListWorkflowInstancesByStatus(status models.WorkflowStatus) ([]models.WorkflowInstance, error) {
	rows, err := s.db.Query(`SELECT `+sqliteInstanceColumns+` FROM workflow_instances WHERE status = ? ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow instances: %w", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

func (s *SQLiteStore) ListActiveWorkflowInstancesByUser(userID int64) ([]models.WorkflowInstance, error) {
	rows, err := s.db.Query(
		`SELECT `+sqliteInstanceColumns+` FROM workflow_instances WHERE user_id = ? AND status = ? ORDER BY id`,
		userID, models.WorkflowInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflow instances: %w", err)
	}
	defer rows.Close()
	return collectInstances(rows)
}

func collectInstances(rows *sql.Rows) ([]models.WorkflowInstance, error) {
	var instances []models.WorkflowInstance
	for rows.Next() {
		i, err := scanWorkflowInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow instance row: %w", err)
		}
		instances = append(instances, i)
	}
	return instances, rows.Err()
}

const sqliteNotificationColumns = `id, user_id, workflow_instance_id, channel, template_id, payload, status, provider_message_id, error_message, created_at`

func (s *SQLiteStore) AddNotification(n models.Notification) (models.Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	payload, err := encodePayload(n.Payload)
	if err != nil {
		return n, err
	}
	res, err := s.db.Exec(
		`INSERT INTO notifications (user_id, workflow_instance_id, channel, template_id, payload, status, provider_message_id, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, nilIfNilInt64(n.WorkflowInstanceID), n.Channel, nilIfNilInt64(n.TemplateID),
		payload, n.Status, nilIfEmpty(n.ProviderMessageID), nilIfEmpty(n.ErrorMessage), n.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddNotification failed", "error", err, "user_id", n.UserID)
		return n, fmt.Errorf("failed to insert notification for user %d: %w", n.UserID, err)
	}
	n.ID, err = res.LastInsertId()
	if err != nil {
		return n, fmt.Errorf("failed to read notification id: %w", err)
	}
	slog.Debug("SQLiteStore AddNotification succeeded", "id", n.ID, "status", n.Status)
	return n, nil
}

func (s *SQLiteStore) ListNotifications(userID int64) ([]models.Notification, error) {
	query := `SELECT ` + sqliteNotificationColumns + ` FROM notifications`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
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

const sqliteConversationColumns = `id, user_id, direction, channel, message_text, audio_ref, language, intent, sentiment, timestamp`

func (s *SQLiteStore) AddConversation(c models.Conversation) (models.Conversation, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO conversations (user_id, direction, channel, message_text, audio_ref, language, intent, sentiment, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Direction, c.Channel, nilIfEmpty(c.MessageText), nilIfEmpty(c.AudioRef),
		nilIfEmpty(c.Language), nilIfEmpty(string(c.Intent)), nilIfEmpty(string(c.Sentiment)), c.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddConversation failed", "error", err, "user_id", c.UserID)
		return c, fmt.Errorf("failed to insert conversation for user %d: %w", c.UserID, err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return c, fmt.Errorf("failed to read conversation id: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) ListConversations(userID int64) ([]models.Conversation, error) {
	query := `SELECT ` + sqliteConversationColumns + ` FROM conversations`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
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

func (s *SQLiteStore) IsDuplicate(messageID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT message_id FROM inbound_dedup WHERE message_id = ? AND processed_at IS NOT NULL`, messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) RecordInbound(messageID string, userID int64) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO inbound_dedup (message_id, user_id, received_at) VALUES (?, ?, ?)`,
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

func (s *SQLiteStore) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`, time.Now(), messageID)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
