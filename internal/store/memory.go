package store

import (
	"sort"
	"sync"
	"time"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// InMemoryStore keeps all records in process memory. It backs unit tests and
// serves as the fallback when no database DSN is configured.
type InMemoryStore struct {
	mu            sync.RWMutex
	nextID        map[string]int64
	users         map[int64]models.User
	templates     map[int64]models.Template
	workflows     map[int64]models.Workflow
	steps         map[int64]models.WorkflowStep
	instances     map[int64]models.WorkflowInstance
	notifications []models.Notification
	conversations []models.Conversation
	dedup         map[string]dedupEntry
}

type dedupEntry struct {
	userID      int64
	receivedAt  time.Time
	processedAt *time.Time
}

// Compile-time checks that InMemoryStore implements both repositories.
var (
	_ Store     = (*InMemoryStore)(nil)
	_ DedupRepo = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID:    make(map[string]int64),
		users:     make(map[int64]models.User),
		templates: make(map[int64]models.Template),
		workflows: make(map[int64]models.Workflow),
		steps:     make(map[int64]models.WorkflowStep),
		instances: make(map[int64]models.WorkflowInstance),
		dedup:     make(map[string]dedupEntry),
	}
}

func (s *InMemoryStore) allocID(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *InMemoryStore) CreateUser(u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.allocID("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *InMemoryStore) GetUser(id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) GetUserByPhone(phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *InMemoryStore) SaveUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return models.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) CreateTemplate(t models.Template) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.allocID("templates")
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.templates[t.ID] = t
	return t, nil
}

func (s *InMemoryStore) GetTemplate(id int64) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *InMemoryStore) ListTemplates() ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	templates := make([]models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

func (s *InMemoryStore) CreateWorkflow(w models.Workflow) (models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.allocID("workflows")
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	s.workflows[w.ID] = w
	return w, nil
}

func (s *InMemoryStore) GetWorkflow(id int64) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *InMemoryStore) ListWorkflows() ([]models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workflows := make([]models.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		workflows = append(workflows, w)
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })
	return workflows, nil
}

func (s *InMemoryStore) CreateWorkflowStep(step models.WorkflowStep) (models.WorkflowStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step.ID = s.allocID("workflow_steps")
	s.steps[step.ID] = step
	return step, nil
}

func (s *InMemoryStore) UpdateWorkflowStep(step models.WorkflowStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.steps[step.ID]; !ok {
		return models.ErrNotFound
	}
	s.steps[step.ID] = step
	return nil
}

func (s *InMemoryStore) GetWorkflowStep(id int64) (*models.WorkflowStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	step, ok := s.steps[id]
	if !ok {
		return nil, nil
	}
	return &step, nil
}

func (s *InMemoryStore) ListWorkflowSteps(workflowID int64) ([]models.WorkflowStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var steps []models.WorkflowStep
	for _, step := range s.steps {
		if step.WorkflowID == workflowID {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	return steps, nil
}

func (s *InMemoryStore) CreateWorkflowInstance(i models.WorkflowInstance) (models.WorkflowInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.allocID("workflow_instances")
	now := time.Now()
	if i.StartedAt.IsZero() {
		i.StartedAt = now
	}
	if i.UpdatedAt.IsZero() {
		i.UpdatedAt = now
	}
	s.instances[i.ID] = i
	return i, nil
}

func (s *InMemoryStore) GetWorkflowInstance(id int64) (*models.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.instances[id]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (s *InMemoryStore) SaveWorkflowInstance(i models.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[i.ID]; !ok {
		return models.ErrNotFound
	}
	i.UpdatedAt = time.Now()
	s.instances[i.ID] = i
	return nil
}

func (s *InMemoryStore) ListWorkflowInstancesByStatus(status models.WorkflowStatus) ([]models.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var instances []models.WorkflowInstance
	for _, i := range s.instances {
		if i.Status == status {
			instances = append(instances, i)
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	return instances, nil
}

func (s *InMemoryStore) ListActiveWorkflowInstancesByUser(userID int64) ([]models.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var instances []models.WorkflowInstance
	for _, i := range s.instances {
		if i.UserID == userID && i.Status == models.WorkflowInProgress {
			instances = append(instances, i)
		}
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].ID < instances[j].ID })
	return instances, nil
}

func (s *InMemoryStore) AddNotification(n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.allocID("notifications")
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications = append(s.notifications, n)
	return n, nil
}

func (s *InMemoryStore) ListNotifications(userID int64) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var notifications []models.Notification
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if userID == 0 || n.UserID == userID {
			notifications = append(notifications, n)
		}
	}
	return notifications, nil
}

func (s *InMemoryStore) AddConversation(c models.Conversation) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.allocID("conversations")
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	s.conversations = append(s.conversations, c)
	return c, nil
}

func (s *InMemoryStore) ListConversations(userID int64) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var conversations []models.Conversation
	for _, c := range s.conversations {
		if userID == 0 || c.UserID == userID {
			conversations = append(conversations, c)
		}
	}
	// Newest first; insertion order (id) breaks timestamp ties.
	sort.SliceStable(conversations, func(i, j int) bool {
		if !conversations[i].Timestamp.Equal(conversations[j].Timestamp) {
			return conversations[i].Timestamp.After(conversations[j].Timestamp)
		}
		return conversations[i].ID > conversations[j].ID
	})
	return conversations, nil
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.dedup[messageID]
	return ok && entry.processedAt != nil, nil
}

func (s *InMemoryStore) RecordInbound(messageID string, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = dedupEntry{userID: userID, receivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.dedup[messageID]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	entry.processedAt = &now
	s.dedup[messageID] = entry
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
