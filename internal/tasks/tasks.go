// Package tasks owns Task lifecycle state and the priority-ordered
// pending queue. No other component mutates a Task directly.
package tasks

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/pkg/models"
)

var (
	ErrTaskNotFound      = fmt.Errorf("task not found")
	ErrInvalidTransition = fmt.Errorf("invalid task state transition")
)

var validTransitions = map[models.TaskStatus]map[models.TaskStatus]bool{
	models.TaskStatusPending: {
		models.TaskStatusActive:    true,
		models.TaskStatusCancelled: true,
	},
	models.TaskStatusActive: {
		models.TaskStatusCompleted: true,
		models.TaskStatusReview:    true,
		models.TaskStatusFailed:    true,
	},
	models.TaskStatusReview: {
		models.TaskStatusCompleted: true,
		models.TaskStatusCancelled: true,
	},
}

// CanTransition reports whether a task may move from `from` to `to`.
func CanTransition(from, to models.TaskStatus) bool {
	return validTransitions[from][to]
}

// lowRiskTitleKeywords and lowRiskPathPatterns (matched as substrings of
// each file path) drive risk auto-detection on task creation.
var lowRiskTitleKeywords = []string{"doc", "test", "readme"}
var lowRiskPathPatterns = []string{"doc", "test", "readme", ".md", "_test.go", ".d.ts"}

// Manager owns the live Task set: creation, the pending queue, and every
// lifecycle transition. Archived (evicted) terminal tasks are dropped
// from the live set but counted.
type Manager struct {
	mu sync.RWMutex

	tasks      map[string]*models.Task
	order      []string // insertion order, for pending-queue tiebreak
	nextID     int
	archived   int
	autoApprove bool

	bus *eventbus.Bus
}

// New creates an empty Task Manager. autoApprove forces every new task's
// risk to low regardless of the auto-detected classification.
func New(bus *eventbus.Bus, autoApprove bool) *Manager {
	return &Manager{
		tasks:       make(map[string]*models.Task),
		autoApprove: autoApprove,
		bus:         bus,
	}
}

func (m *Manager) publish(ev eventbus.Event) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ev)
}

// NewTaskInput carries the fields a caller supplies; derived fields
// (id, status, timestamps, risk) are computed by Create.
type NewTaskInput struct {
	Title            string
	Description      string
	Priority         models.Priority
	CreatedBy        string
	ParentTaskID     string
	Depth            int
	PreferredAgentID string
	FilePaths        []string
	Tags             []string
}

// Create assigns a monotone TASK-NNN id, auto-detects risk, and enqueues
// the task as pending.
func (m *Manager) Create(in NewTaskInput) models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("TASK-%03d", m.nextID)

	task := models.Task{
		ID:               id,
		CorrelationID:    uuid.NewString(),
		Title:            in.Title,
		Description:      in.Description,
		Status:           models.TaskStatusPending,
		Risk:             m.detectRisk(in.Title, in.FilePaths),
		Priority:         in.Priority,
		CreatedBy:        in.CreatedBy,
		ParentTaskID:     in.ParentTaskID,
		Depth:            in.Depth,
		PreferredAgentID: in.PreferredAgentID,
		FilePaths:        append([]string(nil), in.FilePaths...),
		Tags:             append([]string(nil), in.Tags...),
		CreatedAt:        time.Now(),
	}

	m.tasks[id] = &task
	m.order = append(m.order, id)

	m.publish(eventbus.Event{Tag: eventbus.TagTaskQueued, TaskID: id, Message: task.Title})

	return task.Clone()
}

// detectRisk classifies low vs high per the title-keyword/path-pattern
// heuristic, overridden to low when auto-approve is on.
func (m *Manager) detectRisk(title string, filePaths []string) models.Risk {
	if m.autoApprove {
		return models.RiskLow
	}

	lowerTitle := strings.ToLower(title)
	for _, kw := range lowRiskTitleKeywords {
		if strings.Contains(lowerTitle, kw) {
			return models.RiskLow
		}
	}
	for _, p := range filePaths {
		lowerPath := strings.ToLower(p)
		for _, pattern := range lowRiskPathPatterns {
			if strings.Contains(lowerPath, pattern) {
				return models.RiskLow
			}
		}
	}
	return models.RiskHigh
}

// Get returns a by-value snapshot of one task.
func (m *Manager) Get(id string) (models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, ErrTaskNotFound
	}
	return t.Clone(), nil
}

// Pending returns every pending task sorted by priority (critical first)
// then by insertion order.
func (m *Manager) Pending() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []models.Task
	for _, id := range m.order {
		t, ok := m.tasks[id]
		if ok && t.Status == models.TaskStatusPending {
			pending = append(pending, t.Clone())
		}
	}

	sortByPriorityThenInsertion(pending)
	return pending
}

// All returns every live (non-archived) task.
func (m *Manager) All() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]models.Task, 0, len(m.tasks))
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok {
			all = append(all, t.Clone())
		}
	}
	return all
}

// ArchivedCount returns how many terminal tasks have been evicted from
// the live view.
func (m *Manager) ArchivedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.archived
}

// Assign transitions a pending task to active, recording the agent.
func (m *Manager) Assign(id, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusActive) {
		return ErrInvalidTransition
	}

	now := time.Now()
	t.Status = models.TaskStatusActive
	t.AssignedAgentID = agentID
	t.StartedAt = &now

	m.publish(eventbus.Event{Tag: eventbus.TagTaskStarted, TaskID: id, AgentID: agentID})
	return nil
}

// Reject transitions a pending task straight to cancelled.
func (m *Manager) Reject(id string) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusCancelled) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	t.Status = models.TaskStatusCancelled
	m.evictIfOverflowLocked()
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskCancelled, TaskID: id})
	return nil
}

// Complete attaches result and transitions active/review to completed.
func (m *Manager) Complete(id string, result models.Result) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusCompleted) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &now
	r := result.Clone()
	t.Result = &r
	m.evictIfOverflowLocked()
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskCompleted, TaskID: id})
	return nil
}

// Review moves an active, high-risk task to review pending approval.
func (m *Manager) Review(id string, result models.Result) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusReview) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	r := result.Clone()
	t.Status = models.TaskStatusReview
	t.Result = &r
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskAwaitingReview, TaskID: id})
	return nil
}

// Fail moves an active task to failed, attaching whatever partial
// result/explanation exists.
func (m *Manager) Fail(id string, result models.Result) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusFailed) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = models.TaskStatusFailed
	t.CompletedAt = &now
	r := result.Clone()
	t.Result = &r
	m.evictIfOverflowLocked()
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskFailed, TaskID: id})
	return nil
}

// Approve completes a review task, attaching result (the review task's
// own Result, mutated by the caller with whatever side effects it just
// applied — e.g. CommandOutcomes from commands run between Review and
// Approve). Callers perform the actual file write / command exec
// themselves; Approve only performs the state transition and persists
// the result once that's done, matching approve∘reject = reject-wins
// (Reject on a review task discards side effects by never calling this).
func (m *Manager) Approve(id string, result models.Result) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusCompleted) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &now
	r := result.Clone()
	t.Result = &r
	m.evictIfOverflowLocked()
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskCompleted, TaskID: id, Message: "approved"})
	return nil
}

// RejectReview cancels a review task; no side effects are ever applied.
func (m *Manager) RejectReview(id string) error {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return ErrTaskNotFound
	}
	if !CanTransition(t.Status, models.TaskStatusCancelled) {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	t.Status = models.TaskStatusCancelled
	m.evictIfOverflowLocked()
	m.mu.Unlock()

	m.publish(eventbus.Event{Tag: eventbus.TagTaskCancelled, TaskID: id, Message: "rejected"})
	return nil
}

// evictIfOverflowLocked drops the oldest terminal task past the 30-task
// live-view cap, incrementing the archived counter. Caller holds mu.
func (m *Manager) evictIfOverflowLocked() {
	terminalCount := 0
	for _, id := range m.order {
		if t, ok := m.tasks[id]; ok && t.Status.Terminal() {
			terminalCount++
		}
	}
	for terminalCount > models.MaxPendingHistory {
		for i, id := range m.order {
			t, ok := m.tasks[id]
			if ok && t.Status.Terminal() {
				delete(m.tasks, id)
				m.order = append(m.order[:i], m.order[i+1:]...)
				m.archived++
				terminalCount--
				break
			}
		}
	}
}

func sortByPriorityThenInsertion(tasks []models.Task) {
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j-1].Priority.Rank() > tasks[j].Priority.Rank(); j-- {
			tasks[j-1], tasks[j] = tasks[j], tasks[j-1]
		}
	}
}
