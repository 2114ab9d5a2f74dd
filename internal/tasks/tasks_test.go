package tasks

import (
	"testing"

	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/pkg/models"
)

func newManager() *Manager {
	return New(eventbus.New(8), false)
}

func TestCreate_AssignsMonotoneIDsAndLowRiskByKeyword(t *testing.T) {
	m := newManager()

	t1 := m.Create(NewTaskInput{Title: "Write unit tests for parser", Priority: models.PriorityMedium})
	t2 := m.Create(NewTaskInput{Title: "Refactor auth flow", Priority: models.PriorityMedium})

	if t1.ID != "TASK-001" || t2.ID != "TASK-002" {
		t.Fatalf("unexpected ids: %q, %q", t1.ID, t2.ID)
	}
	if t1.Risk != models.RiskLow {
		t.Errorf("expected low risk for a title containing 'tests', got %v", t1.Risk)
	}
	if t2.Risk != models.RiskHigh {
		t.Errorf("expected high risk for an unmatched title, got %v", t2.Risk)
	}
	if t1.CorrelationID == "" || t2.CorrelationID == t1.CorrelationID {
		t.Errorf("expected distinct non-empty correlation ids, got %q and %q", t1.CorrelationID, t2.CorrelationID)
	}
}

func TestCreate_LowRiskByFilePath(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{
		Title:     "Update docs",
		FilePaths: []string{"README.md"},
	})
	if task.Risk != models.RiskLow {
		t.Errorf("expected low risk, got %v", task.Risk)
	}

	task2 := m.Create(NewTaskInput{
		Title:     "Bump dependency",
		FilePaths: []string{"go.mod"},
	})
	if task2.Risk != models.RiskHigh {
		t.Errorf("expected high risk, got %v", task2.Risk)
	}
}

func TestCreate_AutoApproveForcesLowRisk(t *testing.T) {
	m := New(eventbus.New(8), true)
	task := m.Create(NewTaskInput{Title: "Ship the migration", FilePaths: []string{"infra/terraform.tf"}})
	if task.Risk != models.RiskLow {
		t.Errorf("expected auto-approve to force low risk, got %v", task.Risk)
	}
}

func TestPending_OrdersByPriorityThenInsertion(t *testing.T) {
	m := newManager()
	low := m.Create(NewTaskInput{Title: "low", Priority: models.PriorityLow})
	critical := m.Create(NewTaskInput{Title: "critical", Priority: models.PriorityCritical})
	medium1 := m.Create(NewTaskInput{Title: "medium1", Priority: models.PriorityMedium})
	medium2 := m.Create(NewTaskInput{Title: "medium2", Priority: models.PriorityMedium})

	pending := m.Pending()
	want := []string{critical.ID, medium1.ID, medium2.ID, low.ID}
	if len(pending) != len(want) {
		t.Fatalf("expected %d pending tasks, got %d", len(want), len(pending))
	}
	for i, id := range want {
		if pending[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, pending[i].ID, id)
		}
	}
}

func TestAssign_ThenCompleteLifecycle(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "low-risk doc edit", Priority: models.PriorityMedium})

	if err := m.Assign(task.ID, "agent-1"); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	got, _ := m.Get(task.ID)
	if got.Status != models.TaskStatusActive || got.AssignedAgentID != "agent-1" {
		t.Fatalf("unexpected state after Assign: %+v", got)
	}

	if err := m.Complete(task.ID, models.Result{Success: true, Explanation: "done"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	got, _ = m.Get(task.ID)
	if got.Status != models.TaskStatusCompleted || got.Result == nil {
		t.Fatalf("unexpected state after Complete: %+v", got)
	}
}

func TestReviewApprove(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "infra change", Priority: models.PriorityHigh})
	_ = m.Assign(task.ID, "agent-1")

	if err := m.Review(task.ID, models.Result{Success: true}); err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	got, _ := m.Get(task.ID)
	if got.Status != models.TaskStatusReview {
		t.Fatalf("expected review status, got %v", got.Status)
	}

	if err := m.Approve(task.ID, models.Result{Success: true, CommandOutcomes: []models.CommandOutcome{{Cmd: "echo hi", Success: true}}}); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	got, _ = m.Get(task.ID)
	if got.Status != models.TaskStatusCompleted {
		t.Fatalf("expected completed after approve, got %v", got.Status)
	}
	if got.Result == nil || len(got.Result.CommandOutcomes) != 1 {
		t.Fatalf("expected Approve's result (with command outcomes) to be persisted, got %+v", got.Result)
	}
}

func TestReviewRejectDiscardsWithoutSideEffectMutation(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "infra change", Priority: models.PriorityHigh})
	_ = m.Assign(task.ID, "agent-1")
	_ = m.Review(task.ID, models.Result{Success: true})

	if err := m.RejectReview(task.ID); err != nil {
		t.Fatalf("RejectReview() error = %v", err)
	}
	got, _ := m.Get(task.ID)
	if got.Status != models.TaskStatusCancelled {
		t.Fatalf("expected cancelled, got %v", got.Status)
	}

	// Approving after rejection must fail: reject wins, no resurrection.
	if err := m.Approve(task.ID, models.Result{Success: true}); err == nil {
		t.Fatal("expected Approve on a cancelled task to fail")
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "x", Priority: models.PriorityLow})

	if err := m.Complete(task.ID, models.Result{}); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition completing a pending task, got %v", err)
	}
	if err := m.Review(task.ID, models.Result{}); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition reviewing a pending task, got %v", err)
	}
}

func TestReject_FromPending(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "x", Priority: models.PriorityLow})

	if err := m.Reject(task.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	got, _ := m.Get(task.ID)
	if got.Status != models.TaskStatusCancelled {
		t.Fatalf("expected cancelled, got %v", got.Status)
	}
}

func TestFail_RecordsResultAndTerminatesTask(t *testing.T) {
	m := newManager()
	task := m.Create(NewTaskInput{Title: "x", Priority: models.PriorityLow})
	_ = m.Assign(task.ID, "agent-1")

	if err := m.Fail(task.ID, models.Result{Success: false, Explanation: "boom"}); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	got, _ := m.Get(task.ID)
	if got.Status != models.TaskStatusFailed || got.Result.Explanation != "boom" {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestEviction_ArchivesOldestTerminalPastCap(t *testing.T) {
	m := newManager()

	var ids []string
	for i := 0; i < models.MaxPendingHistory+5; i++ {
		task := m.Create(NewTaskInput{Title: "x", Priority: models.PriorityLow})
		ids = append(ids, task.ID)
		_ = m.Assign(task.ID, "agent-1")
		_ = m.Complete(task.ID, models.Result{Success: true})
	}

	if got := m.ArchivedCount(); got != 5 {
		t.Errorf("expected 5 archived tasks, got %d", got)
	}

	all := m.All()
	if len(all) != models.MaxPendingHistory {
		t.Errorf("expected live view capped at %d, got %d", models.MaxPendingHistory, len(all))
	}

	if _, err := m.Get(ids[0]); err != ErrTaskNotFound {
		t.Errorf("expected the oldest task to have been evicted, got err=%v", err)
	}
	if _, err := m.Get(ids[len(ids)-1]); err != nil {
		t.Errorf("expected the newest task to still be live, got err=%v", err)
	}
}

func TestGet_UnknownID(t *testing.T) {
	m := newManager()
	if _, err := m.Get("TASK-999"); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
