package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

func TestOpen_MissingDirReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "fresh"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	snap := s.Snapshot()
	if len(snap.TaskHistory) != 0 || len(snap.AgentStats) != 0 {
		t.Fatalf("expected empty defaults, got %+v", snap)
	}
}

func TestRecordTaskHistory_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	entry := models.TaskHistoryEntry{
		TaskID: "TASK-001", Title: "x", AgentID: "agent-1", AgentName: "Agent One",
		Explanation: "did the thing", Success: true, Timestamp: time.Now(),
	}
	if err := s.RecordTaskHistory(entry, 82); err != nil {
		t.Fatalf("RecordTaskHistory() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	snap := reopened.Snapshot()
	got, ok := snap.TaskHistory["TASK-001"]
	if !ok {
		t.Fatal("expected TASK-001 to survive reload")
	}
	if got.AgentID != "agent-1" {
		t.Errorf("AgentID = %q, want agent-1", got.AgentID)
	}

	audit, err := os.ReadFile(filepath.Join(dir, auditFileName))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	if !strings.Contains(string(audit), "- [x] TASK-001 done by agent-1 (score 82)") {
		t.Errorf("audit log missing expected checklist line, got %q", audit)
	}
}

func TestRecordTaskHistory_FailedUsesUncheckedBox(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)

	entry := models.TaskHistoryEntry{TaskID: "TASK-002", AgentID: "agent-2", Success: false, Timestamp: time.Now()}
	if err := s.RecordTaskHistory(entry, 0); err != nil {
		t.Fatalf("RecordTaskHistory() error = %v", err)
	}

	audit, _ := os.ReadFile(filepath.Join(dir, auditFileName))
	if !strings.Contains(string(audit), "- [ ] TASK-002 failed on agent-2 (score 0)") {
		t.Errorf("audit log missing expected failure line, got %q", audit)
	}
}

func TestRecordTaskHistory_EvictsOldestPastCap(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < models.MaxTaskHistory+3; i++ {
		entry := models.TaskHistoryEntry{
			TaskID:    taskIDFor(i),
			AgentID:   "agent-1",
			Success:   true,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.RecordTaskHistory(entry, 50); err != nil {
			t.Fatalf("RecordTaskHistory(%d) error = %v", i, err)
		}
	}

	snap := s.Snapshot()
	if len(snap.TaskHistory) != models.MaxTaskHistory {
		t.Fatalf("expected %d entries retained, got %d", models.MaxTaskHistory, len(snap.TaskHistory))
	}
	if _, ok := snap.TaskHistory[taskIDFor(0)]; ok {
		t.Error("expected the oldest entry to have been evicted")
	}
	if _, ok := snap.TaskHistory[taskIDFor(models.MaxTaskHistory+2)]; !ok {
		t.Error("expected the newest entry to remain")
	}
}

func taskIDFor(i int) string {
	return "TASK-" + string(rune('A'+i%26)) + string(rune('0'+i/26))
}

func TestRecentTaskHistory_OrdersNewestFirstAndCaps(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)

	base := time.Now()
	for i := 0; i < 7; i++ {
		entry := models.TaskHistoryEntry{
			TaskID:    taskIDFor(i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		_ = s.RecordTaskHistory(entry, 10)
	}

	recent := s.RecentTaskHistory(5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(recent))
	}
	if recent[0].TaskID != taskIDFor(6) {
		t.Errorf("expected newest first, got %q", recent[0].TaskID)
	}
}

func TestRecordPerformance_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)

	log := models.PerformanceLog{
		Scores: []models.PerformanceRecord{{Score: 80, TaskID: "TASK-001", Timestamp: time.Now()}},
		Avg:    80,
		Count:  1,
	}
	if err := s.RecordPerformance("agent-1", "python", log); err != nil {
		t.Fatalf("RecordPerformance() error = %v", err)
	}

	got := s.PerformanceLogs("agent-1")
	if got["python"].Avg != 80 {
		t.Errorf("unexpected performance log: %+v", got)
	}
}

func TestPerfDB_RecordAndQueryHistory(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenPerfDB(dir)
	if err != nil {
		t.Fatalf("OpenPerfDB() error = %v", err)
	}
	defer db.Close()

	rec := models.PerformanceRecord{Score: 70, TaskID: "TASK-001", Timestamp: time.Now()}
	if err := db.RecordScore("agent-1", "python", rec); err != nil {
		t.Fatalf("RecordScore() error = %v", err)
	}

	rows, err := db.AgentHistory("agent-1")
	if err != nil {
		t.Fatalf("AgentHistory() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Score != 70 || rows[0].Category != "python" {
		t.Fatalf("unexpected history: %+v", rows)
	}
}
