package memory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentforge/orchestrator/pkg/models"
)

// appendAudit writes one markdown checklist line per completed or
// failed task, in the `- [x] TASK-004 done by agent-b (score 82)` idiom:
// a human-diffable read path over the same history the JSON document
// holds structurally.
func (s *Store) appendAudit(entry models.TaskHistoryEntry, score int) error {
	box := "x"
	verb := "done by"
	if !entry.Success {
		box = " "
		verb = "failed on"
	}

	line := fmt.Sprintf("- [%s] %s %s %s (score %d)\n", box, entry.TaskID, verb, entry.AgentID, score)

	f, err := os.OpenFile(filepath.Join(s.dir, auditFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("appending audit log: %w", err)
	}
	return nil
}
