package backend

import (
	"strings"
	"testing"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

func TestRolePreamble_KnownAndUnknown(t *testing.T) {
	if got := RolePreamble("builder"); !strings.Contains(got, "builder agent") {
		t.Errorf("RolePreamble(builder) = %q", got)
	}
	if got := RolePreamble("BUILDER"); !strings.Contains(got, "builder agent") {
		t.Errorf("RolePreamble(BUILDER) should be case-insensitive, got %q", got)
	}
	if got := RolePreamble("unknown-role"); got != defaultRolePreamble {
		t.Errorf("RolePreamble(unknown-role) = %q, want default", got)
	}
}

func TestMatchingSkillTemplates(t *testing.T) {
	got := MatchingSkillTemplates("Write a Python pytest suite for the parser")
	if len(got) != 2 {
		t.Fatalf("expected 2 matching templates (python + test), got %d: %v", len(got), got)
	}
}

func TestMatchingSkillTemplates_NoMatch(t *testing.T) {
	got := MatchingSkillTemplates("Summarize the quarterly report")
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestAdaptiveHint(t *testing.T) {
	tests := []struct {
		name           string
		overallScore   int
		recentFailures int
		want           string
	}{
		{"strict format wins over low score", 20, 3, strictFormatHint},
		{"format nudge for low overall", 30, 0, formatNudgeHint},
		{"initiative grant for high overall", 90, 0, initiativeHint},
		{"no hint in the middle", 60, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdaptiveHint(tt.overallScore, tt.recentFailures); got != tt.want {
				t.Errorf("AdaptiveHint(%d, %d) = %q, want %q", tt.overallScore, tt.recentFailures, got, tt.want)
			}
		})
	}
}

func TestRecentMemoryContext_CapsAtFiveAndTruncates(t *testing.T) {
	now := time.Now()
	entries := make([]models.TaskHistoryEntry, 0, 7)
	for i := 0; i < 7; i++ {
		entries = append(entries, models.TaskHistoryEntry{
			TaskID:      "TASK-00" + string(rune('1'+i)),
			Title:       "title",
			AgentID:     "agent-1",
			AgentName:   "Agent One",
			Explanation: strings.Repeat("x", 200),
			FilePaths:   []string{"a.go"},
			Timestamp:   now,
		})
	}

	got := RecentMemoryContext(entries)
	if strings.Count(got, "\n-") != 5 {
		t.Errorf("expected 5 rendered entry lines, got:\n%s", got)
	}
	if strings.Contains(got, strings.Repeat("x", 150)) {
		t.Error("expected explanation snippet truncated to 120 chars")
	}
}

func TestRecentMemoryContext_Empty(t *testing.T) {
	if got := RecentMemoryContext(nil); got != "" {
		t.Errorf("RecentMemoryContext(nil) = %q, want empty", got)
	}
}

func TestComposeSystemPrompt_IncludesAllParts(t *testing.T) {
	history := []models.TaskHistoryEntry{
		{AgentName: "Agent One", AgentID: "agent-1", Title: "did a thing", Explanation: "it went fine"},
	}

	got := ComposeSystemPrompt("Agent One", "builder", "write a python test", "agent-1", 80, 0, history)

	if !strings.Contains(got, "builder agent") {
		t.Error("expected role preamble in composed prompt")
	}
	if !strings.Contains(got, "pytest") {
		t.Error("expected matching skill template in composed prompt")
	}
	if !strings.Contains(got, initiativeHint) {
		t.Error("expected initiative hint for high overall score")
	}
	if !strings.Contains(got, "Recent task history") {
		t.Error("expected recent memory context")
	}
	if !strings.Contains(got, "FILE") || !strings.Contains(got, "EXEC") || !strings.Contains(got, "SUBTASK") {
		t.Error("expected structured-output rules enumerating all three markers")
	}
}
