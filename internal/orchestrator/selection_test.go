package orchestrator

import (
	"testing"

	"github.com/agentforge/orchestrator/internal/memory"
	"github.com/agentforge/orchestrator/pkg/models"
)

func newTestMemory(t *testing.T) *memory.Store {
	m, err := memory.Open(t.TempDir())
	if err != nil {
		t.Fatalf("memory.Open() error = %v", err)
	}
	return m
}

func TestSelectAgent_NoCallableReturnsErr(t *testing.T) {
	_, err := SelectAgent(models.Task{}, nil, newTestMemory(t))
	if err != ErrNoCallableAgent {
		t.Fatalf("err = %v, want ErrNoCallableAgent", err)
	}
}

func TestSelectAgent_HonorsConcretePreferredAgent(t *testing.T) {
	task := models.Task{PreferredAgentID: "agent-2"}
	callable := []models.AgentState{
		{AgentConfig: models.AgentConfig{ID: "agent-1"}},
		{AgentConfig: models.AgentConfig{ID: "agent-2"}},
	}

	got, err := SelectAgent(task, callable, newTestMemory(t))
	if err != nil {
		t.Fatalf("SelectAgent() error = %v", err)
	}
	if got.ID != "agent-2" {
		t.Errorf("ID = %q, want agent-2", got.ID)
	}
}

func TestSelectAgent_FallsBackWhenPreferredNotCallable(t *testing.T) {
	task := models.Task{PreferredAgentID: "agent-missing"}
	callable := []models.AgentState{
		{AgentConfig: models.AgentConfig{ID: "agent-1"}},
	}

	got, err := SelectAgent(task, callable, newTestMemory(t))
	if err != nil {
		t.Fatalf("SelectAgent() error = %v", err)
	}
	if got.ID != "agent-1" {
		t.Errorf("ID = %q, want the only callable agent", got.ID)
	}
}

func TestSelectAgent_AutoPreferenceUsesScoring(t *testing.T) {
	task := models.Task{Title: "fix bug", Description: "fix it", PreferredAgentID: models.PreferredAgentAuto}
	callable := []models.AgentState{
		{AgentConfig: models.AgentConfig{ID: "agent-1"}},
	}
	got, err := SelectAgent(task, callable, newTestMemory(t))
	if err != nil {
		t.Fatalf("SelectAgent() error = %v", err)
	}
	if got.ID != "agent-1" {
		t.Errorf("ID = %q, want agent-1", got.ID)
	}
}

func TestWeightedChoice_SingleCandidateReturnsIt(t *testing.T) {
	candidates := []candidate{{agent: models.AgentState{AgentConfig: models.AgentConfig{ID: "solo"}}, score: 40}}
	got := weightedChoice(candidates)
	if got.ID != "solo" {
		t.Errorf("ID = %q, want solo", got.ID)
	}
}

func TestWeightedChoice_ZeroAndNegativeScoresFloorToOne(t *testing.T) {
	candidates := []candidate{
		{agent: models.AgentState{AgentConfig: models.AgentConfig{ID: "a"}}, score: -10},
		{agent: models.AgentState{AgentConfig: models.AgentConfig{ID: "b"}}, score: 0},
	}
	for i := 0; i < 20; i++ {
		got := weightedChoice(candidates)
		if got.ID != "a" && got.ID != "b" {
			t.Fatalf("unexpected candidate chosen: %q", got.ID)
		}
	}
}
