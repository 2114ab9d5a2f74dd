package orchestrator

import (
	"github.com/agentforge/orchestrator/internal/tasks"
	"github.com/agentforge/orchestrator/pkg/models"
)

// taskInputFromSubtask builds the child task's creation input, tagging
// it with the spawning agent and advancing its depth by one.
func taskInputFromSubtask(parent models.Task, agent models.AgentState, s models.SubtaskIntent) tasks.NewTaskInput {
	preferred := s.AgentID
	if preferred == "" {
		preferred = models.PreferredAgentAuto
	}
	return tasks.NewTaskInput{
		Title:            s.Title,
		Description:      s.Description,
		Priority:         parent.Priority,
		CreatedBy:        "agent:" + agent.ID,
		ParentTaskID:     parent.ID,
		Depth:            parent.Depth + 1,
		PreferredAgentID: preferred,
	}
}
