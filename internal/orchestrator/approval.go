package orchestrator

import (
	"context"

	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/internal/workspace"
	"github.com/agentforge/orchestrator/pkg/models"
)

// Approve applies a reviewed task's pending file writes and command
// executions, then marks it completed. Task Manager's own Approve only
// performs the state transition; the side effects happen here, between
// Review and Approve, exactly once.
func (o *Orchestrator) Approve(ctx context.Context, taskID string) error {
	task, err := o.tasks.Get(taskID)
	if err != nil {
		return err
	}

	result := models.Result{}
	if task.Result != nil {
		result = *task.Result
		if _, err := workspace.WriteFiles(o.settings.WorkspaceRoot, result.Files); err != nil {
			return err
		}
		if len(result.Commands) > 0 {
			runCtx, cancel := context.WithTimeout(ctx, o.settings.CommandTimeout)
			result.CommandOutcomes = workspace.RunCommands(runCtx, o.settings.WorkspaceRoot, result.Commands)
			cancel()
		}
	}

	if err := o.tasks.Approve(taskID, result); err != nil {
		return err
	}
	o.publish(eventbus.Event{Tag: eventbus.TagTaskCompleted, TaskID: taskID, Message: "approved"})
	o.triggerBroadcast()
	return nil
}

// Reject discards a reviewed task without applying any side effects.
func (o *Orchestrator) Reject(taskID string) error {
	if err := o.tasks.RejectReview(taskID); err != nil {
		return err
	}
	o.publish(eventbus.Event{Tag: eventbus.TagTaskCancelled, TaskID: taskID, Message: "rejected"})
	o.triggerBroadcast()
	return nil
}
