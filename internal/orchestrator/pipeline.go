package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/agentforge/orchestrator/internal/backend"
	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/internal/parser"
	"github.com/agentforge/orchestrator/internal/scorer"
	"github.com/agentforge/orchestrator/internal/workspace"
	"github.com/agentforge/orchestrator/pkg/models"
)

// xpBaseAward is granted for every completed task regardless of size.
const xpBaseAward = 20

// xpTokenAwardCap bounds the token-derived portion of an xp award.
const xpTokenAwardCap = 30

// execute runs the full backend-call -> parse -> apply -> score ->
// persist -> fan-out pipeline for one task already assigned to agent.
func (o *Orchestrator) execute(ctx context.Context, task models.Task, agent models.AgentState) {
	credential, err := o.resolveCred(agent.AgentConfig)
	if err != nil {
		o.failTask(task, agent, models.ErrKindOutOfScope, err)
		return
	}

	logs := o.memory.PerformanceLogs(agent.ID)
	systemPrompt := backend.ComposeSystemPrompt(
		agent.DisplayName, agent.Role, task.Description, agent.ID,
		scorer.OverallScore(logs), scorer.RecentFailureCount(logs),
		o.memory.RecentTaskHistory(5),
	)

	result, err := backend.Call(ctx, agent.AgentConfig, credential, systemPrompt, task.Description, o.settings.BackendTimeout)
	if err != nil {
		var kinded *models.KindedError
		kind := models.ErrKindTransport
		if errors.As(err, &kinded) {
			kind = kinded.Kind
		}
		o.failTask(task, agent, kind, err)
		return
	}

	parsed := parser.Parse(result.Text)

	_ = o.registry.DrainEnergy(agent.ID, result.Tokens)
	xp := xpBaseAward + min(xpTokenAwardCap, int(result.Tokens/100))
	_, _ = o.registry.AwardXP(agent.ID, xp)

	tags := scorer.Classify(task.Title, task.Description)
	res := models.Result{
		Success:     true,
		Explanation: parsed.Explanation,
		RawText:     result.Text,
		TokensUsed:  result.Tokens,
		AgentName:   agent.DisplayName,
		ModelID:     result.Model,
		Files:       parsed.Files,
		Commands:    parsed.Commands,
		Subtasks:    parsed.Subtasks,
		TaskTypes:   tags,
	}

	switch {
	case len(parsed.Files) > 0 && task.Risk == models.RiskLow:
		o.applyAndComplete(task, agent, res)
	case len(parsed.Files) > 0 && task.Risk == models.RiskHigh:
		res.Success = true
		if err := o.tasks.Review(task.ID, res); err != nil {
			o.failTask(task, agent, models.ErrKindBadOutput, err)
			return
		}
		_ = o.registry.RecordCompletion(agent.ID, result.Tokens, true)
		o.recordOutcome(task, agent, res, tags)
		o.publish(eventbus.Event{Tag: eventbus.TagTaskAwaitingReview, AgentID: agent.ID, TaskID: task.ID})
	default:
		if err := o.tasks.Complete(task.ID, res); err != nil {
			o.failTask(task, agent, models.ErrKindBadOutput, err)
			return
		}
		_ = o.registry.RecordCompletion(agent.ID, result.Tokens, true)
		o.recordOutcome(task, agent, res, tags)
		o.publish(eventbus.Event{Tag: eventbus.TagTaskCompleted, AgentID: agent.ID, TaskID: task.ID})
	}

	o.spawnSubtasks(task, agent, parsed.Subtasks)
	o.publish(eventbus.Event{Tag: eventbus.TagAgentXPGained, AgentID: agent.ID, TaskID: task.ID})
}



// applyAndComplete writes pending files and runs pending commands for
// the auto-apply (low-risk) path, then marks the task completed.
func (o *Orchestrator) applyAndComplete(task models.Task, agent models.AgentState, res models.Result) {
	if _, err := workspace.WriteFiles(o.settings.WorkspaceRoot, res.Files); err != nil {
		res.Success = false
		res.Explanation = err.Error()
		_ = o.tasks.Fail(task.ID, res)
		_ = o.registry.RecordCompletion(agent.ID, res.TokensUsed, false)
		o.publish(eventbus.Event{Tag: eventbus.TagTaskFailed, AgentID: agent.ID, TaskID: task.ID})
		return
	}
	if len(res.Commands) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), o.settings.CommandTimeout)
		res.CommandOutcomes = workspace.RunCommands(ctx, o.settings.WorkspaceRoot, res.Commands)
		cancel()
	}

	if err := o.tasks.Complete(task.ID, res); err != nil {
		return
	}
	_ = o.registry.RecordCompletion(agent.ID, res.TokensUsed, true)
	tags := res.TaskTypes
	o.recordOutcome(task, agent, res, tags)
	o.publish(eventbus.Event{Tag: eventbus.TagTaskCompleted, AgentID: agent.ID, TaskID: task.ID})
}

// recordPerformance appends rec to the agent's per-category performance
// log for every tag, in both the JSON memory document and the SQLite
// mirror, used for every scored task: success or failure alike.
func (o *Orchestrator) recordPerformance(agentID string, tags []string, rec models.PerformanceRecord) {
	logs := o.memory.PerformanceLogs(agentID)
	for _, tag := range tags {
		log := scorer.AppendRecord(logs[tag], rec)
		_ = o.memory.RecordPerformance(agentID, tag, log)
		if o.perfDB != nil {
			_ = o.perfDB.RecordScore(agentID, tag, rec)
		}
	}
}

// recordOutcome scores the result, appends it to the agent's per-tag
// performance logs, and persists the task to memory.
func (o *Orchestrator) recordOutcome(task models.Task, agent models.AgentState, res models.Result, tags []string) {
	score := scorer.Score(res.RawText, res.Files, res.Commands, res.CommandOutcomes, res.TokensUsed, task.Status)
	res.PerfScore = score
	rec := scorer.NewRecord(score, task.ID, time.Now())

	o.recordPerformance(agent.ID, tags, rec)

	entry := models.TaskHistoryEntry{
		TaskID:      task.ID,
		Title:       task.Title,
		AgentID:     agent.ID,
		AgentName:   agent.DisplayName,
		Explanation: res.Explanation,
		Success:     res.Success,
		Timestamp:   time.Now(),
	}
	_ = o.memory.RecordTaskHistory(entry, score)
	o.publish(eventbus.Event{Tag: eventbus.TagResultScored, AgentID: agent.ID, TaskID: task.ID})
}

// spawnSubtasks creates a child task per subtask intent, as long as the
// parent has not yet reached the maximum nesting depth.
func (o *Orchestrator) spawnSubtasks(task models.Task, agent models.AgentState, subtasks []models.SubtaskIntent) {
	if task.Depth >= models.MaxTaskDepth {
		return
	}
	for _, s := range subtasks {
		child := o.tasks.Create(taskInputFromSubtask(task, agent, s))
		o.publish(eventbus.Event{Tag: eventbus.TagSubtaskSpawned, AgentID: agent.ID, TaskID: child.ID, Message: "spawned from " + task.ID})
	}
}

func (o *Orchestrator) failTask(task models.Task, agent models.AgentState, kind models.ErrorKind, cause error) {
	res := models.Result{
		Success:     false,
		Explanation: cause.Error(),
		AgentName:   agent.DisplayName,
	}
	_ = o.tasks.Fail(task.ID, res)

	var kinded *models.KindedError
	if errors.As(cause, &kinded) && kinded.Kind == models.ErrKindRateLimited {
		_ = o.registry.SetCooldown(agent.ID, time.Now().Add(o.settings.RateLimitCooldown))
	} else {
		_ = o.registry.RecordCompletion(agent.ID, 0, false)
	}

	score := scorer.ScoreFailure(kind)
	tags := scorer.Classify(task.Title, task.Description)
	rec := scorer.NewRecord(score, task.ID, time.Now())
	o.recordPerformance(agent.ID, tags, rec)

	entry := models.TaskHistoryEntry{
		TaskID:      task.ID,
		Title:       task.Title,
		AgentID:     agent.ID,
		AgentName:   agent.DisplayName,
		Explanation: cause.Error(),
		Success:     false,
		Timestamp:   time.Now(),
	}
	_ = o.memory.RecordTaskHistory(entry, score)

	o.publish(eventbus.Event{Tag: eventbus.TagAgentError, AgentID: agent.ID, TaskID: task.ID, Message: cause.Error()})
	o.publish(eventbus.Event{Tag: eventbus.TagTaskFailed, AgentID: agent.ID, TaskID: task.ID})
}
