package backend

import (
	"fmt"
	"strings"

	"github.com/agentforge/orchestrator/pkg/models"
)

// rolePreambles is the built-in set of role-tag preambles. Markdown
// skill-file discovery is a host-IDE concern; these are compiled in.
var rolePreambles = map[string]string{
	"builder": "You are a builder agent: you write and modify code to " +
		"satisfy the task description directly.",
	"scout": "You are a scout agent: you investigate the codebase and " +
		"report findings before any change is made.",
	"reviewer": "You are a reviewer agent: you check existing output for " +
		"correctness and flag problems rather than writing new features.",
}

const defaultRolePreamble = "You are a software engineering agent working inside an automated pipeline."

type skillTemplate struct {
	triggers []string
	template string
}

var skillTemplates = []skillTemplate{
	{
		triggers: []string{"python", "pytest", "django", "flask"},
		template: "When writing Python, prefer standard library solutions and include a matching pytest test file.",
	},
	{
		triggers: []string{"javascript", "typescript", "node", "react"},
		template: "When writing JavaScript or TypeScript, avoid introducing a new bundler or framework unless asked.",
	},
	{
		triggers: []string{"api", "endpoint", "rest", "http"},
		template: "When building an API, validate inputs and return explicit error responses for invalid requests.",
	},
	{
		triggers: []string{"test", "unit test", "coverage"},
		template: "When asked to add tests, cover the success path and at least one edge case.",
	},
	{
		triggers: []string{"refactor", "cleanup", "simplify"},
		template: "When refactoring, preserve existing behavior; do not change public signatures unless required.",
	},
	{
		triggers: []string{"docs", "readme", "documentation"},
		template: "When writing documentation, describe behavior and usage, not implementation detail.",
	},
	{
		triggers: []string{"deploy", "docker", "ci", "pipeline"},
		template: "When touching deployment or CI configuration, call out any new required secret or environment variable.",
	},
}

const (
	strictFormatHint = "Your last several outputs were scored poorly. Follow the FILE/EXEC/SUBTASK " +
		"block format exactly, with no extra prose inside a block."
	formatNudgeHint = "Remember to use FILE/EXEC/SUBTASK blocks for any file write, command, or subtask " +
		"you intend the system to act on."
	initiativeHint = "You've been performing well. You may use your judgment on scope without " +
		"waiting for explicit instruction on every file."
)

const (
	strictFormatFailureThreshold = 3
	formatNudgeScoreThreshold    = 40
	initiativeScoreThreshold     = 75
	recentMemoryContextSize      = 5
	recentMemorySnippetLength    = 120
)

// RolePreamble looks up the preamble for a role tag, falling back to a
// generic preamble for an unrecognized or empty role.
func RolePreamble(role string) string {
	if p, ok := rolePreambles[strings.ToLower(role)]; ok {
		return p
	}
	return defaultRolePreamble
}

// MatchingSkillTemplates returns every skill template whose trigger
// appears as a case-insensitive substring of the task description.
func MatchingSkillTemplates(taskDescription string) []string {
	lower := strings.ToLower(taskDescription)
	var matched []string
	for _, s := range skillTemplates {
		for _, trigger := range s.triggers {
			if strings.Contains(lower, trigger) {
				matched = append(matched, s.template)
				break
			}
		}
	}
	return matched
}

// AdaptiveHint picks one of three hint tiers from an agent's recent
// record, or "" when none applies.
func AdaptiveHint(overallScore, recentFailures int) string {
	switch {
	case recentFailures >= strictFormatFailureThreshold:
		return strictFormatHint
	case overallScore < formatNudgeScoreThreshold:
		return formatNudgeHint
	case overallScore >= initiativeScoreThreshold:
		return initiativeHint
	default:
		return ""
	}
}

// RecentMemoryContext renders up to the 5 most recent history entries
// as compact lines: agent, id, title, a output snippet, and file list.
// Callers pass entries already ordered most-recent-first.
func RecentMemoryContext(entries []models.TaskHistoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	n := recentMemoryContextSize
	if n > len(entries) {
		n = len(entries)
	}

	var b strings.Builder
	b.WriteString("Recent task history:\n")
	for _, e := range entries[:n] {
		snippet := e.Explanation
		if len(snippet) > recentMemorySnippetLength {
			snippet = snippet[:recentMemorySnippetLength]
		}
		files := "none"
		if len(e.FilePaths) > 0 {
			files = strings.Join(e.FilePaths, ", ")
		}
		fmt.Fprintf(&b, "- %s (%s) on %s: %s [files: %s]\n", e.AgentName, e.AgentID, e.Title, snippet, files)
	}
	return strings.TrimRight(b.String(), "\n")
}

const structuredOutputRules = `Use these markers for anything you want the system to act on:

FILE
path: <relative path>
CONTENT
<file content>
END_FILE

EXEC
cwd: <relative directory>
cmd: <shell command>
END_EXEC

SUBTASK
title: <short title>
agent: <agent id, or auto>
description: <what the subtask should accomplish>
END_SUBTASK

Code inside a FILE block must be complete and runnable, not a fragment.`

// ComposeSystemPrompt assembles the full adaptive system prompt: role
// preamble, any matching skill templates, an adaptive hint drawn from
// the agent's overall score and recent-failure count, recent-memory
// context, and the fixed structured-output rules.
func ComposeSystemPrompt(agentName, role, taskDescription, agentID string, overallScore, recentFailures int, history []models.TaskHistoryEntry) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s You are %s (id: %s).", RolePreamble(role), agentName, agentID))
	parts = append(parts, MatchingSkillTemplates(taskDescription)...)

	if hint := AdaptiveHint(overallScore, recentFailures); hint != "" {
		parts = append(parts, hint)
	}
	if mem := RecentMemoryContext(history); mem != "" {
		parts = append(parts, mem)
	}
	parts = append(parts, structuredOutputRules)

	return strings.Join(parts, "\n\n")
}
