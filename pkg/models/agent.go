// Package models holds the shared data types passed by value between
// orchestrator components: agents, tasks, results, and the bounded
// history/performance records that back agent selection.
package models

import "time"

// ProviderKind identifies which wire shape a backend speaks.
type ProviderKind string

const (
	// ProviderOpenAICompatible is an OpenAI-style chat completion, buffered
	// unless the agent sets StreamingRequired.
	ProviderOpenAICompatible ProviderKind = "openai-compatible"
	// ProviderGemini is Google's dedicated generateContent shape.
	ProviderGemini ProviderKind = "gemini"
	// ProviderAnthropic is Anthropic's dedicated messages.create shape.
	ProviderAnthropic ProviderKind = "anthropic"
	// ProviderCursorBridge is a host-IDE bridge; never executed from the core.
	ProviderCursorBridge ProviderKind = "cursor-bridge"
	// ProviderCopilotBridge is a host-IDE bridge; never executed from the core.
	ProviderCopilotBridge ProviderKind = "copilot-bridge"
)

// Valid reports whether the provider kind is a recognized value.
func (p ProviderKind) Valid() bool {
	switch p {
	case ProviderOpenAICompatible, ProviderGemini, ProviderAnthropic,
		ProviderCursorBridge, ProviderCopilotBridge:
		return true
	default:
		return false
	}
}

// IsBridge reports whether this provider kind is executed by the host IDE
// rather than the core (see the OutOfScope error kind).
func (p ProviderKind) IsBridge() bool {
	return p == ProviderCursorBridge || p == ProviderCopilotBridge
}

// AgentStatus represents the runtime state of a registered agent.
type AgentStatus string

const (
	// AgentStatusIdle indicates the agent is callable and not working.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusWorking indicates the agent is executing a task.
	AgentStatusWorking AgentStatus = "working"
	// AgentStatusCooldown indicates the agent is excluded from dispatch
	// until CooldownUntil elapses.
	AgentStatusCooldown AgentStatus = "cooldown"
	// AgentStatusOffline indicates no credential could be resolved.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusError indicates repeated failures took the agent out of rotation.
	AgentStatusError AgentStatus = "error"
)

// Valid reports whether the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusIdle, AgentStatusWorking, AgentStatusCooldown,
		AgentStatusOffline, AgentStatusError:
		return true
	default:
		return false
	}
}

// AgentConfig is the static, file-loaded description of a registered agent.
type AgentConfig struct {
	// ID is the stable identifier used in task.preferredAgentId and dispatch.
	ID string `json:"id" mapstructure:"id"`
	// DisplayName is shown in results and activity messages.
	DisplayName string `json:"display_name" mapstructure:"display_name"`
	// Provider is the wire-shape kind this agent speaks.
	Provider ProviderKind `json:"provider" mapstructure:"provider"`
	// Endpoint overrides the provider's default base URL, if set.
	Endpoint string `json:"endpoint,omitempty" mapstructure:"endpoint"`
	// StreamingRequired marks an openai-compatible host (e.g. an NVIDIA
	// NIM deployment) that hangs on a non-streaming chat completion and
	// must be called via server-sent events instead. Ignored for
	// dedicated-protocol and bridge provider kinds.
	StreamingRequired bool `json:"streaming_required,omitempty" mapstructure:"streaming_required"`
	// ChatTemplateKwargs carries provider-specific extra_body fields some
	// openai-compatible hosts require (e.g. a reasoning/thinking toggle).
	ChatTemplateKwargs map[string]any `json:"chat_template_kwargs,omitempty" mapstructure:"chat_template_kwargs"`
	// CredentialEnvVar names the environment variable holding the secret.
	// Empty means no credential is required (e.g. a local endpoint).
	CredentialEnvVar string `json:"credential_env_var,omitempty" mapstructure:"credential_env_var"`
	// Model is the provider-specific model identifier.
	Model string `json:"model" mapstructure:"model"`
	// Avatar is a short display tag (e.g. an emoji or initials).
	Avatar string `json:"avatar,omitempty" mapstructure:"avatar"`
	// Role is the preamble tag used to build the system prompt.
	Role string `json:"role" mapstructure:"role"`
	// MaxTokens caps the model's response length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	// EnergyRechargeRate is the per-recharge-tick energy gain. Zero means
	// the registry's baseline rate is used.
	EnergyRechargeRate int `json:"energy_recharge_rate,omitempty" mapstructure:"energy_recharge_rate"`
}

// MaxEnergy is the ceiling every agent's energy recharges toward.
const MaxEnergy = 100

// LevelXPThreshold is the xp span each agent level spans.
const LevelXPThreshold = 300

// AgentState is the full runtime record for a registered agent: its
// static AgentConfig plus the mutable counters the Agent Registry owns.
type AgentState struct {
	AgentConfig

	Status         AgentStatus `json:"status"`
	Energy         int         `json:"energy"`
	XP             int         `json:"xp"`
	Level          int         `json:"level"`
	CurrentTaskID  string      `json:"current_task_id,omitempty"`
	CooldownUntil  *time.Time  `json:"cooldown_until,omitempty"`
	TotalTokens    int64       `json:"total_tokens_used"`
	ErrorCount     int         `json:"error_count"`
	TasksCompleted int         `json:"tasks_completed"`
}

// LevelForXP derives a level from accumulated xp via the fixed threshold ladder.
func LevelForXP(xp int) int {
	return xp/LevelXPThreshold + 1
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// registry's mutex (CooldownUntil is copied by value through a new pointer).
func (a AgentState) Clone() AgentState {
	clone := a
	if a.CooldownUntil != nil {
		t := *a.CooldownUntil
		clone.CooldownUntil = &t
	}
	return clone
}
