// Package registry owns the canonical AgentState for every registered
// agent: the mutable energy, XP, status, and cooldown counters layered
// on top of each agent's static roster configuration.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/pkg/models"
)

// ErrAgentNotFound indicates the requested agent is not registered.
var ErrAgentNotFound = errors.New("agent not found")

// ErrInvalidTransition indicates an invalid status transition was attempted.
var ErrInvalidTransition = errors.New("invalid agent status transition")

// ErrAgentAlreadyExists indicates an agent with that id is already registered.
var ErrAgentAlreadyExists = errors.New("agent already exists")

// validTransitions defines the allowed AgentStatus transitions. Key is
// the current status, value is the set of valid target statuses.
var validTransitions = map[models.AgentStatus]map[models.AgentStatus]bool{
	models.AgentStatusIdle: {
		models.AgentStatusWorking:  true,
		models.AgentStatusCooldown: true,
		models.AgentStatusOffline:  true,
		models.AgentStatusError:    true,
	},
	models.AgentStatusWorking: {
		models.AgentStatusIdle:     true,
		models.AgentStatusCooldown: true,
		models.AgentStatusError:    true,
	},
	models.AgentStatusCooldown: {
		models.AgentStatusIdle:    true,
		models.AgentStatusOffline: true,
		models.AgentStatusError:   true,
	},
	models.AgentStatusOffline: {
		models.AgentStatusIdle:  true,
		models.AgentStatusError: true,
	},
	models.AgentStatusError: {
		models.AgentStatusIdle:    true,
		models.AgentStatusOffline: true,
	},
}

// CanTransition reports whether an agent may move from one status to another.
func CanTransition(from, to models.AgentStatus) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// minRechargeRate is the per-tick energy floor applied even when an
// agent's roster entry configures a lower (or no) recharge rate.
const minRechargeRate = 5

// maxEnergyDrainPerTask caps how much energy a single task completion
// can cost, regardless of how many tokens it consumed.
const maxEnergyDrainPerTask = 5

// CredentialResolver reports whether cfg's credential can currently be
// resolved. A nil resolver treats every agent as resolvable, which is
// convenient for tests that don't care about credentials.
type CredentialResolver func(cfg models.AgentConfig) bool

// Registry holds the live AgentState for every agent currently loaded
// from the roster, plus the bus their status changes are published to.
type Registry struct {
	mu         sync.RWMutex
	agents     map[string]*models.AgentState
	bus        *eventbus.Bus
	credential CredentialResolver
}

// New creates an empty Registry publishing lifecycle events onto bus.
// resolveCredential determines a newly loaded agent's initial status; it
// may be nil.
func New(bus *eventbus.Bus, resolveCredential CredentialResolver) *Registry {
	return &Registry{
		agents:     make(map[string]*models.AgentState),
		bus:        bus,
		credential: resolveCredential,
	}
}

// initialStatus returns idle when cfg carries no credential requirement
// or the credential resolver confirms it, offline otherwise.
func (r *Registry) initialStatus(cfg models.AgentConfig) models.AgentStatus {
	if cfg.CredentialEnvVar == "" {
		return models.AgentStatusIdle
	}
	if r.credential == nil || r.credential(cfg) {
		return models.AgentStatusIdle
	}
	return models.AgentStatusOffline
}

// publish is a no-op when the registry was constructed without a bus,
// which keeps unit tests that exercise pure state transitions simple.
func (r *Registry) publish(ev eventbus.Event) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ev)
}

// Add registers a new agent at full energy. Its initial status is idle,
// or offline if it declares a credential that cannot be resolved. It
// returns ErrAgentAlreadyExists if cfg.ID is already registered.
func (r *Registry) Add(cfg models.AgentConfig) error {
	r.mu.Lock()
	if _, ok := r.agents[cfg.ID]; ok {
		r.mu.Unlock()
		return ErrAgentAlreadyExists
	}

	r.agents[cfg.ID] = &models.AgentState{
		AgentConfig: cfg,
		Status:      r.initialStatus(cfg),
		Energy:      models.MaxEnergy,
		XP:          0,
		Level:       1,
	}
	r.mu.Unlock()

	r.publish(eventbus.Event{Tag: eventbus.TagAgentStatusChanged, AgentID: cfg.ID, Message: "registered"})
	return nil
}

// Remove drops an agent from the registry entirely.
func (r *Registry) Remove(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		return ErrAgentNotFound
	}
	delete(r.agents, agentID)
	return nil
}

// ReplaceRoster reconciles the registry against a freshly loaded roster:
// new entries are added with their initial status (idle, or offline when
// a declared credential cannot be resolved), entries no longer present
// are removed,
// and entries that remain keep their runtime state (energy, XP, status)
// untouched — only the static AgentConfig portion is refreshed, since a
// hot reload should not reset an agent mid-task.
func (r *Registry) ReplaceRoster(roster []models.AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(roster))
	for _, cfg := range roster {
		seen[cfg.ID] = true
		if existing, ok := r.agents[cfg.ID]; ok {
			existing.AgentConfig = cfg
			continue
		}
		r.agents[cfg.ID] = &models.AgentState{
			AgentConfig: cfg,
			Status:      r.initialStatus(cfg),
			Energy:      models.MaxEnergy,
			Level:       1,
		}
	}

	for id := range r.agents {
		if !seen[id] {
			delete(r.agents, id)
		}
	}
}

// Get returns a snapshot copy of one agent's state.
func (r *Registry) Get(agentID string) (models.AgentState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return models.AgentState{}, ErrAgentNotFound
	}
	return agent.Clone(), nil
}

// List returns a snapshot copy of every registered agent.
func (r *Registry) List() []models.AgentState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AgentState, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Clone())
	}
	return out
}

// Callable returns a snapshot of every agent currently eligible for
// dispatch: idle status, not a host-IDE bridge provider (those run
// outside the core), with any cooldown already elapsed.
func (r *Registry) Callable() []models.AgentState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	out := make([]models.AgentState, 0, len(r.agents))
	for _, a := range r.agents {
		if a.Status != models.AgentStatusIdle {
			continue
		}
		if a.Provider.IsBridge() {
			continue
		}
		if a.CooldownUntil != nil && a.CooldownUntil.After(now) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// SetStatus transitions an agent to a new status, validating against
// the allowed transition table.
func (r *Registry) SetStatus(agentID string, to models.AgentStatus) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return ErrAgentNotFound
	}

	from := agent.Status
	if from == to {
		r.mu.Unlock()
		return nil
	}
	if !CanTransition(from, to) {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidTransition, from, to)
	}

	agent.Status = to
	if to != models.AgentStatusCooldown {
		agent.CooldownUntil = nil
	}
	r.mu.Unlock()

	r.publish(eventbus.Event{
		Tag:     eventbus.TagAgentStatusChanged,
		AgentID: agentID,
		Message: fmt.Sprintf("%s -> %s", from, to),
	})
	return nil
}

// SetCooldown moves an agent into cooldown status until until elapses.
func (r *Registry) SetCooldown(agentID string, until time.Time) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return ErrAgentNotFound
	}

	from := agent.Status
	if !CanTransition(from, models.AgentStatusCooldown) {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot go from %s to cooldown", ErrInvalidTransition, from)
	}

	agent.Status = models.AgentStatusCooldown
	agent.CooldownUntil = &until
	r.mu.Unlock()

	r.publish(eventbus.Event{
		Tag:     eventbus.TagAgentStatusChanged,
		AgentID: agentID,
		Message: fmt.Sprintf("cooldown until %s", until.Format(time.RFC3339)),
	})
	return nil
}

// AssignTask marks an agent working on taskID. Energy is left unchanged
// here; it is drained when the task completes.
func (r *Registry) AssignTask(agentID, taskID string) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return ErrAgentNotFound
	}
	if !CanTransition(agent.Status, models.AgentStatusWorking) {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot go from %s to working", ErrInvalidTransition, agent.Status)
	}

	agent.Status = models.AgentStatusWorking
	agent.CurrentTaskID = taskID
	r.mu.Unlock()

	r.publish(eventbus.Event{Tag: eventbus.TagAgentStatusChanged, AgentID: agentID, TaskID: taskID, Message: "assigned"})
	return nil
}

// DrainEnergy debits the energy cost of a completed task's token usage,
// capped at maxEnergyDrainPerTask and floored at zero.
func (r *Registry) DrainEnergy(agentID string, tokensUsed int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return ErrAgentNotFound
	}

	cost := int((tokensUsed + 999) / 1000)
	if cost > maxEnergyDrainPerTask {
		cost = maxEnergyDrainPerTask
	}
	agent.Energy -= cost
	if agent.Energy < 0 {
		agent.Energy = 0
	}
	return nil
}

// AwardXP adds xp to an agent's total and recomputes its level, returning
// true if the agent leveled up as a result.
func (r *Registry) AwardXP(agentID string, xp int) (bool, error) {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return false, ErrAgentNotFound
	}

	before := agent.Level
	agent.XP += xp
	agent.Level = models.LevelForXP(agent.XP)
	leveledUp := agent.Level > before
	r.mu.Unlock()

	if leveledUp {
		r.publish(eventbus.Event{Tag: eventbus.TagAgentLeveledUp, AgentID: agentID, Message: fmt.Sprintf("level %d", agent.Level)})
	}
	return leveledUp, nil
}

// RecordCompletion finishes a task on the agent's side: clears
// CurrentTaskID, accumulates tokens used, and transitions back to idle.
func (r *Registry) RecordCompletion(agentID string, tokensUsed int64, success bool) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return ErrAgentNotFound
	}

	agent.CurrentTaskID = ""
	agent.TotalTokens += tokensUsed
	if success {
		agent.TasksCompleted++
	} else {
		agent.ErrorCount++
	}
	if CanTransition(agent.Status, models.AgentStatusIdle) {
		agent.Status = models.AgentStatusIdle
	}
	r.mu.Unlock()

	r.publish(eventbus.Event{Tag: eventbus.TagAgentStatusChanged, AgentID: agentID, Message: "completed"})
	return nil
}

// RechargeAll advances every non-offline agent's energy toward MaxEnergy
// and clears any cooldown whose deadline has passed, on a single tick.
func (r *Registry) RechargeAll() {
	r.mu.Lock()
	now := time.Now()
	var cleared []string
	for id, agent := range r.agents {
		if agent.Status == models.AgentStatusCooldown && agent.CooldownUntil != nil && !agent.CooldownUntil.After(now) {
			agent.Status = models.AgentStatusIdle
			agent.CooldownUntil = nil
			cleared = append(cleared, id)
		}

		if agent.Status == models.AgentStatusOffline {
			continue
		}
		rate := agent.EnergyRechargeRate
		if rate < minRechargeRate {
			rate = minRechargeRate
		}
		agent.Energy += rate
		if agent.Energy > models.MaxEnergy {
			agent.Energy = models.MaxEnergy
		}
	}
	r.mu.Unlock()

	for _, id := range cleared {
		r.publish(eventbus.Event{Tag: eventbus.TagAgentStatusChanged, AgentID: id, Message: "cooldown elapsed"})
	}
}

// MarkOffline transitions an agent whose credential could not be
// resolved into offline status so it is excluded from dispatch.
func (r *Registry) MarkOffline(agentID string, reason string) error {
	r.mu.Lock()
	agent, ok := r.agents[agentID]
	if !ok {
		r.mu.Unlock()
		return ErrAgentNotFound
	}
	if !CanTransition(agent.Status, models.AgentStatusOffline) {
		r.mu.Unlock()
		return nil
	}
	agent.Status = models.AgentStatusOffline
	r.mu.Unlock()

	r.publish(eventbus.Event{Tag: eventbus.TagAgentOffline, AgentID: agentID, Message: reason})
	return nil
}
