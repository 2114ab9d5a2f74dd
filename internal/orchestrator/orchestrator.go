// Package orchestrator ticks the dispatch loop: it pulls pending tasks,
// selects an agent for each, and runs their execution concurrently up to
// a configured cap, without the tick itself ever blocking on a task's
// backend call.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentforge/orchestrator/internal/broadcaster"
	"github.com/agentforge/orchestrator/internal/config"
	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/internal/memory"
	"github.com/agentforge/orchestrator/internal/registry"
	"github.com/agentforge/orchestrator/internal/tasks"
	"github.com/agentforge/orchestrator/pkg/models"
)

// ErrNoCallableAgent indicates a dispatch attempt found no eligible
// agent for a task. The task is left pending for the next tick.
var ErrNoCallableAgent = errors.New("orchestrator: no callable agent available")

// CredentialResolverFunc resolves the secret an agent needs to call its
// backend. It is distinct from registry.CredentialResolver, which only
// reports resolvability for initial status, not the secret itself.
type CredentialResolverFunc func(cfg models.AgentConfig) (string, error)

// Orchestrator owns the dispatch and recharge ticks and wires together
// the registry, task manager, memory store, event bus, and broadcaster.
type Orchestrator struct {
	settings    *config.Settings
	registry    *registry.Registry
	tasks       *tasks.Manager
	memory      *memory.Store
	perfDB      *memory.PerfDB
	bus         *eventbus.Bus
	broadcaster *broadcaster.Broadcaster
	resolveCred CredentialResolverFunc

	// eg bounds in-flight task executions so Run can wait for all of
	// them on shutdown; it carries no error-cancellation semantics here
	// since a failed task reports through tasks.Fail, not a returned error.
	eg errgroup.Group
}

// New wires an Orchestrator from its components. resolveCred defaults
// to config.ResolveCredentialFromProcessEnv when nil. perfDB may be nil,
// in which case scored outcomes are recorded to memory only and the
// SQLite performance mirror is left empty.
func New(settings *config.Settings, reg *registry.Registry, taskMgr *tasks.Manager, mem *memory.Store, perfDB *memory.PerfDB, bus *eventbus.Bus, bc *broadcaster.Broadcaster, resolveCred CredentialResolverFunc) *Orchestrator {
	if resolveCred == nil {
		resolveCred = config.ResolveCredentialFromProcessEnv
	}
	return &Orchestrator{
		settings:    settings,
		registry:    reg,
		tasks:       taskMgr,
		memory:      mem,
		perfDB:      perfDB,
		bus:         bus,
		broadcaster: bc,
		resolveCred: resolveCred,
	}
}

// Run drives the dispatch and recharge tickers until ctx is cancelled,
// then waits for every in-flight execution to finish before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	dispatch := time.NewTicker(o.settings.DispatchInterval)
	defer dispatch.Stop()
	recharge := time.NewTicker(o.settings.RechargeInterval)
	defer recharge.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = o.eg.Wait()
			return nil
		case <-dispatch.C:
			o.dispatchTick(ctx)
		case <-recharge.C:
			o.rechargeTick()
		}
	}
}

// dispatchTick assigns as many pending tasks as the concurrency cap
// allows and launches their execution in background goroutines. It
// never blocks on a task's backend call.
func (o *Orchestrator) dispatchTick(ctx context.Context) {
	working := o.countWorking()
	cap := o.settings.ConcurrencyCap
	if working >= cap {
		return
	}

	for _, task := range o.tasks.Pending() {
		if working >= cap {
			break
		}

		agent, err := SelectAgent(task, o.registry.Callable(), o.memory)
		if err != nil {
			continue
		}

		if err := o.registry.AssignTask(agent.ID, task.ID); err != nil {
			continue
		}
		if err := o.tasks.Assign(task.ID, agent.ID); err != nil {
			continue
		}
		working++

		o.eg.Go(func() error {
			o.execute(ctx, task, agent)
			o.triggerBroadcast()
			return nil
		})
	}

	o.triggerBroadcast()
}

func (o *Orchestrator) countWorking() int {
	n := 0
	for _, a := range o.registry.List() {
		if a.Status == models.AgentStatusWorking {
			n++
		}
	}
	return n
}

// rechargeTick restores energy and clears expired cooldowns, then
// broadcasts the resulting state.
func (o *Orchestrator) rechargeTick() {
	o.registry.RechargeAll()
	o.triggerBroadcast()
}

func (o *Orchestrator) triggerBroadcast() {
	if o.broadcaster != nil {
		o.broadcaster.Trigger()
	}
}

func (o *Orchestrator) publish(ev eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
