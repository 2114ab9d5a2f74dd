// Package broadcaster assembles and throttles full state snapshots for
// delivery to every subscriber; the CLI's status command reads a single
// Snapshot directly rather than subscribing. Subscribers never force the
// source components to block on a slow reader.
package broadcaster

import (
	"sync"
	"time"

	"github.com/agentforge/orchestrator/internal/eventbus"
	"github.com/agentforge/orchestrator/internal/memory"
	"github.com/agentforge/orchestrator/internal/registry"
	"github.com/agentforge/orchestrator/internal/scorer"
	"github.com/agentforge/orchestrator/internal/tasks"
	"github.com/agentforge/orchestrator/pkg/models"
)

// PerformanceSummary is one agent's RL-derived standing, included in
// every snapshot so a status view doesn't need its own scorer import.
type PerformanceSummary struct {
	AgentID       string `json:"agent_id"`
	OverallScore  int    `json:"overall_score"`
	RecentFailures int   `json:"recent_failures"`
}

// Snapshot is the full, client-safe state the broadcaster delivers.
type Snapshot struct {
	Agents             []models.AgentState      `json:"agents"`
	Tasks              []models.Task            `json:"tasks"`
	ArchivedTaskCount  int                      `json:"archived_task_count"`
	Performance        []PerformanceSummary     `json:"performance"`
	RecentMemory       []models.TaskHistoryEntry `json:"recent_memory"`
	Activity           []models.ActivityEntry   `json:"activity"`
	Timestamp          time.Time                `json:"timestamp"`
}

// defaultThrottle is the minimum spacing between delivered snapshots; a
// snapshot requested inside the window is coalesced into one trailing
// delivery rather than dropped outright, since every subscriber expects
// eventually-consistent state rather than a sampled one.
const (
	defaultThrottle         = 300 * time.Millisecond
	defaultActivityTail     = 20
	defaultRecentMemorySize = 5
)

type subscriber struct {
	id int64
	ch chan Snapshot
}

// Broadcaster assembles Snapshots from the owning components and
// throttles their delivery.
type Broadcaster struct {
	registry *registry.Registry
	tasks    *tasks.Manager
	memory   *memory.Store
	bus      *eventbus.Bus
	throttle time.Duration

	mu        sync.Mutex
	subs      map[int64]*subscriber
	nextSubID int64

	lastSent time.Time
	pending  bool
	timer    *time.Timer
}

// New creates a Broadcaster reading from the given components. throttle
// of zero uses the default 300ms spacing.
func New(reg *registry.Registry, taskMgr *tasks.Manager, mem *memory.Store, bus *eventbus.Bus, throttle time.Duration) *Broadcaster {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	return &Broadcaster{
		registry: reg,
		tasks:    taskMgr,
		memory:   mem,
		bus:      bus,
		throttle: throttle,
		subs:     make(map[int64]*subscriber),
	}
}

// Subscribe returns a channel of future snapshots and an unsubscribe
// function. The channel is closed by unsubscribe.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	s := &subscriber{id: id, ch: make(chan Snapshot, 4)}
	b.subs[id] = s
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return s.ch, unsubscribe
}

// Trigger requests a snapshot delivery. If the throttle window has
// elapsed, it delivers immediately; otherwise it marks a trailing
// delivery to fire once the window closes, coalescing any number of
// triggers within the same window into one delivery.
func (b *Broadcaster) Trigger() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastSent)
	if b.lastSent.IsZero() || elapsed >= b.throttle {
		b.lastSent = now
		b.deliverLocked()
		return
	}

	if b.pending {
		return
	}
	b.pending = true
	remaining := b.throttle - elapsed
	b.timer = time.AfterFunc(remaining, b.fireTrailing)
}

func (b *Broadcaster) fireTrailing() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = false
	b.lastSent = time.Now()
	b.deliverLocked()
}

// deliverLocked assembles and fans out a snapshot. Caller holds mu.
func (b *Broadcaster) deliverLocked() {
	snap := b.assemble()
	for _, s := range b.subs {
		select {
		case s.ch <- snap:
		default:
			// Drop for a subscriber that can't keep up; it will catch
			// the next snapshot, which is a full state replacement
			// anyway.
		}
	}
}

// Snapshot assembles and returns the current state immediately,
// bypassing throttling, for a one-shot consumer such as a CLI status
// command that doesn't want to wait on a subscription.
func (b *Broadcaster) Snapshot() Snapshot {
	return b.assemble()
}

func (b *Broadcaster) assemble() Snapshot {
	agents := b.registry.List()

	var lightTasks []models.Task
	archived := 0
	if b.tasks != nil {
		for _, t := range b.tasks.All() {
			lightTasks = append(lightTasks, t.Light())
		}
		archived = b.tasks.ArchivedCount()
	}

	var performance []PerformanceSummary
	var recentMemory []models.TaskHistoryEntry
	if b.memory != nil {
		for _, a := range agents {
			logs := b.memory.PerformanceLogs(a.ID)
			performance = append(performance, PerformanceSummary{
				AgentID:        a.ID,
				OverallScore:   scorer.OverallScore(logs),
				RecentFailures: scorer.RecentFailureCount(logs),
			})
		}
		recentMemory = b.memory.RecentTaskHistory(defaultRecentMemorySize)
	}

	var activity []models.ActivityEntry
	if b.bus != nil {
		activity = b.bus.RecentActivity(defaultActivityTail)
	}

	return Snapshot{
		Agents:            agents,
		Tasks:             lightTasks,
		ArchivedTaskCount: archived,
		Performance:       performance,
		RecentMemory:      recentMemory,
		Activity:          activity,
		Timestamp:         time.Now(),
	}
}
