// Package eventbus is the orchestrator's internal pub/sub: components
// publish lifecycle events, subscribers receive them without the
// publisher blocking on a slow or absent reader, and a ring buffer keeps
// the recent activity that the broadcaster reads for its snapshots.
package eventbus

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

// Tag identifies the kind of event. Tags are grouped by the component
// that owns the underlying state (agent:*, task:*, result:*, system:*).
type Tag string

const (
	TagAgentStatusChanged Tag = "agent:status_changed"
	TagAgentEnergyChanged Tag = "agent:energy_changed"
	TagAgentLeveledUp     Tag = "agent:leveled_up"
	TagAgentXPGained      Tag = "agent:xp_gained"
	TagAgentError         Tag = "agent:error"
	TagAgentOffline       Tag = "agent:offline"
	TagTaskQueued         Tag = "task:queued"
	TagTaskStarted        Tag = "task:started"
	TagTaskAwaitingReview Tag = "task:awaiting_review"
	TagTaskCompleted      Tag = "task:completed"
	TagTaskFailed         Tag = "task:failed"
	TagTaskCancelled      Tag = "task:cancelled"
	TagSubtaskSpawned     Tag = "task:subtask_spawned"
	TagResultScored       Tag = "result:scored"
	TagSystemError        Tag = "system:error"
)

// Event is one pub/sub notification. AgentID and TaskID are empty when
// not applicable to a given Tag.
type Event struct {
	Tag       Tag
	AgentID   string
	TaskID    string
	Message   string
	Timestamp time.Time
}

// subscriberBufferSize bounds each subscriber's channel; a subscriber
// that cannot keep up has events dropped for it rather than blocking
// the publisher, matching the orchestrator's broader drop-over-block
// posture for anything that is advisory rather than load-bearing.
const subscriberBufferSize = 64

type subscriber struct {
	id int64
	ch chan Event
}

// Bus is a bounded, multi-subscriber event pub/sub with a fixed-size
// ring buffer of recent activity for late subscribers (e.g. a CLI
// command attaching after the system has been running for a while).
type Bus struct {
	mu          sync.RWMutex
	subs        map[int64]*subscriber
	nextSubID   int64
	nextEventID int64

	ring    []models.ActivityEntry
	ringCap int
	ringPos int
	ringLen int

	dropped atomic.Uint64
}

// New creates a Bus whose activity ring buffer holds ringCap entries.
func New(ringCap int) *Bus {
	if ringCap <= 0 {
		ringCap = models.MaxActivityEntries
	}
	return &Bus{
		subs:    make(map[int64]*subscriber),
		ring:    make([]models.ActivityEntry, ringCap),
		ringCap: ringCap,
	}
}

// Publish records ev in the activity ring buffer and delivers it to
// every current subscriber on a best-effort basis.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	id := b.nextEventID
	b.nextEventID++
	entry := models.ActivityEntry{
		ID:        id,
		Timestamp: ev.Timestamp,
		AgentID:   ev.AgentID,
		EventTag:  string(ev.Tag),
		Message:   ev.Message,
	}
	b.ring[b.ringPos] = entry
	b.ringPos = (b.ringPos + 1) % b.ringCap
	if b.ringLen < b.ringCap {
		b.ringLen++
	}

	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			count := b.dropped.Add(1)
			if count%10 == 1 {
				log.Printf("eventbus: subscriber %d buffer full, dropped event (total dropped: %d): tag=%s", s.id, count, ev.Tag)
			}
		}
	}
}

// Subscribe returns a channel of future events and an unsubscribe
// function. The channel is closed by Unsubscribe. Publish feeds it with
// non-blocking sends from the publisher's own goroutine, so events that
// arrive while its buffer is full are dropped for this subscriber.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	s := &subscriber{id: id, ch: make(chan Event, subscriberBufferSize)}
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

// RecentActivity returns up to n of the most recently published events,
// oldest first. It is used to seed a newly attached view without
// requiring it to have been subscribed since startup.
func (b *Bus) RecentActivity(n int) []models.ActivityEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.ringLen {
		n = b.ringLen
	}

	out := make([]models.ActivityEntry, n)
	start := (b.ringPos - n + b.ringCap) % b.ringCap
	for i := 0; i < n; i++ {
		out[i] = b.ring[(start+i)%b.ringCap]
	}
	return out
}

// DroppedCount returns the total number of events dropped across all
// subscribers due to a full buffer.
func (b *Bus) DroppedCount() uint64 {
	return b.dropped.Load()
}
