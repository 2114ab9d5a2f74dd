package orchestrator

import (
	"math/rand"
	"sort"

	"github.com/agentforge/orchestrator/internal/memory"
	"github.com/agentforge/orchestrator/internal/registry"
	"github.com/agentforge/orchestrator/internal/scorer"
	"github.com/agentforge/orchestrator/pkg/models"
)

// explorationBonus rewards an agent with too little history to trust
// its rolling average yet.
const explorationBonus = 15

// explorationObservationFloor is the total-observation count below
// which explorationBonus still applies.
const explorationObservationFloor = 3

// recentFailurePenaltyPerFailure is subtracted once per recent failure.
const recentFailurePenaltyPerFailure = 10

// selectionPoolSize bounds how many top-scoring candidates enter the
// weighted random draw.
const selectionPoolSize = 3

// candidate pairs an agent with its computed selection score.
type candidate struct {
	agent models.AgentState
	score float64
}

// SelectAgent picks which callable agent should run task. It returns
// ErrNoCallableAgent if none are eligible, leaving the task pending for
// the next dispatch tick.
func SelectAgent(task models.Task, callable []models.AgentState, mem *memory.Store) (models.AgentState, error) {
	if len(callable) == 0 {
		return models.AgentState{}, ErrNoCallableAgent
	}

	if task.HasConcretePreferredAgent() {
		for _, a := range callable {
			if a.ID == task.PreferredAgentID {
				return a, nil
			}
		}
	}

	tags := scorer.Classify(task.Title, task.Description)
	candidates := make([]candidate, 0, len(callable))
	for _, a := range callable {
		logs := mem.PerformanceLogs(a.ID)
		score := scorer.TypeScore(logs, tags)
		if scorer.TotalObservations(logs) < explorationObservationFloor {
			score += explorationBonus
		}
		score -= float64(scorer.RecentFailureCount(logs) * recentFailurePenaltyPerFailure)
		candidates = append(candidates, candidate{agent: a, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > selectionPoolSize {
		candidates = candidates[:selectionPoolSize]
	}

	return weightedChoice(candidates), nil
}

// weightedChoice draws one candidate with probability proportional to
// max(1, score).
func weightedChoice(candidates []candidate) models.AgentState {
	if len(candidates) == 1 {
		return candidates[0].agent
	}

	total := 0.0
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		w := c.score
		if w < 1 {
			w = 1
		}
		weights[i] = w
		total += w
	}

	draw := rand.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw <= cumulative {
			return candidates[i].agent
		}
	}
	return candidates[len(candidates)-1].agent
}

// Callable is a thin seam over registry.Registry.Callable so selection
// logic can be exercised in tests without a live registry.
type Callable interface {
	Callable() []models.AgentState
}

var _ Callable = (*registry.Registry)(nil)
