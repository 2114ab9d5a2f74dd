package scorer

import (
	"strings"

	"github.com/agentforge/orchestrator/pkg/models"
)

// tokenBucketScore returns the partial score contributed by how many
// tokens a call consumed: small, focused responses score higher than
// sprawling ones, and very large responses score nothing extra.
func tokenBucketScore(tokens int64) int {
	switch {
	case tokens > 0 && tokens < 500:
		return 15
	case tokens >= 500 && tokens < 2000:
		return 12
	case tokens >= 2000 && tokens < 5000:
		return 8
	case tokens >= 5000 && tokens < 10000:
		return 4
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Score computes a completed task's 0-100 performance score from its
// parsed effects: files written, commands issued and executed, tokens
// consumed, and the raw model text (to detect attempted-but-malformed
// FILE markers that the parser silently dropped).
func Score(rawText string, files []models.FileIntent, commands []models.CommandIntent, outcomes []models.CommandOutcome, tokens int64, status models.TaskStatus) int {
	base := 0

	if len(files) > 0 {
		base += 20 + min(20, 5*len(files))
	}
	if strings.Contains(rawText, "FILE") {
		base += 15
	}

	if len(commands) > 0 {
		if len(outcomes) > 0 {
			successCount := 0
			for _, o := range outcomes {
				if o.Success {
					successCount++
				}
			}
			base += round(15 * float64(successCount) / float64(len(commands)))
		}
	} else {
		base += 10
	}

	base += tokenBucketScore(tokens)

	if status != models.TaskStatusFailed {
		base += 15
	}

	return clamp(base, 0, 100)
}

// ScoreFailure returns the fixed score assigned when a task threw
// rather than completing: 25 for a transport/rate-limit fault, 0 for
// anything else.
func ScoreFailure(kind models.ErrorKind) int {
	return models.FailureScore(kind)
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
