package scorer

import (
	"sort"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

// defaultCategoryScore is returned for a category with no recorded
// history, keeping a brand-new agent competitive rather than starting
// at zero.
const defaultCategoryScore = 50

// recentFailureWindow bounds how many of an agent's most recent scores
// (across all categories) are inspected for the recent-failure count.
const recentFailureWindow = 5

// recentFailureThreshold is the score below which a record counts as a
// recent failure.
const recentFailureThreshold = 30

// AppendRecord appends rec to log, trims to the most recent
// MaxPerformanceRecords entries, and recomputes the rolling average.
// The Memory Store owns the map this is called against; this function
// is a pure transformation so it is easy to test independent of
// storage.
func AppendRecord(log models.PerformanceLog, rec models.PerformanceRecord) models.PerformanceLog {
	log.Scores = append(log.Scores, rec)
	if len(log.Scores) > models.MaxPerformanceRecords {
		log.Scores = log.Scores[len(log.Scores)-models.MaxPerformanceRecords:]
	}
	log.Count = len(log.Scores)
	log.Avg = average(log.Scores)
	return log
}

func average(records []models.PerformanceRecord) int {
	if len(records) == 0 {
		return 0
	}
	sum := 0
	for _, r := range records {
		sum += r.Score
	}
	return round(float64(sum) / float64(len(records)))
}

// CategoryScore returns the rolling average for one agent/category
// pair, or defaultCategoryScore if there is no history yet.
func CategoryScore(logs map[string]models.PerformanceLog, category string) int {
	log, ok := logs[category]
	if !ok || log.Count == 0 {
		return defaultCategoryScore
	}
	return log.Avg
}

// TotalObservations sums the record counts across every category this
// agent has been scored in, used to decide whether the exploration
// bonus still applies.
func TotalObservations(logs map[string]models.PerformanceLog) int {
	total := 0
	for _, log := range logs {
		total += log.Count
	}
	return total
}

// TypeScore is the mean of CategoryScore across tags, the basis for
// agent selection's typeScore.
func TypeScore(logs map[string]models.PerformanceLog, tags []string) float64 {
	if len(tags) == 0 {
		return defaultCategoryScore
	}
	sum := 0
	for _, tag := range tags {
		sum += CategoryScore(logs, tag)
	}
	return float64(sum) / float64(len(tags))
}

// OverallScore is the arithmetic mean of every category's average, or
// 50 if the agent has no records at all.
func OverallScore(logs map[string]models.PerformanceLog) int {
	if len(logs) == 0 {
		return defaultCategoryScore
	}
	sum := 0
	count := 0
	for _, log := range logs {
		if log.Count == 0 {
			continue
		}
		sum += log.Avg
		count++
	}
	if count == 0 {
		return defaultCategoryScore
	}
	return round(float64(sum) / float64(count))
}

// RecentFailureCount counts scores below recentFailureThreshold among
// the recentFailureWindow most-recent records across all categories
// for one agent, ordered by timestamp.
func RecentFailureCount(logs map[string]models.PerformanceLog) int {
	var all []models.PerformanceRecord
	for _, log := range logs {
		all = append(all, log.Scores...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if len(all) > recentFailureWindow {
		all = all[:recentFailureWindow]
	}

	failures := 0
	for _, r := range all {
		if r.Score < recentFailureThreshold {
			failures++
		}
	}
	return failures
}

// NewRecord constructs a PerformanceRecord stamped at now for the given
// score and task id, a small helper so callers don't reimplement the
// struct literal at every call site.
func NewRecord(score int, taskID string, now time.Time) models.PerformanceRecord {
	return models.PerformanceRecord{Score: score, TaskID: taskID, Timestamp: now}
}
