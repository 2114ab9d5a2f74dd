// Package scorer classifies tasks into categories, scores completed
// outputs, and maintains the rolling per-agent/per-category
// performance averages agent selection draws on.
package scorer

import (
	"regexp"
	"strings"
)

// CategoryGeneral is attached when no category pattern matches.
const CategoryGeneral = "general"

// categoryPattern pairs a category label with the case-insensitive
// regular expression that attaches it to a task.
type categoryPattern struct {
	label   string
	pattern *regexp.Regexp
}

// categoryPatterns is evaluated in order against title ⊕ description;
// every matching label is attached, not just the first.
var categoryPatterns = []categoryPattern{
	{"python", regexp.MustCompile(`(?i)\b(python|pytest|django|flask|pip|\.py)\b`)},
	{"javascript", regexp.MustCompile(`(?i)\b(javascript|typescript|node|npm|react|vue|\.jsx?|\.tsx?)\b`)},
	{"web", regexp.MustCompile(`(?i)\b(html|css|frontend|ui|browser|dom|responsive)\b`)},
	{"api", regexp.MustCompile(`(?i)\b(api|endpoint|rest|graphql|route|handler)\b`)},
	{"test", regexp.MustCompile(`(?i)\b(test|pytest|spec|coverage|unit test|integration test|assertion)\b`)},
	{"refactor", regexp.MustCompile(`(?i)\b(refactor|cleanup|restructure|simplify|reorganize)\b`)},
	{"docs", regexp.MustCompile(`(?i)\b(docs?|documentation|readme|comment|changelog)\b`)},
	{"devops", regexp.MustCompile(`(?i)\b(docker|kubernetes|ci|cd|pipeline|deploy|terraform|infra)\b`)},
	{"data", regexp.MustCompile(`(?i)\b(database|sql|schema|migration|query|dataset|etl)\b`)},
	{"tool", regexp.MustCompile(`(?i)\b(cli|script|tool|automation|utility)\b`)},
}

// Classify returns every category label whose pattern matches title ⊕
// description, or []string{CategoryGeneral} if none match.
func Classify(title, description string) []string {
	text := strings.ToLower(title + " " + description)

	var tags []string
	for _, cp := range categoryPatterns {
		if cp.pattern.MatchString(text) {
			tags = append(tags, cp.label)
		}
	}

	if len(tags) == 0 {
		return []string{CategoryGeneral}
	}
	return tags
}
