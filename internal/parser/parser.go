// Package parser extracts FILE, EXEC, and SUBTASK blocks from raw model
// output and returns what remains as a residual explanation.
package parser

import (
	"regexp"
	"strings"

	"github.com/agentforge/orchestrator/pkg/models"
)

var (
	fileBlockPattern = regexp.MustCompile(`FILE\r?\npath: ([^\r\n]+)\r?\nCONTENT\r?\n([\s\S]*?)\r?\nEND_FILE`)
	execBlockPattern = regexp.MustCompile(`EXEC\r?\ncwd: ([^\r\n]+)\r?\ncmd: ([^\r\n]+)\r?\nEND_EXEC`)
	subtaskPattern   = regexp.MustCompile(`SUBTASK\r?\ntitle: ([^\r\n]+)\r?\nagent: ([^\r\n]+)\r?\ndescription: ([\s\S]*?)\r?\nEND_SUBTASK`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
)

// Parsed is the output of splitting raw model text into its structured
// effects plus whatever prose is left over.
type Parsed struct {
	Files       []models.FileIntent
	Commands    []models.CommandIntent
	Subtasks    []models.SubtaskIntent
	Explanation string
}

// Parse extracts every well-formed FILE, EXEC, and SUBTASK block from
// raw, in any order and without overlap, and returns the residual text
// with those blocks removed and runs of blank lines collapsed. Blocks
// missing their header or terminator are left untouched in the
// explanation rather than causing an error.
func Parse(raw string) Parsed {
	var spans [][2]int

	files, fileSpans := extractFiles(raw)
	commands, execSpans := extractCommands(raw)
	subtasks, subtaskSpans := extractSubtasks(raw)

	spans = append(spans, fileSpans...)
	spans = append(spans, execSpans...)
	spans = append(spans, subtaskSpans...)

	return Parsed{
		Files:       files,
		Commands:    commands,
		Subtasks:    subtasks,
		Explanation: residual(raw, spans),
	}
}

func extractFiles(raw string) ([]models.FileIntent, [][2]int) {
	matches := fileBlockPattern.FindAllStringSubmatchIndex(raw, -1)
	files := make([]models.FileIntent, 0, len(matches))
	spans := make([][2]int, 0, len(matches))

	for _, m := range matches {
		path := strings.TrimSpace(raw[m[2]:m[3]])
		content := raw[m[4]:m[5]]
		if path == "" {
			continue
		}
		files = append(files, models.FileIntent{Path: path, Content: content})
		spans = append(spans, [2]int{m[0], m[1]})
	}
	return files, spans
}

func extractCommands(raw string) ([]models.CommandIntent, [][2]int) {
	matches := execBlockPattern.FindAllStringSubmatchIndex(raw, -1)
	commands := make([]models.CommandIntent, 0, len(matches))
	spans := make([][2]int, 0, len(matches))

	for _, m := range matches {
		cwd := strings.TrimSpace(raw[m[2]:m[3]])
		cmd := strings.TrimSpace(raw[m[4]:m[5]])
		if cmd == "" {
			continue
		}
		commands = append(commands, models.CommandIntent{Cwd: cwd, Cmd: cmd})
		spans = append(spans, [2]int{m[0], m[1]})
	}
	return commands, spans
}

func extractSubtasks(raw string) ([]models.SubtaskIntent, [][2]int) {
	matches := subtaskPattern.FindAllStringSubmatchIndex(raw, -1)
	subtasks := make([]models.SubtaskIntent, 0, len(matches))
	spans := make([][2]int, 0, len(matches))

	for _, m := range matches {
		title := strings.TrimSpace(raw[m[2]:m[3]])
		agentID := strings.TrimSpace(raw[m[4]:m[5]])
		description := strings.TrimSpace(raw[m[6]:m[7]])
		if title == "" {
			continue
		}
		if agentID == "" {
			agentID = models.PreferredAgentAuto
		}
		subtasks = append(subtasks, models.SubtaskIntent{Title: title, AgentID: agentID, Description: description})
		spans = append(spans, [2]int{m[0], m[1]})
	}
	return subtasks, spans
}

// residual removes every matched span from raw and collapses the blank
// lines that removal tends to leave behind.
func residual(raw string, spans [][2]int) string {
	if len(spans) == 0 {
		return strings.TrimSpace(blankRunPattern.ReplaceAllString(raw, "\n\n"))
	}

	sortSpans(spans)

	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s[0] < last {
			continue // overlapping match from a different pattern; keep first
		}
		b.WriteString(raw[last:s[0]])
		last = s[1]
	}
	b.WriteString(raw[last:])

	collapsed := blankRunPattern.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(collapsed)
}

func sortSpans(spans [][2]int) {
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j-1][0] > spans[j][0]; j-- {
			spans[j-1], spans[j] = spans[j], spans[j-1]
		}
	}
}
