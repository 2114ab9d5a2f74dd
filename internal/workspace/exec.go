package workspace

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/agentforge/orchestrator/pkg/models"
)

// CommandTimeout bounds a single command's wall-clock execution.
const CommandTimeout = 120 * time.Second

const (
	successOutputTail = 500
	failureOutputTail = 300
)

// RunCommands executes each CommandIntent in order against root, honoring
// the model's emission order (commands must observe the ordering the
// model emitted them in, so no concurrent fan-out here). Each command's
// resolved cwd is created if missing and rejected if it escapes root.
// Execution continues past a single command's failure; the caller
// inspects CommandOutcome.Success per entry.
func RunCommands(ctx context.Context, root string, intents []models.CommandIntent) []models.CommandOutcome {
	outcomes := make([]models.CommandOutcome, 0, len(intents))

	for _, intent := range intents {
		outcomes = append(outcomes, runOne(ctx, root, intent))
	}

	return outcomes
}

func runOne(ctx context.Context, root string, intent models.CommandIntent) models.CommandOutcome {
	cwd, err := resolveUnderRoot(root, intent.Cwd)
	if err != nil {
		return models.CommandOutcome{Cwd: intent.Cwd, Cmd: intent.Cmd, Success: false, Output: err.Error()}
	}
	if err := os.MkdirAll(cwd, 0o755); err != nil {
		return models.CommandOutcome{Cwd: intent.Cwd, Cmd: intent.Cmd, Success: false, Output: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", intent.Cmd)
	cmd.Dir = cwd
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	output := combined.Bytes()

	if runErr != nil {
		return models.CommandOutcome{Cwd: intent.Cwd, Cmd: intent.Cmd, Success: false, Output: tail(output, failureOutputTail)}
	}
	return models.CommandOutcome{Cwd: intent.Cwd, Cmd: intent.Cmd, Success: true, Output: tail(output, successOutputTail)}
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
