package collector

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// runExec spawns a shell for the configured command and captures trimmed
// stdout. Stderr is discarded. Spawn failure, non-zero exit, and timeout all
// surface as an error for the caller to turn into a diagnostic line.
func runExec(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
