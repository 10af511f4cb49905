package classify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Runner executes the external classifier for one panel and returns its raw
// stdout. The payload is the JSON document of measurement values.
type Runner interface {
	Run(ctx context.Context, panelID int64, payload []byte) ([]byte, error)
}

// ProcessRunner invokes the classifier as a subprocess, passing the panel id
// and the payload as arguments.
type ProcessRunner struct {
	Command string
	Script  string
	Timeout time.Duration
}

func NewProcessRunner(command, script string, timeout time.Duration) *ProcessRunner {
	return &ProcessRunner{Command: command, Script: script, Timeout: timeout}
}

func (r *ProcessRunner) Run(ctx context.Context, panelID int64, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Command, r.Script, strconv.FormatInt(panelID, 10), string(payload))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("classifier timed out after %s: %w", r.Timeout, ctx.Err())
		}
		return nil, fmt.Errorf("classifier exited with error: %w (stderr: %s)", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
