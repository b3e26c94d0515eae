// Package run is the single shell-out primitive used by the OS adapters:
// paste keystroke simulation, media probe/toggle and the audio backend probe
// all go through a Runner so tests can substitute a fake.
package run

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one external command and captures its stdout.
type Runner interface {
	// Run executes name with args and returns trimmed stdout.
	// A non-zero exit or spawn failure is returned as an error that
	// includes the command's stderr.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

// New returns a Runner backed by os/exec.
func New() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return strings.TrimSpace(stdout.String()), fmt.Errorf("run %s: %w: %s", name, err, msg)
		}
		return strings.TrimSpace(stdout.String()), fmt.Errorf("run %s: %w", name, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
