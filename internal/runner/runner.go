// Package runner executes commands within workspace bounds, optionally
// delivering a signal after a delay, and reports how each one terminated.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Spec describes one command execution.
type Spec struct {
	Argv []string
	Dir  string // relative to the workspace, or absolute within it
	Env  []string

	// Signal, when non-zero, is sent to the process After it starts.
	Signal syscall.Signal
	After  time.Duration
}

// Runner executes commands safely within a workspace boundary.
type Runner struct {
	Workspace string
	Timeout   time.Duration
	MaxOutput int // bytes
}

// Run executes spec.Argv. The first element is the binary name (resolved
// via PATH), and the rest are arguments. A process that exits nonzero or
// dies of a signal is not an error; only failing to start one is.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(spec.Dir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = dir
	if len(spec.Env) > 0 {
		cmd.Env = append(cmd.Environ(), spec.Env...)
	}
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("executing %s: %w", spec.Argv[0], err)
	}

	var timer *time.Timer
	delivered := make(chan bool, 1)
	if spec.Signal != 0 {
		timer = time.AfterFunc(spec.After, func() {
			delivered <- cmd.Process.Signal(spec.Signal) == nil
		})
	}

	runErr := cmd.Wait()
	res := &Result{
		RunID:     uuid.New().String(),
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput,
		TimedOut:  errors.Is(ctx.Err(), context.DeadlineExceeded),
		Duration:  time.Since(start),
	}
	if timer != nil && !timer.Stop() {
		// The timer fired; wait for the send to complete.
		res.Delivered = <-delivered
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("waiting for %s: %w", spec.Argv[0], runErr)
		}
		res.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Signaled = true
			res.Signal = status.Signal()
		}
	}
	return res, nil
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed so the child never sees a short write.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
