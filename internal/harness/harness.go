// Package harness runs a program's entry point once, captures how it ended,
// and turns that into the process termination a shell expects: exit with a
// status, or die by SIGINT/SIGPIPE when the program was interrupted or its
// output pipe was closed.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"syscall"
)

var (
	// ErrInterrupted is the cancellation cause of the context handed to Main
	// when an interrupt arrives.
	ErrInterrupted = errors.New("interrupted")

	// ErrOutputClosed is returned by writes to stdout after Main has
	// returned or been abandoned.
	ErrOutputClosed = errors.New("output closed")

	// ErrOutputBusy is returned by the final flush when a write from an
	// abandoned Main is still blocked on the output.
	ErrOutputBusy = errors.New("output busy: write in progress")
)

// Main is the wrapped entry point. Writes to stdout are buffered and flushed
// by the harness after Main returns.
type Main func(ctx context.Context, stdout io.Writer) error

// Output is the buffered output stream flushed after the invocation.
type Output interface {
	io.Writer
	Flush() error
}

// Signaler delivers a signal to the current process with its default
// disposition restored. Implemented by selfsig.Process.
type Signaler interface {
	RestoreDefault(sig syscall.Signal) error
	Raise(sig syscall.Signal) error
}

// Policy controls which captured errors print a diagnostic trace.
type Policy struct {
	InterruptTrace bool
	ExceptionTrace bool
}

// Harness wraps one invocation. Fields are collaborators; none of them is
// read from the environment.
type Harness struct {
	Policy Policy
	Output Output
	Stderr io.Writer

	// Interrupts delivers interrupt notifications. A nil channel never fires.
	Interrupts <-chan os.Signal

	Signals Signaler
	Exit    func(code int)
	Log     *log.Logger
}

// Run invokes main, flushes the output, reports captured errors and returns
// the outcome. It has no process-level side effects; see Apply.
func (h *Harness) Run(ctx context.Context, main Main) Outcome {
	out := &sealedOutput{out: h.Output}

	first := h.capture(ctx, MainInvocation, func(ctx context.Context) error {
		return main(ctx, out)
	})
	out.seal()
	second := h.capture(ctx, OutputFlush, func(context.Context) error {
		return out.Flush()
	})

	status, explicit := first.tentative(0, false)
	status, _ = second.tentative(status, explicit)

	h.report(first, second)
	return Translate(status, h.Policy, first.Err, second.Err)
}

// Apply terminates the process according to o. Each signal is raised with
// its default disposition restored; if the process survives all of them it
// exits with o.Status.
func (h *Harness) Apply(o Outcome) {
	for _, sig := range o.Signals {
		if err := h.Signals.RestoreDefault(sig); err != nil {
			h.logf("restoring default action for %v: %v", sig, err)
			continue
		}
		if err := h.Signals.Raise(sig); err != nil {
			h.logf("raising %v: %v", sig, err)
		}
	}
	h.Exit(o.Status)
}

func (h *Harness) logf(format string, args ...any) {
	if h.Log != nil {
		h.Log.Printf(format, args...)
	}
}

func (h *Harness) stderr() io.Writer {
	if h.Stderr == nil {
		return io.Discard
	}
	return h.Stderr
}

// ExitError requests termination with an explicit status. It is not a
// failure: it bypasses classification and is never traced.
type ExitError struct {
	Code    int
	Message string // written to stderr on exit when non-empty
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit status %d", e.Code)
}
