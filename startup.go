// Package startup runs a program's entry point so the process behaves like a
// well-mannered Unix utility.
//
// Start invokes main once and flushes its buffered stdout. An interrupt
// (SIGINT) or a broken pipe ends the process by the same signal, after
// restoring the signal's default disposition, so shells and supervisors see
// a signal death rather than an exit status. Other failures exit nonzero.
// Whether a diagnostic trace is written for each kind of failure is decided
// once at entry from the options, the environment, and an optional
// .startup file:
//
//	func main() {
//		startup.Start(run)
//	}
//
//	func run(ctx context.Context, stdout io.Writer) error {
//		...
//		return startup.Exit(2)
//	}
//
// Set STARTUP_SIGINT to a non-empty value to trace interrupts instead of
// dying by SIGINT, and STARTUP_DEBUG to trace errors and panics.
package startup

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/deixis/startup/internal/config"
	"github.com/deixis/startup/internal/harness"
	"github.com/deixis/startup/internal/selfsig"
)

// Main is the wrapped entry point. stdout is buffered and flushed once main
// returns; a failed flush is handled like a failure of main.
type Main = harness.Main

// Output is a buffered stdout; bufio.Writer satisfies it.
type Output = harness.Output

// ExitError requests termination with an explicit status.
type ExitError = harness.ExitError

// Exit returns an error that, when returned or panicked from Main, ends the
// process with status code.
func Exit(code int) error {
	return &ExitError{Code: code}
}

// Exitf returns an explicit exit with status 1 whose message is written to
// stderr.
func Exitf(format string, args ...any) error {
	return &ExitError{Code: 1, Message: fmt.Sprintf(format, args...)}
}

// Start runs main under the harness and terminates the process. It never
// returns.
func Start(main Main, opts ...Option) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := log.New(os.Stderr, filepath.Base(os.Args[0])+": ", 0)

	h, err := newHarness(o, logger)
	if err != nil {
		logger.Print(err)
		os.Exit(1)
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	// With SIGPIPE notified, a write to a closed stdout or stderr returns
	// EPIPE instead of killing the process, so the harness can classify it.
	signal.Notify(make(chan os.Signal, 1), syscall.SIGPIPE)
	h.Interrupts = interrupts

	outcome := h.Run(context.Background(), main)
	signal.Stop(interrupts)
	h.Apply(outcome)
}

// newHarness resolves the options into a harness. Configuration is read here
// and nowhere else.
func newHarness(o options, logger *log.Logger) (*harness.Harness, error) {
	var cfg *config.Config
	if o.configFile != "" {
		var err error
		cfg, err = config.LoadFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	trace := config.Resolve(o.overrides, o.lookup, cfg)

	out := o.output
	if out == nil {
		out = bufio.NewWriter(os.Stdout)
	}
	return &harness.Harness{
		Policy: harness.Policy{
			InterruptTrace: trace.Interrupt,
			ExceptionTrace: trace.Exception,
		},
		Output:  out,
		Stderr:  o.stderr,
		Signals: selfsig.New(),
		Exit:    os.Exit,
		Log:     logger,
	}, nil
}
