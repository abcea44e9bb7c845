// Package probe runs a command, interrupts it, and judges whether it died
// the way a well-behaved utility should.
package probe

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deixis/startup/internal/config"
	"github.com/deixis/startup/internal/report"
	"github.com/deixis/startup/internal/runner"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, spec runner.Spec) (*runner.Result, error)
}

// Engine holds shared dependencies for probe operations. Store and
// Metrics are optional.
type Engine struct {
	Config  *config.Config
	Runner  CommandRunner
	Store   report.Store
	Metrics *Metrics
}

// Request describes one probe. Zero Signal and Delay take the configured
// defaults; a nil Expect expects death by the delivered signal.
type Request struct {
	Argv   []string
	Dir    string
	Env    []string
	Signal syscall.Signal
	Delay  time.Duration
	Expect *Expectation
}

// Self-test parameters: the child sleeps for a second, so an interrupt a
// tenth of a second in arrives while it is still running.
const (
	selfTestDelay = 100 * time.Millisecond
	ChildCommand  = "child"
)

// Probe runs req.Argv, delivers the signal after the delay and judges the
// termination.
func (e *Engine) Probe(ctx context.Context, req Request) (*report.RunResult, error) {
	return e.probe(ctx, report.Probe, req)
}

// ProbeN runs the same probe count times, at most parallel at once.
// Results are in run order.
func (e *Engine) ProbeN(ctx context.Context, req Request, count, parallel int) ([]*report.RunResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	results := make([]*report.RunResult, count)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i := range results {
		g.Go(func() error {
			rr, err := e.Probe(ctx, req)
			if err != nil {
				return fmt.Errorf("run %d: %w", i+1, err)
			}
			results[i] = rr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SelfTest re-executes exe as the harness child and checks that an
// interrupt kills it by SIGINT.
func (e *Engine) SelfTest(ctx context.Context, exe string) (*report.RunResult, error) {
	if exe == "" {
		return nil, errors.New("self-test needs the path of the startup executable")
	}
	expect := ExpectSignal(syscall.SIGINT)
	return e.probe(ctx, report.SelfTest, Request{
		Argv: []string{exe, ChildCommand},
		// An inherited trace setting would turn the signal death into exit 130.
		Env:    []string{"STARTUP_SIGINT="},
		Signal: syscall.SIGINT,
		Delay:  selfTestDelay,
		Expect: &expect,
	})
}

func (e *Engine) probe(ctx context.Context, kind report.Kind, req Request) (*report.RunResult, error) {
	if len(req.Argv) == 0 {
		return nil, errors.New("no command to probe")
	}
	sig := req.Signal
	if sig == 0 {
		var err error
		if sig, err = ParseSignal(e.Config.ProbeSignal()); err != nil {
			return nil, fmt.Errorf("configured probe signal: %w", err)
		}
	}
	delay := req.Delay
	if delay <= 0 {
		delay = e.Config.Delay()
	}
	expect := ExpectSignal(sig)
	if req.Expect != nil {
		expect = *req.Expect
	}

	res, err := e.Runner.Run(ctx, runner.Spec{
		Argv:   req.Argv,
		Dir:    req.Dir,
		Env:    req.Env,
		Signal: sig,
		After:  delay,
	})
	if err != nil {
		return nil, err
	}

	passed, verdict := expect.Judge(res)
	rr := &report.RunResult{
		ID:          res.RunID,
		Kind:        kind,
		Argv:        req.Argv,
		Signal:      SignalName(sig),
		DelayMS:     delay.Milliseconds(),
		Delivered:   res.Delivered,
		Expect:      expect.String(),
		Termination: termination(res),
		Passed:      passed,
		Verdict:     verdict,
		Stdout:      string(res.Stdout),
		Stderr:      string(res.Stderr),
		Truncated:   res.Truncated,
		DurationMS:  res.Duration.Milliseconds(),
	}
	e.Metrics.observe(rr)
	if e.Store != nil {
		if err := e.Store.Save(rr); err != nil {
			return rr, fmt.Errorf("saving run %s: %w", rr.ID, err)
		}
	}
	return rr, nil
}

func termination(res *runner.Result) report.Termination {
	t := report.Termination{
		Exited:   !res.Signaled,
		ExitCode: res.ExitCode,
		Signaled: res.Signaled,
		TimedOut: res.TimedOut,
	}
	if res.Signaled {
		t.Signal = SignalName(res.Signal)
	}
	return t
}
