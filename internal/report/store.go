// Package report persists probe and self-test results so their captured
// output can be inspected after the run.
package report

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Probe is a signal probe of an arbitrary command.
	Probe Kind = "probe"
	// SelfTest is the harness self-test against its own child.
	SelfTest Kind = "selftest"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// Termination records how a probed process ended.
type Termination struct {
	Exited   bool   `json:"exited"`
	ExitCode int    `json:"exit_code"`
	Signaled bool   `json:"signaled"`
	Signal   string `json:"signal,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

func (t Termination) String() string {
	switch {
	case t.TimedOut:
		return "killed at timeout"
	case t.Signaled:
		return "died of " + t.Signal
	default:
		return fmt.Sprintf("exited with status %d", t.ExitCode)
	}
}

// RunResult holds the outcome of one probe.
type RunResult struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Argv      []string `json:"argv"`
	Signal    string   `json:"signal,omitempty"`
	DelayMS   int64    `json:"delay_ms"`
	Delivered bool     `json:"delivered"`
	Expect    string   `json:"expect"`

	Termination Termination `json:"termination"`
	Passed      bool        `json:"passed"`
	Verdict     string      `json:"verdict"`

	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Status returns PASS or FAIL.
func (r *RunResult) Status() string {
	if r.Passed {
		return "PASS"
	}
	return "FAIL"
}

// Stream returns the captured output named by stream: "stdout", "stderr"
// or "all" (both, labelled).
func Stream(r *RunResult, stream string) (string, error) {
	switch stream {
	case "stdout":
		return r.Stdout, nil
	case "stderr":
		return r.Stderr, nil
	case "", "all":
		var b strings.Builder
		fmt.Fprintf(&b, "--- stdout ---\n%s", r.Stdout)
		if r.Stdout != "" && !strings.HasSuffix(r.Stdout, "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "--- stderr ---\n%s", r.Stderr)
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown stream %q (want stdout, stderr or all)", stream)
	}
}
