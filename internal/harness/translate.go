package harness

import (
	"fmt"
	"strings"
	"syscall"
)

// Outcome is the final process termination. When Signals is non-empty the
// process is meant to die by them, in order; Status is used only if it
// survives every delivery.
type Outcome struct {
	Status  int
	Signals []syscall.Signal
}

// Signaled reports whether the outcome is a death by signal.
func (o Outcome) Signaled() bool {
	return len(o.Signals) > 0
}

func (o Outcome) String() string {
	if !o.Signaled() {
		return fmt.Sprintf("exit status %d", o.Status)
	}
	names := make([]string, len(o.Signals))
	for i, sig := range o.Signals {
		names[i] = sig.String()
	}
	return fmt.Sprintf("signal %s (fallback exit status %d)", strings.Join(names, ", "), o.Status)
}

// Translate computes the outcome from the tentative status and the captured
// errors of both phases (either may be nil). With interrupt tracing off an
// interrupt becomes a real SIGINT death; a broken pipe always becomes a
// SIGPIPE death, delivered last so it wins if the process survives SIGINT.
func Translate(status int, policy Policy, errs ...*CapturedError) Outcome {
	o := Outcome{Status: status}
	if !policy.InterruptTrace && anyKind(Interrupt, errs) {
		o.Signals = append(o.Signals, syscall.SIGINT)
		o.Status = signalStatus(syscall.SIGINT)
	}
	if anyKind(BrokenPipe, errs) {
		o.Signals = append(o.Signals, syscall.SIGPIPE)
		o.Status = signalStatus(syscall.SIGPIPE)
	}
	return o
}

func anyKind(k Kind, errs []*CapturedError) bool {
	for _, c := range errs {
		if c != nil && c.Kind == k {
			return true
		}
	}
	return false
}
