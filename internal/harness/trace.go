package harness

import (
	"fmt"
	"io"
)

const (
	flushPrefix      = "detected during final output flush:\n"
	brokenPipeNotice = "broken pipe: output closed before final flush\n"
)

// Traced reports whether errors of kind k print a diagnostic.
func (p Policy) Traced(k Kind) bool {
	if k == Interrupt {
		return p.InterruptTrace
	}
	return p.ExceptionTrace
}

// report writes diagnostics for the phase results in order. Explicit exit
// messages are always written; failures only when the policy traces them.
func (h *Harness) report(results ...Result) {
	w := h.stderr()
	for _, r := range results {
		switch r.Kind {
		case ExplicitExit:
			if r.Message != "" {
				fmt.Fprintln(w, r.Message)
			}
		case Failure:
			if h.Policy.Traced(r.Err.Kind) {
				writeTrace(w, r.Err)
			}
		}
	}
}

func writeTrace(w io.Writer, c *CapturedError) {
	if c.Phase == OutputFlush {
		io.WriteString(w, flushPrefix)
		if c.Kind == BrokenPipe {
			// The pipe was already gone; a trace of the flush says nothing more.
			io.WriteString(w, brokenPipeNotice)
			return
		}
	}
	fmt.Fprintf(w, "%s: %s\n", label(c), c.Message)
	if c.Stack != "" {
		fmt.Fprintf(w, "\n%s\n", c.Stack)
	}
}

func label(c *CapturedError) string {
	switch {
	case c.Kind == Interrupt:
		return "signal"
	case c.Panicked:
		return "panic"
	default:
		return "error"
	}
}
