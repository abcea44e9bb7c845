package harness

import "syscall"

// Kind classifies a captured error.
type Kind int

const (
	Generic Kind = iota
	Interrupt
	BrokenPipe
)

func (k Kind) String() string {
	switch k {
	case Interrupt:
		return "interrupt"
	case BrokenPipe:
		return "broken pipe"
	default:
		return "generic"
	}
}

// Phase identifies which step produced a captured error.
type Phase int

const (
	MainInvocation Phase = iota
	OutputFlush
)

func (p Phase) String() string {
	if p == OutputFlush {
		return "output flush"
	}
	return "main"
}

// CapturedError is one escape caught during a phase. It is created once and
// never modified.
type CapturedError struct {
	Kind     Kind
	Phase    Phase
	Message  string
	Stack    string // goroutine trace with harness frames removed; may be empty
	Err      error
	Panicked bool
}

// ResultKind discriminates Result.
type ResultKind int

const (
	Normal ResultKind = iota
	ExplicitExit
	Failure
)

// Result is what a phase produced: a normal return, an explicit exit request,
// or a captured failure.
type Result struct {
	Kind    ResultKind
	Code    int    // ExplicitExit
	Message string // ExplicitExit
	Err     *CapturedError
}

// tentative folds r into the running status. An explicit exit always
// replaces the status; a failure only sets it while nothing else has.
func (r Result) tentative(status int, explicit bool) (int, bool) {
	switch r.Kind {
	case ExplicitExit:
		return r.Code, true
	case Failure:
		if explicit || status != 0 {
			return status, explicit
		}
		return failureStatus(r.Err), false
	}
	return status, explicit
}

func failureStatus(c *CapturedError) int {
	switch {
	case c.Kind == Interrupt:
		return signalStatus(syscall.SIGINT)
	case c.Kind == BrokenPipe:
		return signalStatus(syscall.SIGPIPE)
	case c.Panicked:
		// Same status the runtime uses for an unrecovered panic.
		return 2
	default:
		return 1
	}
}

// signalStatus is the status a shell reports for a process killed by sig.
func signalStatus(sig syscall.Signal) int {
	return 128 + int(sig)
}
