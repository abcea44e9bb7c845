package runner

import (
	"syscall"
	"time"
)

// Result holds the output of a command execution.
type Result struct {
	RunID     string         // unique identifier for this run
	ExitCode  int            // process exit code, -1 when killed by a signal
	Signaled  bool           // true if the process died of a signal
	Signal    syscall.Signal // the terminating signal when Signaled
	Delivered bool           // true if the requested signal was sent
	TimedOut  bool           // true if the run was killed at the timeout
	Stdout    []byte         // captured stdout (may be truncated)
	Stderr    []byte         // captured stderr (may be truncated)
	Truncated bool           // true if output exceeded the size cap
	Duration  time.Duration
}
