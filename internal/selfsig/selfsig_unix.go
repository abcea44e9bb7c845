//go:build unix && (!linux || mips || mipsle || mips64 || mips64le)

package selfsig

import (
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// RestoreDefault stops os/signal delivery of sig. The runtime handler stays
// installed; it terminates the process for SIGINT but not for SIGPIPE, in
// which case the caller's fallback status applies.
func (*Process) RestoreDefault(sig syscall.Signal) error {
	signal.Reset(sig)
	return nil
}

// Raise sends sig to the current process.
func (*Process) Raise(sig syscall.Signal) error {
	if err := unix.Kill(unix.Getpid(), sig); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		runtime.Gosched()
	}
	return nil
}
