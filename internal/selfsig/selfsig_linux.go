//go:build linux && !mips && !mipsle && !mips64 && !mips64le

package selfsig

import (
	"os/signal"
	"runtime"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernelSigaction is large enough for struct sigaction on every supported
// architecture. All-zero is SIG_DFL with no flags and an empty mask.
type kernelSigaction [8]uint64

// sigsetSize is sizeof(sigset_t) as the kernel expects it (64 signals).
const sigsetSize = 8

// RestoreDefault stops os/signal delivery of sig and sets its kernel
// disposition to SIG_DFL.
func (*Process) RestoreDefault(sig syscall.Signal) error {
	signal.Reset(sig)
	var sa kernelSigaction
	_, _, errno := unix.RawSyscall6(unix.SYS_RT_SIGACTION,
		uintptr(sig), uintptr(unsafe.Pointer(&sa)), 0, sigsetSize, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Raise sends sig to the calling thread. With a default disposition of
// terminate the process dies before Raise returns; if it returns, the
// signal is blocked or ignored somewhere the process cannot change.
func (*Process) Raise(sig syscall.Signal) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := unix.Tgkill(unix.Getpid(), unix.Gettid(), sig); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		runtime.Gosched()
	}
	return nil
}
