// Package selfsig delivers a signal to the current process with the signal's
// default disposition restored, so the process dies the way it would have
// without the Go runtime's handlers installed.
//
// The Go runtime keeps its own handler installed after signal.Reset and
// ignores a self-sent SIGPIPE, so on Linux the kernel disposition is reset
// directly and the signal is sent to the calling thread.
package selfsig

// Process is the current process.
type Process struct{}

// New returns the current process.
func New() *Process {
	return &Process{}
}
