//go:build !unix

package selfsig

import (
	"errors"
	"syscall"
)

var errUnsupported = errors.New("signal delivery to self is not supported on this platform")

func (*Process) RestoreDefault(syscall.Signal) error {
	return errUnsupported
}

func (*Process) Raise(syscall.Signal) error {
	return errUnsupported
}
