package harness

import (
	"context"
	"errors"
	"syscall"
)

// Classify labels a captured error. cause is the cancellation cause of the
// phase context, if any: a program that returns ctx.Err() after an interrupt
// was interrupted, not failed.
func Classify(err, cause error) Kind {
	switch {
	case errors.Is(err, ErrInterrupted):
		return Interrupt
	case errors.Is(err, context.Canceled) && errors.Is(cause, ErrInterrupted):
		return Interrupt
	case errors.Is(err, syscall.EPIPE):
		return BrokenPipe
	default:
		return Generic
	}
}
