package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// capture runs fn once on its own goroutine and converts whatever ends it
// into a Result. An interrupt ends the phase at the point it arrives: the
// context is cancelled and the goroutine is abandoned.
func (h *Harness) capture(parent context.Context, phase Phase, fn func(context.Context) error) Result {
	ctx, cancel := context.WithCancelCause(parent)

	var gid atomic.Uint64
	done := make(chan Result, 1)
	go func() {
		gid.Store(goroutineID())
		finished := false
		defer func() {
			if v := recover(); v != nil {
				done <- recovered(phase, v, debug.Stack())
				return
			}
			if !finished {
				// runtime.Goexit unwound fn.
				done <- failed(phase, errors.New("main goroutine exited without returning"), nil)
			}
		}()
		err := fn(ctx)
		finished = true
		done <- returned(phase, err, context.Cause(ctx))
	}()

	select {
	case r := <-done:
		cancel(nil)
		return r
	case sig := <-h.Interrupts:
		cancel(ErrInterrupted)
		c := &CapturedError{
			Kind:    Interrupt,
			Phase:   phase,
			Message: sig.String(),
			Stack:   goroutineStack(gid.Load()),
			Err:     ErrInterrupted,
		}
		return Result{Kind: Failure, Err: c}
	}
}

func returned(phase Phase, err, cause error) Result {
	if err == nil {
		return Result{Kind: Normal}
	}
	if r, ok := exitRequest(err); ok {
		return r
	}
	return failed(phase, err, cause)
}

func recovered(phase Phase, v any, stack []byte) Result {
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	if r, ok := exitRequest(err); ok {
		return r
	}
	r := failed(phase, err, nil)
	r.Err.Panicked = true
	if !(phase == OutputFlush && r.Err.Kind == BrokenPipe) {
		r.Err.Stack = stripStack(string(stack), true)
	}
	return r
}

func failed(phase Phase, err, cause error) Result {
	return Result{Kind: Failure, Err: &CapturedError{
		Kind:    Classify(err, cause),
		Phase:   phase,
		Message: err.Error(),
		Err:     err,
	}}
}

func exitRequest(err error) (Result, bool) {
	var exit *ExitError
	if !errors.As(err, &exit) {
		return Result{}, false
	}
	return Result{Kind: ExplicitExit, Code: exit.Code, Message: exit.Message}, true
}

// sealedOutput guards the harness output. After seal, writes from a
// goroutine that outlived its phase fail instead of racing the flush.
type sealedOutput struct {
	mu     sync.Mutex
	out    Output
	sealed atomic.Bool
}

func (s *sealedOutput) Write(p []byte) (int, error) {
	if s.sealed.Load() {
		return 0, ErrOutputClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return len(p), nil
	}
	return s.out.Write(p)
}

func (s *sealedOutput) seal() {
	s.sealed.Store(true)
}

// Flush does not wait for a blocked writer: an interrupted program stuck
// writing to a slow reader must still terminate.
func (s *sealedOutput) Flush() error {
	if !s.mu.TryLock() {
		return ErrOutputBusy
	}
	defer s.mu.Unlock()
	if s.out == nil {
		return nil
	}
	return s.out.Flush()
}
