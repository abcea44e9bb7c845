package probe

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"

	"github.com/deixis/startup/internal/runner"
)

// Expectation is how a probed process should terminate: by Signal when it
// is non-zero, otherwise by exiting with ExitCode.
type Expectation struct {
	Signal   syscall.Signal
	ExitCode int
}

// ExpectSignal expects death by sig.
func ExpectSignal(sig syscall.Signal) Expectation {
	return Expectation{Signal: sig}
}

// ParseExpectation accepts "signal:SIGINT", "exit:3" or a bare signal name.
func ParseExpectation(s string) (Expectation, error) {
	kind, value, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		kind, value = "signal", kind
	}
	switch strings.ToLower(kind) {
	case "signal", "sig":
		if _, err := strconv.Atoi(value); err == nil && !found {
			return Expectation{}, fmt.Errorf("ambiguous expectation %q: use signal:%s or exit:%s", s, value, value)
		}
		sig, err := ParseSignal(value)
		if err != nil {
			return Expectation{}, fmt.Errorf("parsing expectation: %w", err)
		}
		return ExpectSignal(sig), nil
	case "exit", "status":
		code, err := strconv.Atoi(value)
		if err != nil || code < 0 || code > 255 {
			return Expectation{}, fmt.Errorf("invalid exit status %q", value)
		}
		return Expectation{ExitCode: code}, nil
	default:
		return Expectation{}, fmt.Errorf("unknown expectation %q (want signal:NAME or exit:N)", s)
	}
}

func (e Expectation) String() string {
	if e.Signal != 0 {
		return "signal:" + SignalName(e.Signal)
	}
	return "exit:" + strconv.Itoa(e.ExitCode)
}

func (e Expectation) want() string {
	if e.Signal != 0 {
		return "to die of " + SignalName(e.Signal)
	}
	return fmt.Sprintf("to exit with status %d", e.ExitCode)
}

// Judge compares how res terminated against e and returns the verdict.
func (e Expectation) Judge(res *runner.Result) (bool, string) {
	switch {
	case res.TimedOut:
		return false, "child did not terminate before the timeout, expected " + e.want()
	case e.Signal != 0 && res.Signaled && res.Signal == e.Signal:
		return true, "child correctly died of " + SignalName(e.Signal)
	case e.Signal != 0 && res.Signaled:
		return false, fmt.Sprintf("child died of signal %d instead of %s", int(res.Signal), SignalName(e.Signal))
	case e.Signal != 0:
		return false, fmt.Sprintf("child exited with status %d, expected %s", res.ExitCode, e.want())
	case res.Signaled:
		return false, fmt.Sprintf("child died of signal %d, expected %s", int(res.Signal), e.want())
	case res.ExitCode == e.ExitCode:
		return true, fmt.Sprintf("child correctly exited with status %d", res.ExitCode)
	default:
		return false, fmt.Sprintf("child exited with status %d instead of %d", res.ExitCode, e.ExitCode)
	}
}
