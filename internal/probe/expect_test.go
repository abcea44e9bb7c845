package probe

import (
	"syscall"
	"testing"

	"github.com/deixis/startup/internal/runner"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in   string
		want syscall.Signal
	}{
		{"SIGINT", syscall.SIGINT},
		{"INT", syscall.SIGINT},
		{"int", syscall.SIGINT},
		{"sigterm", syscall.SIGTERM},
		{"9", syscall.SIGKILL},
	}
	for _, tt := range tests {
		got, err := ParseSignal(tt.in)
		if err != nil {
			t.Errorf("ParseSignal(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"", "SIGNOPE", "0", "-1"} {
		if _, err := ParseSignal(bad); err == nil {
			t.Errorf("ParseSignal(%q): expected error", bad)
		}
	}
}

func TestSignalName(t *testing.T) {
	if got := SignalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SignalName(SIGINT) = %q", got)
	}
	if got := SignalName(syscall.Signal(250)); got != "signal 250" {
		t.Errorf("SignalName(250) = %q", got)
	}
}

func TestParseExpectation(t *testing.T) {
	tests := []struct {
		in   string
		want Expectation
	}{
		{"signal:SIGINT", Expectation{Signal: syscall.SIGINT}},
		{"SIGTERM", Expectation{Signal: syscall.SIGTERM}},
		{"sig:9", Expectation{Signal: syscall.SIGKILL}},
		{"exit:3", Expectation{ExitCode: 3}},
		{"exit:0", Expectation{}},
	}
	for _, tt := range tests {
		got, err := ParseExpectation(tt.in)
		if err != nil {
			t.Errorf("ParseExpectation(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseExpectation(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	for _, bad := range []string{"2", "exit:x", "exit:300", "core:dumped", "signal:NOPE"} {
		if _, err := ParseExpectation(bad); err == nil {
			t.Errorf("ParseExpectation(%q): expected error", bad)
		}
	}
}

func TestExpectation_String(t *testing.T) {
	if got := ExpectSignal(syscall.SIGINT).String(); got != "signal:SIGINT" {
		t.Errorf("String() = %q", got)
	}
	if got := (Expectation{ExitCode: 4}).String(); got != "exit:4" {
		t.Errorf("String() = %q", got)
	}
}

func TestExpectation_Judge(t *testing.T) {
	sigint := ExpectSignal(syscall.SIGINT)
	exit3 := Expectation{ExitCode: 3}
	tests := []struct {
		name    string
		expect  Expectation
		res     runner.Result
		passed  bool
		verdict string
	}{
		{
			name:    "died of expected signal",
			expect:  sigint,
			res:     runner.Result{ExitCode: -1, Signaled: true, Signal: syscall.SIGINT},
			passed:  true,
			verdict: "child correctly died of SIGINT",
		},
		{
			name:    "died of other signal",
			expect:  sigint,
			res:     runner.Result{ExitCode: -1, Signaled: true, Signal: syscall.SIGTERM},
			verdict: "child died of signal 15 instead of SIGINT",
		},
		{
			name:    "exited instead of signal",
			expect:  sigint,
			res:     runner.Result{ExitCode: 1},
			verdict: "child exited with status 1, expected to die of SIGINT",
		},
		{
			name:    "timed out",
			expect:  sigint,
			res:     runner.Result{ExitCode: -1, Signaled: true, Signal: syscall.SIGKILL, TimedOut: true},
			verdict: "child did not terminate before the timeout, expected to die of SIGINT",
		},
		{
			name:    "expected exit status",
			expect:  exit3,
			res:     runner.Result{ExitCode: 3},
			passed:  true,
			verdict: "child correctly exited with status 3",
		},
		{
			name:    "wrong exit status",
			expect:  exit3,
			res:     runner.Result{ExitCode: 130},
			verdict: "child exited with status 130 instead of 3",
		},
		{
			name:    "signal instead of exit",
			expect:  exit3,
			res:     runner.Result{ExitCode: -1, Signaled: true, Signal: syscall.SIGINT},
			verdict: "child died of signal 2, expected to exit with status 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, verdict := tt.expect.Judge(&tt.res)
			if passed != tt.passed || verdict != tt.verdict {
				t.Errorf("Judge = (%v, %q), want (%v, %q)", passed, verdict, tt.passed, tt.verdict)
			}
		})
	}
}
