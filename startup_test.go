package startup

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/deixis/startup/internal/harness"
)

func lookupFrom(vars map[string]string) Option {
	return WithLookup(func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	})
}

func buildHarness(t *testing.T, opts ...Option) *harness.Harness {
	t.Helper()
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	h, err := newHarness(o, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("newHarness: %v", err)
	}
	return h
}

func TestNewHarness_DefaultsFromEnv(t *testing.T) {
	h := buildHarness(t, lookupFrom(map[string]string{"STARTUP_SIGINT": "1"}))
	want := harness.Policy{InterruptTrace: true}
	if diff := cmp.Diff(want, h.Policy); diff != "" {
		t.Errorf("Policy mismatch (-want +got):\n%s", diff)
	}
	if h.Output == nil || h.Signals == nil || h.Exit == nil {
		t.Error("harness collaborators not set")
	}
}

func TestNewHarness_ExplicitBeatsEnv(t *testing.T) {
	h := buildHarness(t,
		lookupFrom(map[string]string{"STARTUP_SIGINT": "1", "STARTUP_DEBUG": "1"}),
		WithInterruptTrace(false),
	)
	want := harness.Policy{ExceptionTrace: true}
	if diff := cmp.Diff(want, h.Policy); diff != "" {
		t.Errorf("Policy mismatch (-want +got):\n%s", diff)
	}
}

func TestNewHarness_RenamedEnv(t *testing.T) {
	h := buildHarness(t,
		lookupFrom(map[string]string{"APP_DEBUG": "yes"}),
		WithEnv("", "APP_DEBUG"),
	)
	if !h.Policy.ExceptionTrace || h.Policy.InterruptTrace {
		t.Errorf("Policy = %+v, want exception trace only", h.Policy)
	}
}

func TestNewHarness_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".startup")
	data := "trace:\n  interrupt: true\n  exception_env: APP_DEBUG\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	h := buildHarness(t,
		lookupFrom(map[string]string{"APP_DEBUG": "1"}),
		WithConfigFile(path),
	)
	want := harness.Policy{InterruptTrace: true, ExceptionTrace: true}
	if diff := cmp.Diff(want, h.Policy); diff != "" {
		t.Errorf("Policy mismatch (-want +got):\n%s", diff)
	}
}

func TestNewHarness_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".startup")
	if err := os.WriteFile(path, []byte("trace: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := defaultOptions()
	WithConfigFile(path)(&o)
	if _, err := newHarness(o, log.New(&bytes.Buffer{}, "", 0)); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestExit(t *testing.T) {
	var exit *ExitError
	if !errors.As(Exit(3), &exit) || exit.Code != 3 || exit.Message != "" {
		t.Errorf("Exit(3) = %#v", Exit(3))
	}
	err := Exitf("missing %s", "FILE")
	if !errors.As(err, &exit) || exit.Code != 1 || exit.Message != "missing FILE" {
		t.Errorf("Exitf = %#v", err)
	}
	if err.Error() != "missing FILE" {
		t.Errorf("Error() = %q", err.Error())
	}
}
