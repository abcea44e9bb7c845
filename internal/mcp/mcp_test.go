package mcp

import (
	"context"
	"io"
	"os"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/startup"
	"github.com/deixis/startup/internal/config"
	"github.com/deixis/startup/internal/probe"
	"github.com/deixis/startup/internal/report"
	"github.com/deixis/startup/internal/runner"
)

// TestMain doubles as the self-test child when re-executed with "child".
func TestMain(m *testing.M) {
	if len(os.Args) > 1 && os.Args[1] == probe.ChildCommand {
		startup.Start(func(ctx context.Context, _ io.Writer) error {
			time.Sleep(time.Second)
			return startup.Exit(1)
		})
	}
	os.Exit(m.Run())
}

// setup creates a startup MCP server + client over in-memory transports.
func setup(t *testing.T, opts ...ServerOption) *mcp.ClientSession {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("probes need POSIX signals")
	}
	ctx := context.Background()

	cfg := &config.Config{}
	store := report.NewLRUStore(5, report.NewDiskStore())
	r := &runner.Runner{
		Workspace: t.TempDir(),
		Timeout:   10 * time.Second,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	server := NewServer(cfg, r, store, opts...)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var runIDPattern = regexp.MustCompile(`Run: (\S+)`)

func runID(t *testing.T, text string) string {
	t.Helper()
	m := runIDPattern.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no run ID in output:\n%s", text)
	}
	return m[1]
}

// --- startup_probe ---

func TestStartupProbe_DiesOfSignal(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_probe", map[string]any{
		"argv": []string{"sleep", "5"},
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"Status: PASS", "Sent: SIGINT after 100ms", "child correctly died of SIGINT"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output, got:\n%s", want, text)
		}
	}
}

func TestStartupProbe_ExitsInsteadOfDying(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_probe", map[string]any{
		"argv": []string{"sh", "-c", "trap 'exit 1' INT; while :; do sleep 0.05; done"},
	})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("expected Status: FAIL, got:\n%s", text)
	}
	if !strings.Contains(text, "child exited with status 1, expected to die of SIGINT") {
		t.Errorf("expected exit verdict, got:\n%s", text)
	}
}

func TestStartupProbe_ExpectExit(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_probe", map[string]any{
		"argv":     []string{"sh", "-c", "exit 3"},
		"expect":   "exit:3",
		"delay_ms": 2000,
	})
	text := resultText(res)
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("expected Status: PASS, got:\n%s", text)
	}
	if !strings.Contains(text, "Sent: nothing") {
		t.Errorf("expected no signal to be sent, got:\n%s", text)
	}
}

func TestStartupProbe_Count(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_probe", map[string]any{
		"argv":   []string{"true"},
		"expect": "exit:0",
		"count":  3,
	})
	text := resultText(res)
	if !strings.Contains(text, "Passed: 3/3") {
		t.Errorf("expected Passed: 3/3, got:\n%s", text)
	}
}

func TestStartupProbe_InvalidParams(t *testing.T) {
	cs := setup(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no argv", map[string]any{}, "argv is required"},
		{"bad signal", map[string]any{"argv": []string{"true"}, "signal": "SIGNOPE"}, "unknown signal"},
		{"bad expect", map[string]any{"argv": []string{"true"}, "expect": "core:dumped"}, "unknown expectation"},
		{"too many", map[string]any{"argv": []string{"true"}, "count": 500}, "at most"},
		{"missing binary", map[string]any{"argv": []string{"nonexistent-binary-xyz-123"}}, "nonexistent-binary-xyz-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, cs, "startup_probe", tt.args)
			text := resultText(res)
			if !res.IsError {
				t.Fatalf("expected error result, got:\n%s", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in error, got:\n%s", tt.want, text)
			}
		})
	}
}

// --- startup_inspect ---

func TestStartupInspect(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_probe", map[string]any{
		"argv":   []string{"sh", "-c", "echo to-stdout; echo to-stderr >&2"},
		"expect": "exit:0",
	})
	id := runID(t, resultText(res))

	res = callTool(t, cs, "startup_inspect", map[string]any{"run_id": id, "stream": "stdout"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "to-stdout") || strings.Contains(text, "to-stderr") {
		t.Errorf("expected stdout only, got:\n%s", text)
	}

	res = callTool(t, cs, "startup_inspect", map[string]any{"run_id": id})
	text = resultText(res)
	if !strings.Contains(text, "--- stdout ---\nto-stdout\n--- stderr ---\nto-stderr") {
		t.Errorf("expected both streams, got:\n%s", text)
	}
}

func TestStartupInspect_Errors(t *testing.T) {
	cs := setup(t)
	if res := callTool(t, cs, "startup_inspect", map[string]any{}); !res.IsError {
		t.Error("expected error without run_id")
	}
	if res := callTool(t, cs, "startup_inspect", map[string]any{"run_id": "nonexistent"}); !res.IsError {
		t.Error("expected error for unknown run")
	}
}

// --- startup_selftest ---

func TestStartupSelfTest(t *testing.T) {
	cs := setup(t, WithExecutable(os.Args[0]))
	res := callTool(t, cs, "startup_selftest", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Status: PASS") || !strings.Contains(text, "child correctly died of SIGINT") {
		t.Errorf("expected self-test to pass, got:\n%s", text)
	}
}

func TestStartupSelfTest_NoExecutable(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "startup_selftest", nil)
	if !res.IsError {
		t.Fatalf("expected error result, got:\n%s", resultText(res))
	}
}
