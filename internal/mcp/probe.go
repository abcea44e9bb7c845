package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/startup/internal/probe"
	"github.com/deixis/startup/internal/report"
)

// maxProbeCount bounds repeated probes requested in one call.
const maxProbeCount = 50

type probeParams struct {
	Argv    []string `json:"argv,omitempty" jsonschema:"the command and its arguments, e.g. [\"./bin/tool\", \"--serve\"]"`
	Signal  string   `json:"signal,omitempty" jsonschema:"signal to send: a name such as SIGINT or INT, or a number. Default: SIGINT (or the .startup probe signal)."`
	DelayMS int      `json:"delay_ms,omitempty" jsonschema:"milliseconds to wait after start before signalling. Default: 100."`
	Expect  string   `json:"expect,omitempty" jsonschema:"expected termination: signal:NAME or exit:N. Default: death by the sent signal."`
	Cwd     string   `json:"cwd,omitempty" jsonschema:"working directory relative to the workspace root"`
	Count   int      `json:"count,omitempty" jsonschema:"number of times to run the probe, to catch intermittent failures. Default: 1."`
}

func (h *handler) probeHandler(ctx context.Context, req *mcp.CallToolRequest, params probeParams) (*mcp.CallToolResult, any, error) {
	if len(params.Argv) == 0 {
		return errorResult("argv is required")
	}
	r := probe.Request{
		Argv:  params.Argv,
		Dir:   params.Cwd,
		Delay: time.Duration(params.DelayMS) * time.Millisecond,
	}
	if params.Signal != "" {
		sig, err := probe.ParseSignal(params.Signal)
		if err != nil {
			return errorResult(err.Error())
		}
		r.Signal = sig
	}
	if params.Expect != "" {
		expect, err := probe.ParseExpectation(params.Expect)
		if err != nil {
			return errorResult(err.Error())
		}
		r.Expect = &expect
	}

	count := max(params.Count, 1)
	if count > maxProbeCount {
		return errorResult(fmt.Sprintf("count must be at most %d", maxProbeCount))
	}
	results, err := h.snapshot().ProbeN(ctx, r, count, 1)
	if err != nil {
		return errorResult(fmt.Sprintf("probe failed: %v", err))
	}
	if len(results) == 1 {
		return textResult(formatRun(results[0]))
	}
	return textResult(formatRuns(results))
}

func formatRun(rr *report.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", rr.Status())
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Command: %s\n", strings.Join(rr.Argv, " "))
	if rr.Delivered {
		fmt.Fprintf(&b, "Sent: %s after %dms\n", rr.Signal, rr.DelayMS)
	} else {
		fmt.Fprintf(&b, "Sent: nothing (exited before %s was due at %dms)\n", rr.Signal, rr.DelayMS)
	}
	fmt.Fprintf(&b, "Expected: %s\n", rr.Expect)
	fmt.Fprintf(&b, "Terminated: %s after %dms\n", rr.Termination, rr.DurationMS)
	fmt.Fprintf(&b, "Verdict: %s\n", rr.Verdict)
	if rr.Stdout != "" || rr.Stderr != "" {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Output captured (%d bytes stdout, %d bytes stderr). Use startup_inspect with run_id %s to view it.\n",
			len(rr.Stdout), len(rr.Stderr), rr.ID)
	}
	return b.String()
}

func formatRuns(results []*report.RunResult) string {
	passed := 0
	for _, rr := range results {
		if rr.Passed {
			passed++
		}
	}
	var b strings.Builder
	if passed == len(results) {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Passed: %d/%d\n", passed, len(results))
	fmt.Fprintln(&b)
	for i, rr := range results {
		fmt.Fprintf(&b, "%d. %s %s: %s\n", i+1, rr.Status(), rr.ID, rr.Verdict)
	}
	return b.String()
}
