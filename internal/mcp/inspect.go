package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/startup/internal/report"
)

type inspectParams struct {
	RunID  string `json:"run_id,omitempty" jsonschema:"the run ID from a startup_probe or startup_selftest result"`
	Stream string `json:"stream,omitempty" jsonschema:"stdout, stderr, or all. Default: all."`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}
	out, err := report.Stream(result, params.Stream)
	if err != nil {
		return errorResult(err.Error())
	}
	return textResult(formatInspectOutput(result, out))
}

func formatInspectOutput(rr *report.RunResult, out string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s (%s)\n", rr.ID, rr.Kind)
	fmt.Fprintf(&b, "%s: %s\n", rr.Status(), rr.Verdict)
	if rr.Truncated {
		fmt.Fprintln(&b, "(output truncated)")
	}
	fmt.Fprintln(&b)
	if out == "" {
		fmt.Fprintln(&b, "(no output)")
		return b.String()
	}
	b.WriteString(out)
	if !strings.HasSuffix(out, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}
