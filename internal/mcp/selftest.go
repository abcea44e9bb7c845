package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type selfTestParams struct{}

func (h *handler) selfTestHandler(ctx context.Context, req *mcp.CallToolRequest, _ selfTestParams) (*mcp.CallToolResult, any, error) {
	if h.executable == "" {
		return errorResult("self-test is unavailable: the server was started without its executable path")
	}
	rr, err := h.snapshot().SelfTest(ctx, h.executable)
	if err != nil {
		return errorResult(fmt.Sprintf("self-test failed: %v", err))
	}
	return textResult(formatRun(rr))
}
