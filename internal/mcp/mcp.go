// Package mcp provides the startup MCP server, exposing signal probes and
// the harness self-test as tools.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/startup"
	"github.com/deixis/startup/internal/config"
	"github.com/deixis/startup/internal/probe"
	"github.com/deixis/startup/internal/report"
	"github.com/deixis/startup/internal/runner"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	mu         sync.Mutex // guards engine and runner against root updates
	engine     *probe.Engine
	runner     *runner.Runner
	store      report.Store
	executable string // startup binary re-executed by the self-test
}

// NewServer creates an MCP server with all startup tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, opts ...ServerOption) *mcp.Server {
	var so serverOptions
	for _, o := range opts {
		o(&so)
	}
	h := &handler{
		engine: &probe.Engine{
			Config:  cfg,
			Runner:  r,
			Store:   store,
			Metrics: so.metrics,
		},
		runner:     r,
		store:      store,
		executable: so.executable,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "startup", Version: startup.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "startup_probe",
		Description: `Run a command, send it a signal after a delay, and check how it terminated.

A well-behaved command-line program interrupted with SIGINT dies of SIGINT rather than
exiting with a status code, so shells and supervisors can tell it was interrupted.
By default the probe sends SIGINT and expects death by that signal; set expect to
"exit:N" or "signal:NAME" to check something else. Captured output is stored for
startup_inspect.`,
	}, h.probeHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "startup_selftest",
		Description: `Check that the harness itself turns an interrupt into a death by SIGINT.

Re-executes the startup binary as a child that sleeps for a second, interrupts it after
100ms, and reports PASS or FAIL.`,
	}, h.selfTestHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "startup_inspect",
		Description: `Show the captured output of a startup_probe or startup_selftest run.

Use the run_id from the tool output. stream selects stdout, stderr, or all (default).`,
	}, h.inspectHandler)

	return s
}

// ServerOption configures the startup MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	executable string
	metrics    *probe.Metrics
}

// WithExecutable sets the startup binary used by startup_selftest.
func WithExecutable(path string) ServerOption {
	return func(o *serverOptions) {
		o.executable = path
	}
}

// WithMetrics records probe outcomes in m.
func WithMetrics(m *probe.Metrics) ServerOption {
	return func(o *serverOptions) {
		o.metrics = m
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and points the
// runner and engine at the first file root, reloading its .startup file.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.runner.Workspace = workspace
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes()
	h.engine.Config = loaded.Config
}

// snapshot returns a copy of the engine safe to use outside the lock.
func (h *handler) snapshot() *probe.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := *h.runner
	e := *h.engine
	e.Runner = &r
	return &e
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
