// Command startup probes how programs terminate when signalled and checks
// its own harness.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/deixis/startup"
	"github.com/deixis/startup/internal/config"
	smcp "github.com/deixis/startup/internal/mcp"
	"github.com/deixis/startup/internal/probe"
	"github.com/deixis/startup/internal/report"
	"github.com/deixis/startup/internal/runner"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("startup: ")

	opts := []startup.Option{startup.WithConfigFile(config.FileName)}
	if len(os.Args) > 1 && os.Args[1] == probe.ChildCommand {
		// The self-test subject dies of SIGINT whatever the local settings.
		opts = []startup.Option{startup.WithInterruptTrace(false)}
	}
	startup.Start(func(ctx context.Context, stdout io.Writer) error {
		return run(ctx, stdout, os.Args[1:])
	}, opts...)
}

// errUsage ends the process with status 2 after the usage has been shown.
var errUsage = startup.Exit(2)

func run(ctx context.Context, stdout io.Writer, args []string) error {
	if len(args) < 1 {
		usage()
		return errUsage
	}

	cmd := args[0]
	args = args[1:]

	var err error
	switch cmd {
	case "probe":
		err = probeMain(ctx, stdout, args)
	case "selftest":
		err = selfTestMain(ctx, stdout, args)
	case "mcp":
		err = mcpMain(ctx, stdout, args)
	case probe.ChildCommand:
		// Self-test subject: still running when the interrupt arrives.
		time.Sleep(time.Second)
		return startup.Exit(1)
	case "version":
		fmt.Fprintln(stdout, startup.Version)
	case "help", "-h", "--help":
		usage()
	default:
		log.Printf("unknown command %q", cmd)
		usage()
		return errUsage
	}

	var exit *startup.ExitError
	if err != nil && !errors.As(err, &exit) {
		log.Print(err)
		return startup.Exit(1)
	}
	return err
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: startup <command> [flags]

Commands:
  probe       Run a command, signal it, and check how it terminated
  selftest    Check that an interrupt kills a harnessed program by SIGINT
  mcp         Start the MCP server
  version     Print the version
  help        Show this help

Use "startup <command> -h" for command-specific flags.`)
}

// parseFlags parses args into fs, turning -h into a clean exit and flag
// errors into a usage error.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	err := fs.Parse(args)
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return false, nil
	case err != nil:
		return false, errUsage
	}
	return true, nil
}

// --- probe ---

func probeMain(ctx context.Context, stdout io.Writer, args []string) error {
	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: startup probe [flags] [--] command [args...]")
		fs.PrintDefaults()
	}
	signalFlag := fs.StringP("signal", "s", "", "signal to send (default from .startup, else SIGINT)")
	delayFlag := fs.DurationP("delay", "d", 0, "wait before signalling (default from .startup, else 100ms)")
	expectFlag := fs.StringP("expect", "e", "", "expected termination: signal:NAME or exit:N (default: death by the sent signal)")
	countFlag := fs.IntP("count", "n", 1, "number of runs")
	parallelFlag := fs.IntP("parallel", "p", 1, "runs in flight at once")
	timeoutFlag := fs.Duration("timeout", 0, "override configured timeout (e.g. 10s)")
	jsonFlag := fs.Bool("json", false, "output results as JSON")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	req := probe.Request{Argv: fs.Args(), Delay: *delayFlag}
	if *signalFlag != "" {
		sig, err := probe.ParseSignal(*signalFlag)
		if err != nil {
			return err
		}
		req.Signal = sig
	}
	if *expectFlag != "" {
		expect, err := probe.ParseExpectation(*expectFlag)
		if err != nil {
			return err
		}
		req.Expect = &expect
	}

	eng, err := newEngine(*timeoutFlag)
	if err != nil {
		return err
	}
	results, err := eng.ProbeN(ctx, req, *countFlag, *parallelFlag)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	if *jsonFlag {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		var v any = results
		if len(results) == 1 {
			v = results[0]
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	} else if err := writeProbeCLI(stdout, results); err != nil {
		return err
	}

	for _, rr := range results {
		if !rr.Passed {
			return startup.Exit(1)
		}
	}
	return nil
}

func writeProbeCLI(w io.Writer, results []*report.RunResult) error {
	passed := 0
	for _, rr := range results {
		if rr.Passed {
			passed++
		}
	}
	if passed == len(results) {
		fmt.Fprint(w, "ok")
	} else {
		fmt.Fprint(w, "FAIL")
	}
	if len(results) > 1 {
		fmt.Fprintf(w, " (%d/%d passed)", passed, len(results))
	}
	fmt.Fprint(w, "\n\n")

	table := tablewriter.NewWriter(w)
	if len(results) == 1 {
		rr := results[0]
		sent := fmt.Sprintf("%s after %dms", rr.Signal, rr.DelayMS)
		if !rr.Delivered {
			sent = "nothing (exited first)"
		}
		table.Header("Property", "Value")
		table.Append([]string{"Command", strings.Join(rr.Argv, " ")})
		table.Append([]string{"Sent", sent})
		table.Append([]string{"Expected", rr.Expect})
		table.Append([]string{"Terminated", rr.Termination.String()})
		table.Append([]string{"Verdict", rr.Verdict})
	} else {
		table.Header("#", "Status", "Terminated", "Duration")
		for i, rr := range results {
			table.Append([]string{
				fmt.Sprint(i + 1),
				rr.Status(),
				rr.Termination.String(),
				fmt.Sprintf("%dms", rr.DurationMS),
			})
		}
	}
	return table.Render()
}

// --- selftest ---

// Interactive self-test messages.
const (
	interactivePrompt  = "press ^C now (within 5 seconds)"
	interactiveFailure = "apparently failed, or ^C too late"
	interactiveWindow  = 5 * time.Second
)

func selfTestMain(ctx context.Context, stdout io.Writer, args []string) error {
	fs := pflag.NewFlagSet("selftest", pflag.ContinueOnError)
	auto := fs.BoolP("automated", "a", false, "interrupt a child automatically and report PASS or FAIL")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if !*auto {
		return interactiveSelfTest(ctx)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	eng, err := newEngine(0)
	if err != nil {
		return err
	}
	rr, err := eng.SelfTest(ctx, exe)
	if err != nil {
		return fmt.Errorf("self-test: %w", err)
	}
	fmt.Fprintf(stdout, "%s: %s\n", rr.Status(), rr.Verdict)
	if !rr.Passed {
		return startup.Exit(1)
	}
	return nil
}

// interactiveSelfTest waits for the user to press ^C. When the harness
// works the process dies of SIGINT and this never returns.
func interactiveSelfTest(ctx context.Context) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("interactive self-test needs a terminal; use -a")
	}
	fmt.Fprintln(os.Stderr, interactivePrompt)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interactiveWindow):
	}
	return startup.Exitf(interactiveFailure)
}

// --- mcp ---

func mcpMain(ctx context.Context, stdout io.Writer, args []string) error {
	fs := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090), with /metrics")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	if *instructions {
		fmt.Fprint(stdout, smcp.Instructions)
		return nil
	}
	return serve(ctx, *httpAddr)
}

func serve(ctx context.Context, httpAddr string) error {
	workspace, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	disk := report.NewDiskStore()
	store := report.NewLRUStore(5, disk)

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(),
	}

	var opts []smcp.ServerOption
	if exe, err := os.Executable(); err == nil {
		opts = append(opts, smcp.WithExecutable(exe))
	} else {
		log.Printf("self-test unavailable: %v", err)
	}

	if httpAddr == "" {
		server := smcp.NewServer(cfg, r, store, opts...)
		return server.Run(ctx, &mcpsdk.StdioTransport{})
	}

	reg := prometheus.NewRegistry()
	opts = append(opts, smcp.WithMetrics(probe.NewMetrics(reg)))
	server := smcp.NewServer(cfg, r, store, opts...)
	return serveHTTP(ctx, server, reg, httpAddr)
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, reg *prometheus.Registry, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- shared ---

func newEngine(timeoutOverride time.Duration) (*probe.Engine, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}

	r := &runner.Runner{
		Workspace: workspace,
		Timeout:   timeout,
		MaxOutput: cfg.MaxOutputBytes(),
	}

	return &probe.Engine{Config: cfg, Runner: r}, nil
}
