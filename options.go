package startup

import (
	"io"
	"os"

	"github.com/deixis/startup/internal/config"
)

// Option configures Start.
type Option func(*options)

type options struct {
	overrides  config.Overrides
	lookup     config.Lookup
	configFile string
	output     Output
	stderr     io.Writer
}

func defaultOptions() options {
	return options{
		lookup: os.LookupEnv,
		stderr: os.Stderr,
	}
}

// WithInterruptTrace sets whether an interrupt writes a stack trace. When
// enabled the process exits with status 130 instead of dying by SIGINT.
func WithInterruptTrace(enabled bool) Option {
	return func(o *options) {
		o.overrides.Interrupt = &enabled
	}
}

// WithExceptionTrace sets whether errors, panics and broken pipes write a
// diagnostic.
func WithExceptionTrace(enabled bool) Option {
	return func(o *options) {
		o.overrides.Exception = &enabled
	}
}

// WithEnv renames the variables consulted when a trace setting is not given
// explicitly. Empty names keep the defaults.
func WithEnv(interruptVar, exceptionVar string) Option {
	return func(o *options) {
		o.overrides.InterruptEnv = interruptVar
		o.overrides.ExceptionEnv = exceptionVar
	}
}

// WithLookup replaces os.LookupEnv as the source of trace variables.
func WithLookup(lookup func(name string) (string, bool)) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithConfigFile reads trace defaults and variable names from a .startup
// YAML file. A missing file is ignored.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithOutput replaces the buffered stdout handed to Main.
func WithOutput(out Output) Option {
	return func(o *options) {
		o.output = out
	}
}

// WithStderr replaces the diagnostic stream.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}
