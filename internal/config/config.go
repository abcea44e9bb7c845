// Package config loads the optional .startup YAML file and resolves the
// harness trace policy from explicit settings, the environment, and the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up at the repository root.
const FileName = ".startup"

// Default values.
const (
	DefaultInterruptEnv = "STARTUP_SIGINT"
	DefaultExceptionEnv = "STARTUP_DEBUG"

	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultDelay     = 100 * time.Millisecond
	DefaultSignal    = "SIGINT"
)

// Config holds the parsed .startup configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version int         `yaml:"version"`
	Trace   TraceConfig `yaml:"trace"`
	Probe   ProbeConfig `yaml:"probe"`
}

// TraceConfig holds the lowest-precedence trace policy and the names of the
// environment variables that override it.
type TraceConfig struct {
	Interrupt    *bool  `yaml:"interrupt"`
	Exception    *bool  `yaml:"exception"`
	InterruptEnv string `yaml:"interrupt_env"` // default STARTUP_SIGINT
	ExceptionEnv string `yaml:"exception_env"` // default STARTUP_DEBUG
}

// ProbeConfig controls how termination probes run child processes.
type ProbeConfig struct {
	RawTimeout   string `yaml:"timeout"`    // e.g. "30s"
	RawMaxOutput int    `yaml:"max_output"` // bytes
	RawDelay     string `yaml:"delay"`      // e.g. "100ms"
	Signal       string `yaml:"signal"`     // e.g. "SIGINT"
}

// InterruptEnv returns the environment variable enabling interrupt traces.
func (c *Config) InterruptEnv() string {
	if c.Trace.InterruptEnv != "" {
		return c.Trace.InterruptEnv
	}
	return DefaultInterruptEnv
}

// ExceptionEnv returns the environment variable enabling error traces.
func (c *Config) ExceptionEnv() string {
	if c.Trace.ExceptionEnv != "" {
		return c.Trace.ExceptionEnv
	}
	return DefaultExceptionEnv
}

// Timeout returns the configured probe timeout or the default.
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.Probe.RawTimeout, DefaultTimeout)
}

// Delay returns how long a probe waits before signalling the child.
func (c *Config) Delay() time.Duration {
	return parseDuration(c.Probe.RawDelay, DefaultDelay)
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.Probe.RawMaxOutput > 0 {
		return c.Probe.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ProbeSignal returns the configured probe signal name or the default.
func (c *Config) ProbeSignal() string {
	if c.Probe.Signal != "" {
		return c.Probe.Signal
	}
	return DefaultSignal
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing go.mod; falls back to workspace
	Path     string // path of the .startup file, whether or not it exists
}

// Load reads the .startup file from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for go.mod. If no .startup file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No go.mod found; use workspace as root.
		root = workspace
	}

	path := filepath.Join(root, FileName)
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, RepoRoot: root, Path: path}, nil
}

// LoadFile parses a single configuration file. A missing file yields a
// default Config.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// findRepoRoot walks upward from dir looking for a directory containing go.mod.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
