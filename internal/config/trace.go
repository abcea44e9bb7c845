package config

// Lookup reads one configuration variable. os.LookupEnv satisfies it.
type Lookup func(name string) (string, bool)

// Trace is the resolved trace policy.
type Trace struct {
	Interrupt bool
	Exception bool
}

// ResolveTrace resolves one tri-state trace flag. An explicit value wins;
// otherwise a set variable decides (any non-empty value enables); otherwise
// the file value, if any; otherwise disabled.
func ResolveTrace(explicit *bool, name string, lookup Lookup, file *bool) bool {
	if explicit != nil {
		return *explicit
	}
	if lookup != nil && name != "" {
		if v, ok := lookup(name); ok {
			return v != ""
		}
	}
	if file != nil {
		return *file
	}
	return false
}

// Overrides are the explicitly requested settings; nil fields are unset.
type Overrides struct {
	Interrupt    *bool
	Exception    *bool
	InterruptEnv string
	ExceptionEnv string
}

// Resolve computes the trace policy once, from the overrides, lookup, and cfg.
// A nil cfg is treated as an empty file.
func Resolve(o Overrides, lookup Lookup, cfg *Config) Trace {
	if cfg == nil {
		cfg = &Config{}
	}
	intrEnv := o.InterruptEnv
	if intrEnv == "" {
		intrEnv = cfg.InterruptEnv()
	}
	excEnv := o.ExceptionEnv
	if excEnv == "" {
		excEnv = cfg.ExceptionEnv()
	}
	return Trace{
		Interrupt: ResolveTrace(o.Interrupt, intrEnv, lookup, cfg.Trace.Interrupt),
		Exception: ResolveTrace(o.Exception, excEnv, lookup, cfg.Trace.Exception),
	}
}
